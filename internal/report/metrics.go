package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/model"
)

// Window is the reporting period. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// AgentBackupRow is a display row summarizing an agent's most recent
// backup in the window.
type AgentBackupRow struct {
	Name        string `json:"name"`
	LastBackup  string `json:"last_backup"`
	Status      string `json:"status"`
	StatusClass string `json:"status_class"`
	Duration    string `json:"duration"`
}

// BackupMetrics aggregates backup jobs in the window.
type BackupMetrics struct {
	TotalBackups      int              `json:"total_backups"`
	SuccessfulBackups int              `json:"successful_backups"`
	FailedBackups     int              `json:"failed_backups"`
	SuccessRate       Percent          `json:"success_rate"`
	AgentBackupStatus []AgentBackupRow `json:"agent_backup_status"`
}

// CalculateBackupMetrics computes backup totals and per-agent status
// rows. The backups slice must be ordered newest first, the way the
// store returns it, so the first match per agent is its latest run.
func CalculateBackupMetrics(backups []model.Backup, agents []model.Agent, tz *time.Location) BackupMetrics {
	m := BackupMetrics{
		TotalBackups:      len(backups),
		AgentBackupStatus: []AgentBackupRow{},
	}
	for _, b := range backups {
		switch b.Status {
		case model.BackupStatusSucceeded:
			m.SuccessfulBackups++
		case model.BackupStatusFailed:
			m.FailedBackups++
		}
	}
	if m.TotalBackups > 0 {
		m.SuccessRate = Percent(round1(float64(m.SuccessfulBackups) / float64(m.TotalBackups) * 100))
	}

	for _, agent := range agents {
		var last *model.Backup
		for i := range backups {
			if derefStr(backups[i].AgentID) == agent.AgentID {
				last = &backups[i]
				break
			}
		}
		if last == nil {
			continue
		}

		duration := ""
		if start, err := ParseTimestamp(derefStr(last.StartedAt)); err == nil && !start.IsZero() {
			if end, err := ParseTimestamp(derefStr(last.EndedAt)); err == nil && !end.IsZero() {
				duration = FormatDuration(end.Sub(start))
			}
		}

		lastBackup := "Unknown"
		if dt, err := ParseTimestamp(derefStr(last.StartedAt)); err == nil && !dt.IsZero() {
			lastBackup = FormatDateTime(dt, tz)
		}

		m.AgentBackupStatus = append(m.AgentBackupStatus, AgentBackupRow{
			Name:        agent.Name(),
			LastBackup:  lastBackup,
			Status:      titleCase(last.Status),
			StatusClass: statusClass(last.Status),
			Duration:    duration,
		})
	}
	return m
}

// SnapshotMetrics aggregates snapshots in the window by storage
// location and deletion type. One snapshot can occupy several deletion
// buckets, so DeletedSnapshots, being the bucket sum, can exceed the
// number of distinct deleted snapshots.
type SnapshotMetrics struct {
	ActiveSnapshots       int `json:"active_snapshots"`
	DeletedSnapshots      int `json:"deleted_snapshots"`
	LocalSnapshots        int `json:"local_snapshots"`
	CloudSnapshots        int `json:"cloud_snapshots"`
	RetentionDeletedCount int `json:"retention_deleted_count"`
	ManuallyDeletedCount  int `json:"manually_deleted_count"`
	OtherDeletedCount     int `json:"other_deleted_count"`
}

// CalculateSnapshotMetrics derives snapshot counts from the classifier.
// Location counts cover active snapshots only. Snapshots whose JSON
// fails to parse count as active with no locations.
func CalculateSnapshotMetrics(snapshots []model.Snapshot, logger zerolog.Logger) SnapshotMetrics {
	var m SnapshotMetrics
	for _, s := range snapshots {
		facets, err := ClassifySnapshot(s)
		if err != nil {
			logger.Warn().Err(err).Str("snapshot_id", s.SnapshotID).Msg("skipping snapshot facets")
		}
		if facets.Active() {
			m.ActiveSnapshots++
			if facets.Local {
				m.LocalSnapshots++
			}
			if facets.Cloud {
				m.CloudSnapshots++
			}
		}
		if facets.DeletedRetention {
			m.RetentionDeletedCount++
		}
		if facets.DeletedManual {
			m.ManuallyDeletedCount++
		}
		if facets.DeletedOther {
			m.OtherDeletedCount++
		}
	}
	m.DeletedSnapshots = m.RetentionDeletedCount + m.ManuallyDeletedCount + m.OtherDeletedCount
	return m
}

// AlertMetrics aggregates alerts raised in the window.
type AlertMetrics struct {
	TotalAlerts      int `json:"total_alerts"`
	UnresolvedAlerts int `json:"unresolved_alerts"`
	ResolvedAlerts   int `json:"resolved_alerts"`
}

func CalculateAlertMetrics(alerts []model.Alert) AlertMetrics {
	m := AlertMetrics{TotalAlerts: len(alerts)}
	for _, a := range alerts {
		if a.Resolved {
			m.ResolvedAlerts++
		} else {
			m.UnresolvedAlerts++
		}
	}
	return m
}

// DeviceStorageRow is a display row for one device's capacity usage.
type DeviceStorageRow struct {
	Name    string  `json:"name"`
	Used    string  `json:"used"`
	Total   string  `json:"total"`
	Percent Percent `json:"percent"`
}

// StorageMetrics lists capacity usage per device. Devices without a
// known total capacity are excluded.
type StorageMetrics struct {
	DeviceStorage []DeviceStorageRow `json:"device_storage"`
}

func CalculateStorageMetrics(devices []model.Device) StorageMetrics {
	m := StorageMetrics{DeviceStorage: []DeviceStorageRow{}}
	for _, d := range devices {
		used := derefInt64(d.StorageUsedBytes)
		total := derefInt64(d.StorageTotalBytes)
		if total <= 0 {
			continue
		}
		m.DeviceStorage = append(m.DeviceStorage, DeviceStorageRow{
			Name:    d.Name(),
			Used:    FormatBytes(used),
			Total:   FormatBytes(total),
			Percent: Percent(round1(float64(used) / float64(total) * 100)),
		})
	}
	return m
}

// AuditMetrics summarizes the most recent audit-log entries in the
// window. The audits slice is already capped by the store query.
type AuditMetrics struct {
	TotalAudits  int                `json:"total_audits"`
	AuditActions map[string]int     `json:"audit_actions"`
	RecentAudits []model.AuditEntry `json:"recent_audits"`
}

func CalculateAuditMetrics(audits []model.AuditEntry) AuditMetrics {
	m := AuditMetrics{
		TotalAudits:  len(audits),
		AuditActions: map[string]int{},
	}
	for _, a := range audits {
		m.AuditActions[a.Action]++
	}
	recent := audits
	if len(recent) > 20 {
		recent = recent[:20]
	}
	m.RecentAudits = recent
	return m
}

// VirtualizationMetrics counts virtual machines by state.
type VirtualizationMetrics struct {
	TotalVMs   int `json:"total_vms"`
	RunningVMs int `json:"running_vms"`
	StoppedVMs int `json:"stopped_vms"`
}

func CalculateVirtualizationMetrics(vms []model.VirtualMachine) VirtualizationMetrics {
	m := VirtualizationMetrics{TotalVMs: len(vms)}
	for _, vm := range vms {
		switch vm.State {
		case model.VMStateRunning:
			m.RunningVMs++
		case model.VMStateStopped:
			m.StoppedVMs++
		}
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percent is a percentage that keeps its decimal point when marshaled,
// so a whole value reaches the render context as 80.0 rather than 80.
type Percent float64

func (p Percent) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(p), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

func statusClass(status string) string {
	switch status {
	case model.BackupStatusSucceeded:
		return "success"
	case model.BackupStatusFailed:
		return "danger"
	default:
		return "warning"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
