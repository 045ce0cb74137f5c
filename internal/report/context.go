package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amcchord/slideReports/internal/model"
	"github.com/amcchord/slideReports/internal/store"
)

const (
	defaultReportTitle = "Slide Backup Report"
	defaultLogoURL     = "/static/img/logo.png"
	auditFetchLimit    = 100
)

// AllDataSources is the default data-source set when a request names
// none.
var AllDataSources = []string{"devices", "agents", "backups", "snapshots", "alerts", "audits"}

// RecordSource is the slice of the store the assembler reads from.
type RecordSource interface {
	Devices(ctx context.Context, clientID string) ([]model.Device, error)
	Agents(ctx context.Context, clientID string) ([]model.Agent, error)
	Clients(ctx context.Context, clientID string) ([]model.Client, error)
	BackupsInWindow(ctx context.Context, start, end, clientID string) ([]model.Backup, error)
	LastSuccessfulBackups(ctx context.Context, clientID string) (map[string]model.Backup, error)
	SnapshotsInWindow(ctx context.Context, start, end, clientID string) ([]model.Snapshot, error)
	Snapshots(ctx context.Context, clientID string) ([]model.Snapshot, error)
	AlertsInWindow(ctx context.Context, start, end, clientID string) ([]model.Alert, error)
	AuditsInWindow(ctx context.Context, start, end, clientID string, limit int) ([]model.AuditEntry, error)
	VirtualMachines(ctx context.Context, clientID string) ([]model.VirtualMachine, error)
	FileRestores(ctx context.Context, clientID string) ([]model.FileRestore, error)
	Preference(ctx context.Context, key, fallback string) (string, error)
}

// StartISO returns the window start as an ISO-8601 UTC string for
// lexicographic comparison against record timestamp columns.
func (w Window) StartISO() string { return w.Start.UTC().Format(time.RFC3339) }

// EndISO returns the window end as an ISO-8601 UTC string.
func (w Window) EndISO() string { return w.End.UTC().Format(time.RFC3339) }

// recordSet holds one report's worth of fetched records.
type recordSet struct {
	devices        []model.Device
	agents         []model.Agent
	clients        []model.Client
	backups        []model.Backup
	lastSuccessful map[string]model.Backup
	snapshots      []model.Snapshot
	allSnapshots   []model.Snapshot
	alerts         []model.Alert
	audits         []model.AuditEntry
	vms            []model.VirtualMachine
	fileRestores   []model.FileRestore
	timezone       string
	customLogo     string
}

func (g *Generator) fetchRecords(ctx context.Context, w Window, clientID string) (*recordSet, error) {
	rs := &recordSet{}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() (err error) { rs.devices, err = g.source.Devices(ctx, clientID); return })
	eg.Go(func() (err error) { rs.agents, err = g.source.Agents(ctx, clientID); return })
	eg.Go(func() (err error) { rs.clients, err = g.source.Clients(ctx, clientID); return })
	eg.Go(func() (err error) {
		rs.backups, err = g.source.BackupsInWindow(ctx, w.StartISO(), w.EndISO(), clientID)
		return
	})
	eg.Go(func() (err error) { rs.lastSuccessful, err = g.source.LastSuccessfulBackups(ctx, clientID); return })
	eg.Go(func() (err error) {
		rs.snapshots, err = g.source.SnapshotsInWindow(ctx, w.StartISO(), w.EndISO(), clientID)
		return
	})
	eg.Go(func() (err error) { rs.allSnapshots, err = g.source.Snapshots(ctx, clientID); return })
	eg.Go(func() (err error) {
		rs.alerts, err = g.source.AlertsInWindow(ctx, w.StartISO(), w.EndISO(), clientID)
		return
	})
	eg.Go(func() (err error) {
		rs.audits, err = g.source.AuditsInWindow(ctx, w.StartISO(), w.EndISO(), clientID, auditFetchLimit)
		return
	})
	eg.Go(func() (err error) { rs.vms, err = g.source.VirtualMachines(ctx, clientID); return })
	eg.Go(func() (err error) { rs.fileRestores, err = g.source.FileRestores(ctx, clientID); return })
	eg.Go(func() (err error) {
		rs.timezone, err = g.source.Preference(ctx, store.PrefTimezone, g.defaultTimezone)
		return
	})
	eg.Go(func() (err error) { rs.customLogo, err = g.source.Preference(ctx, store.PrefCustomLogo, ""); return })

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fetch report records: %w", err)
	}
	return rs, nil
}

// buildContext assembles the full render context. Every key is always
// present; sections whose data source was excluded carry zero values
// so templates degrade instead of erroring.
func (g *Generator) buildContext(ctx context.Context, w Window, dataSources []string, clientID string) (map[string]any, error) {
	rs, err := g.fetchRecords(ctx, w, clientID)
	if err != nil {
		return nil, err
	}

	tz, err := time.LoadLocation(rs.timezone)
	if err != nil {
		g.logger.Warn().Str("timezone", rs.timezone).Msg("unknown timezone preference, using UTC")
		tz = time.UTC
	}

	if len(dataSources) == 0 {
		dataSources = AllDataSources
	}
	include := map[string]bool{}
	for _, src := range dataSources {
		include[src] = true
	}

	logoURL := defaultLogoURL
	if rs.customLogo != "" {
		logoURL = rs.customLogo
	}

	now := g.now()
	c := map[string]any{
		"logo_url":     logoURL,
		"report_title": defaultReportTitle,
		"date_range":   FormatDate(w.Start, tz) + " - " + FormatDate(w.End, tz),
		"generated_at": FormatDateTime(now, tz),
		"timezone":     tz.String(),
		"client_id":    clientID,
		"client_name":  "",

		"show_backup_stats":   include["backups"],
		"show_snapshots":      include["snapshots"],
		"show_alerts":         include["alerts"],
		"show_storage":        include["devices"],
		"show_audits":         include["audits"],
		"show_virtualization": include["virtual_machines"],
	}

	if clientID != "" && len(rs.clients) > 0 {
		name := rs.clients[0].DisplayName()
		c["client_name"] = name
		c["report_title"] = defaultReportTitle + " - " + name
	}

	// Raw arrays let templates reach any synced field directly.
	c["devices"] = listOfMaps(rs.devices, func(d model.Device) map[string]any { return rowMap(d, d.Raw) })
	c["agents"] = listOfMaps(rs.agents, func(a model.Agent) map[string]any { return rowMap(a, a.Raw) })
	c["clients"] = listOfMaps(rs.clients, func(cl model.Client) map[string]any { return rowMap(cl, cl.Raw) })
	c["backups"] = listOfMaps(rs.backups, func(b model.Backup) map[string]any { return rowMap(b, b.Raw) })
	c["snapshots"] = listOfMaps(rs.snapshots, func(s model.Snapshot) map[string]any { return rowMap(s, s.Raw) })
	c["alerts"] = listOfMaps(rs.alerts, func(a model.Alert) map[string]any { return rowMap(a, a.Raw) })
	c["virtual_machines"] = listOfMaps(rs.vms, func(v model.VirtualMachine) map[string]any { return rowMap(v, v.Raw) })
	c["audits"] = listOfMaps(rs.audits, func(a model.AuditEntry) map[string]any { return rowMap(a, a.Raw) })
	c["file_restores"] = listOfMaps(rs.fileRestores, func(f model.FileRestore) map[string]any { return rowMap(f, f.Raw) })

	var backupMetrics BackupMetrics
	if include["backups"] {
		backupMetrics = CalculateBackupMetrics(rs.backups, rs.agents, tz)
	} else {
		backupMetrics.AgentBackupStatus = []AgentBackupRow{}
	}
	mergeStruct(c, backupMetrics)
	// With no runs in the window the rate renders as the bare integer
	// 0, not 0.0.
	if backupMetrics.TotalBackups == 0 {
		c["success_rate"] = int64(0)
	}

	var snapshotMetrics SnapshotMetrics
	c["latest_screenshot"] = nil
	if include["snapshots"] {
		snapshotMetrics = CalculateSnapshotMetrics(rs.snapshots, g.logger)
		if shot := FindLatestScreenshot(rs.allSnapshots, rs.agents, tz); shot != nil {
			c["latest_screenshot"] = structToMap(*shot)
		}
	}
	mergeStruct(c, snapshotMetrics)

	var alertMetrics AlertMetrics
	if include["alerts"] {
		alertMetrics = CalculateAlertMetrics(rs.alerts)
	}
	mergeStruct(c, alertMetrics)

	storageMetrics := StorageMetrics{DeviceStorage: []DeviceStorageRow{}}
	if include["devices"] {
		storageMetrics = CalculateStorageMetrics(rs.devices)
	}
	mergeStruct(c, storageMetrics)

	auditMetrics := AuditMetrics{AuditActions: map[string]int{}, RecentAudits: []model.AuditEntry{}}
	if include["audits"] {
		auditMetrics = CalculateAuditMetrics(rs.audits)
	}
	mergeStruct(c, auditMetrics)

	var vmMetrics VirtualizationMetrics
	if include["virtual_machines"] {
		vmMetrics = CalculateVirtualizationMetrics(rs.vms)
	}
	mergeStruct(c, vmMetrics)

	calendars := BuildAgentCalendars(rs.agents, rs.backups, rs.snapshots, w, tz, g.logger)
	c["agent_calendars"] = listOfMaps(calendars, func(ac AgentCalendar) map[string]any { return structToMap(ac) })
	c["agent_snapshot_totals"] = listOfMaps(
		BuildAgentSnapshotTotals(rs.agents, rs.allSnapshots, g.logger),
		func(t AgentSnapshotTotals) map[string]any { return structToMap(t) })
	c["agent_screenshots"] = listOfMaps(
		BuildAgentScreenshotPairs(rs.agents, rs.snapshots, tz),
		func(p AgentScreenshotPair) map[string]any { return structToMap(p) })
	c["agent_snapshot_audit"] = listOfMaps(
		BuildSnapshotAudit(rs.agents, rs.snapshots, tz, g.logger),
		func(sa SnapshotAuditGroup) map[string]any { return structToMap(sa) })

	mergeStruct(c, CalculateStorageGrowth(rs.devices, rs.agents, rs.backups))

	overview := BuildAgentConfigOverview(rs.devices, rs.agents, rs.lastSuccessful,
		LatestScreenshotByAgent(rs.allSnapshots), now, tz)
	c["agent_config_overview"] = structToMap(overview)

	c["executive_summary"] = DefaultSummary(
		include["backups"], include["snapshots"], include["alerts"],
		backupMetrics, snapshotMetrics, alertMetrics)

	return c, nil
}

// rowMap flattens a record into the restricted value domain the
// renderer accepts. Upstream fields without a dedicated column come
// from raw and are overridden by the typed columns.
func rowMap(v any, raw map[string]any) map[string]any {
	out := map[string]any{}
	for k, val := range raw {
		out[k] = normalizeValue(val)
	}
	for k, val := range structToMap(v) {
		out[k] = val
	}
	return out
}

// structToMap converts a struct with json tags into a map of
// restricted values. Numbers stay integral where the encoded form has
// no decimal point.
func structToMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return map[string]any{}
	}
	converted, _ := normalizeValue(m).(map[string]any)
	if converted == nil {
		return map[string]any{}
	}
	return converted
}

func listOfMaps[T any](items []T, convert func(T) map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}

// normalizeValue coerces decoded JSON into the renderer's value
// domain: nil, bool, int64, float64, string, []any, map[string]any.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return i
			}
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case int:
		return int64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			out = append(out, normalizeValue(val))
		}
		return out
	default:
		return v
	}
}

// mergeStruct flattens a metrics struct's fields into the context.
func mergeStruct(c map[string]any, v any) {
	for k, val := range structToMap(v) {
		c[k] = val
	}
}
