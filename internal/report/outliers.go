package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/amcchord/slideReports/internal/model"
)

const (
	oldBackupThreshold  = 7 * 24 * time.Hour
	slowBackupThreshold = 30 * time.Minute
)

// AgentConfigRow is one agent in the configuration overview, with its
// outlier flags and last-backup details.
type AgentConfigRow struct {
	AgentInfo                 map[string]any `json:"agent_info"`
	LastSuccessfulBackupDate  string         `json:"last_successful_backup_date"`
	LastBackupDurationMinutes *int64         `json:"last_backup_duration_minutes"`
	LastBackupDurationSeconds *int64         `json:"last_backup_duration_seconds"`
	IsSlowBackup              bool           `json:"is_slow_backup"`
	IsOldBackup               bool           `json:"is_old_backup"`
	ConfigOutlier             bool           `json:"config_outlier"`
	IPAddressesFormatted      string         `json:"ip_addresses_formatted"`
	LastSeenFormatted         string         `json:"last_seen_formatted"`
	LastScreenshotURL         string         `json:"last_screenshot_url"`
}

// DeviceConfigGroup groups one device's agents.
type DeviceConfigGroup struct {
	DeviceInfo map[string]any   `json:"device_info"`
	Agents     []AgentConfigRow `json:"agents"`
}

// ConfigSummary holds fleet-level totals for the overview.
type ConfigSummary struct {
	TotalDevices       int `json:"total_devices"`
	TotalAgents        int `json:"total_agents"`
	SlowBackupCount    int `json:"slow_backup_count"`
	OldBackupCount     int `json:"old_backup_count"`
	ConfigOutlierCount int `json:"config_outlier_count"`
}

// AgentConfigOverview is the full configuration/outlier report section.
type AgentConfigOverview struct {
	Devices []DeviceConfigGroup `json:"devices"`
	Summary ConfigSummary       `json:"summary"`
}

// fleetModes holds the most common value per configuration dimension.
// Ties resolve to the value seen first in agent order, which makes
// outlier detection deterministic for a given record set.
type fleetModes struct {
	os           string
	encryption   string
	agentVersion string
	platform     string
}

func computeFleetModes(agents []model.Agent) fleetModes {
	return fleetModes{
		os: modeOf(agents, func(a model.Agent) string { return a.OSComposite() }),
		encryption: modeOf(agents, func(a model.Agent) string {
			return derefStr(a.EncryptionAlgorithm)
		}),
		agentVersion: modeOf(agents, func(a model.Agent) string {
			return derefStr(a.AgentVersion)
		}),
		platform: modeOf(agents, func(a model.Agent) string {
			return derefStr(a.Platform)
		}),
	}
}

func modeOf(agents []model.Agent, value func(model.Agent) string) string {
	counts := map[string]int{}
	var order []string
	for _, a := range agents {
		v := value(a)
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// BuildAgentConfigOverview flags agents whose configuration deviates
// from the fleet mode, whose last successful backup is over a week
// old, or whose last successful backup ran longer than 30 minutes.
// The three flags are independent.
func BuildAgentConfigOverview(devices []model.Device, agents []model.Agent,
	lastSuccessful map[string]model.Backup, screenshotByAgent map[string]string,
	now time.Time, tz *time.Location) AgentConfigOverview {

	modes := computeFleetModes(agents)

	overview := AgentConfigOverview{Devices: []DeviceConfigGroup{}}
	overview.Summary.TotalDevices = len(devices)

	for _, device := range devices {
		group := DeviceConfigGroup{
			DeviceInfo: rowMap(device, device.Raw),
			Agents:     []AgentConfigRow{},
		}
		group.DeviceInfo["ip_addresses_formatted"] = formatIPList(derefStr(device.IPAddresses))

		for _, agent := range agents {
			if derefStr(agent.DeviceID) != device.DeviceID {
				continue
			}
			overview.Summary.TotalAgents++

			row := AgentConfigRow{
				AgentInfo:            rowMap(agent, agent.Raw),
				IPAddressesFormatted: formatIPList(derefStr(agent.IPAddresses)),
				LastSeenFormatted:    "N/A",
				LastScreenshotURL:    screenshotByAgent[agent.AgentID],
			}

			if seen, err := ParseTimestamp(derefStr(agent.LastSeenAt)); err == nil && !seen.IsZero() {
				row.LastSeenFormatted = FormatDateTimeAbsolute(seen, tz)
			}

			if backup, ok := lastSuccessful[agent.AgentID]; ok {
				if start, err := ParseTimestamp(derefStr(backup.StartedAt)); err == nil && !start.IsZero() {
					row.LastSuccessfulBackupDate = FormatDateTimeAbsolute(start, tz)
					if now.Sub(start) > oldBackupThreshold {
						row.IsOldBackup = true
						overview.Summary.OldBackupCount++
					}
					if end, err := ParseTimestamp(derefStr(backup.EndedAt)); err == nil && !end.IsZero() {
						seconds := int64(end.Sub(start).Seconds())
						minutes := seconds / 60
						row.LastBackupDurationSeconds = &seconds
						row.LastBackupDurationMinutes = &minutes
						if end.Sub(start) > slowBackupThreshold {
							row.IsSlowBackup = true
							overview.Summary.SlowBackupCount++
						}
					}
				}
			}

			row.ConfigOutlier = isConfigOutlier(agent, modes)
			if row.ConfigOutlier {
				overview.Summary.ConfigOutlierCount++
			}

			group.Agents = append(group.Agents, row)
		}

		overview.Devices = append(overview.Devices, group)
	}
	return overview
}

// isConfigOutlier compares only populated dimensions, so an agent
// missing a field is never flagged for it.
func isConfigOutlier(agent model.Agent, modes fleetModes) bool {
	if os := agent.OSComposite(); modes.os != "" && os != "" && os != modes.os {
		return true
	}
	if enc := derefStr(agent.EncryptionAlgorithm); modes.encryption != "" && enc != "" && enc != modes.encryption {
		return true
	}
	if v := derefStr(agent.AgentVersion); modes.agentVersion != "" && v != "" && v != modes.agentVersion {
		return true
	}
	if p := derefStr(agent.Platform); modes.platform != "" && p != "" && p != modes.platform {
		return true
	}
	return false
}

// formatIPList renders a JSON array of addresses as a comma-separated
// string. Unparseable input is shown as-is rather than hidden.
func formatIPList(raw string) string {
	if raw == "" {
		return "N/A"
	}
	var ips []string
	if err := json.Unmarshal([]byte(raw), &ips); err != nil {
		return raw
	}
	if len(ips) == 0 {
		return "N/A"
	}
	return strings.Join(ips, ", ")
}
