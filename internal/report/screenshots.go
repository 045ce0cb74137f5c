package report

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/model"
)

// LatestScreenshot is the newest boot-verification screenshot across
// the fleet.
type LatestScreenshot struct {
	URL        string `json:"url"`
	AgentName  string `json:"agent_name"`
	CapturedAt string `json:"captured_at"`
}

// ScreenshotRef points at one snapshot's verification screenshot.
type ScreenshotRef struct {
	URL        string `json:"url"`
	Date       string `json:"date"`
	SnapshotID string `json:"snapshot_id"`
}

// AgentScreenshotPair holds the oldest and newest screenshots one
// agent produced inside the window.
type AgentScreenshotPair struct {
	AgentName        string         `json:"agent_name"`
	AgentID          string         `json:"agent_id"`
	OldestScreenshot *ScreenshotRef `json:"oldest_screenshot"`
	NewestScreenshot *ScreenshotRef `json:"newest_screenshot"`
}

// SnapshotAuditRow is one snapshot's verification detail for the
// audit view. Only snapshots present in at least one location appear.
type SnapshotAuditRow struct {
	DateFormatted    string `json:"date_formatted"`
	LocationLocal    bool   `json:"location_local"`
	LocationCloud    bool   `json:"location_cloud"`
	VerifyBootPassed bool   `json:"verify_boot_passed"`
	VerifyFSPassed   bool   `json:"verify_fs_passed"`
	ScreenshotURL    string `json:"screenshot_url"`
}

// SnapshotAuditGroup groups audit rows per agent.
type SnapshotAuditGroup struct {
	AgentName string             `json:"agent_name"`
	AgentID   string             `json:"agent_id"`
	Snapshots []SnapshotAuditRow `json:"snapshots"`
}

// AgentSnapshotTotals counts an agent's active snapshots by location
// over the whole retention history, not just the window.
type AgentSnapshotTotals struct {
	AgentName  string `json:"agent_name"`
	LocalCount int    `json:"local_count"`
	CloudCount int    `json:"cloud_count"`
}

// FindLatestScreenshot returns the newest screenshot-bearing snapshot
// across the given records, or nil when none carries a screenshot.
func FindLatestScreenshot(snapshots []model.Snapshot, agents []model.Agent, tz *time.Location) *LatestScreenshot {
	agentNames := agentNameIndex(agents)

	var best *model.Snapshot
	var bestAt time.Time
	for i := range snapshots {
		s := &snapshots[i]
		if s.ScreenshotURL() == "" {
			continue
		}
		at := ParseTimestampOr(derefStr(s.BackupStartedAt), time.Time{})
		if best == nil || at.After(bestAt) {
			best, bestAt = s, at
		}
	}
	if best == nil {
		return nil
	}

	name := agentNames[derefStr(best.AgentID)]
	if name == "" {
		name = "Unknown"
	}
	captured := "Unknown"
	if !bestAt.IsZero() {
		captured = FormatDateTime(bestAt, tz)
	}
	return &LatestScreenshot{
		URL:        best.ScreenshotURL(),
		AgentName:  name,
		CapturedAt: captured,
	}
}

// LatestScreenshotByAgent maps each agent to the URL of its newest
// screenshot-bearing snapshot.
func LatestScreenshotByAgent(snapshots []model.Snapshot) map[string]string {
	type candidate struct {
		url string
		at  time.Time
	}
	latest := map[string]candidate{}
	for _, s := range snapshots {
		if s.ScreenshotURL() == "" {
			continue
		}
		agentID := derefStr(s.AgentID)
		at := ParseTimestampOr(derefStr(s.BackupStartedAt), time.Time{})
		if cur, ok := latest[agentID]; !ok || at.After(cur.at) {
			latest[agentID] = candidate{url: s.ScreenshotURL(), at: at}
		}
	}
	out := make(map[string]string, len(latest))
	for agentID, c := range latest {
		out[agentID] = c.url
	}
	return out
}

// BuildAgentScreenshotPairs returns, per agent, the oldest and newest
// screenshots captured inside the window. Agents without screenshots
// are omitted.
func BuildAgentScreenshotPairs(agents []model.Agent, snapshots []model.Snapshot, tz *time.Location) []AgentScreenshotPair {
	pairs := []AgentScreenshotPair{}
	for _, agent := range agents {
		var oldest, newest *model.Snapshot
		var oldestAt, newestAt time.Time

		for i := range snapshots {
			s := &snapshots[i]
			if derefStr(s.AgentID) != agent.AgentID || s.ScreenshotURL() == "" {
				continue
			}
			at := ParseTimestampOr(derefStr(s.BackupStartedAt), time.Time{})
			if oldest == nil || at.Before(oldestAt) {
				oldest, oldestAt = s, at
			}
			if newest == nil || at.After(newestAt) {
				newest, newestAt = s, at
			}
		}
		if oldest == nil && newest == nil {
			continue
		}

		pairs = append(pairs, AgentScreenshotPair{
			AgentName:        agent.Name(),
			AgentID:          agent.AgentID,
			OldestScreenshot: screenshotRef(oldest, oldestAt, tz),
			NewestScreenshot: screenshotRef(newest, newestAt, tz),
		})
	}
	return pairs
}

func screenshotRef(s *model.Snapshot, at time.Time, tz *time.Location) *ScreenshotRef {
	if s == nil {
		return nil
	}
	id := s.SnapshotID
	if len(id) > 12 {
		id = id[:12]
	}
	date := "Unknown"
	if !at.IsZero() {
		date = FormatDateTime(at, tz)
	}
	return &ScreenshotRef{URL: s.ScreenshotURL(), Date: date, SnapshotID: id}
}

// BuildSnapshotAudit groups verification detail rows per agent,
// newest first. Snapshots absent from every location are skipped.
func BuildSnapshotAudit(agents []model.Agent, snapshots []model.Snapshot, tz *time.Location, logger zerolog.Logger) []SnapshotAuditGroup {
	groups := []SnapshotAuditGroup{}
	for _, agent := range agents {
		rows := []SnapshotAuditRow{}
		for _, s := range snapshots {
			if derefStr(s.AgentID) != agent.AgentID {
				continue
			}
			facets, err := ClassifySnapshot(s)
			if err != nil {
				logger.Warn().Err(err).Str("snapshot_id", s.SnapshotID).Msg("skipping snapshot facets")
			}
			if !facets.Local && !facets.Cloud {
				continue
			}

			date := "Unknown"
			if at := ParseTimestampOr(derefStr(s.BackupStartedAt), time.Time{}); !at.IsZero() {
				date = FormatDateTime(at, tz)
			}
			rows = append(rows, SnapshotAuditRow{
				DateFormatted:    date,
				LocationLocal:    facets.Local,
				LocationCloud:    facets.Cloud,
				VerifyBootPassed: derefStr(s.VerifyBootStatus) == "success",
				VerifyFSPassed:   derefStr(s.VerifyFSStatus) == "success",
				ScreenshotURL:    s.ScreenshotURL(),
			})
		}
		if len(rows) == 0 {
			continue
		}
		groups = append(groups, SnapshotAuditGroup{
			AgentName: agent.Name(),
			AgentID:   agent.AgentID,
			Snapshots: rows,
		})
	}
	return groups
}

// BuildAgentSnapshotTotals counts active snapshots per agent by
// location across the full history.
func BuildAgentSnapshotTotals(agents []model.Agent, snapshots []model.Snapshot, logger zerolog.Logger) []AgentSnapshotTotals {
	totals := []AgentSnapshotTotals{}
	for _, agent := range agents {
		row := AgentSnapshotTotals{AgentName: agent.Name()}
		for _, s := range snapshots {
			if derefStr(s.AgentID) != agent.AgentID {
				continue
			}
			facets, err := ClassifySnapshot(s)
			if err != nil {
				logger.Warn().Err(err).Str("snapshot_id", s.SnapshotID).Msg("skipping snapshot facets")
			}
			if !facets.Active() {
				continue
			}
			if facets.Local {
				row.LocalCount++
			}
			if facets.Cloud {
				row.CloudCount++
			}
		}
		totals = append(totals, row)
	}
	return totals
}

func agentNameIndex(agents []model.Agent) map[string]string {
	idx := make(map[string]string, len(agents))
	for _, a := range agents {
		idx[a.AgentID] = a.Name()
	}
	return idx
}
