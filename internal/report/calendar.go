package report

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/model"
)

// CalendarDay is one cell in an agent's backup calendar. Placeholder
// cells prepended for week alignment carry an empty Date and zero
// counts.
type CalendarDay struct {
	Date                    string `json:"date"`
	DayOfWeek               string `json:"day_of_week"`
	DayNumber               string `json:"day_number"`
	BackupStatus            string `json:"backup_status"`
	SnapshotsCreated        int    `json:"snapshots_created"`
	SnapshotsRemaining      int    `json:"snapshots_remaining"`
	LocalSnapshots          int    `json:"local_snapshots"`
	CloudSnapshots          int    `json:"cloud_snapshots"`
	HasSnapshot             bool   `json:"has_snapshot"`
	TotalBackups            int    `json:"total_backups"`
	SuccessfulBackups       int    `json:"successful_backups"`
	FailedBackups           int    `json:"failed_backups"`
	CompletionRatio         string `json:"completion_ratio"`
	CompletionColor         string `json:"completion_color"`
	SnapshotLocationLocal   int    `json:"snapshot_location_local"`
	SnapshotLocationCloud   int    `json:"snapshot_location_cloud"`
	SnapshotLocationBoth    int    `json:"snapshot_location_both"`
	SnapshotLocationDisplay string `json:"snapshot_location_display"`
}

// AgentCalendar is one agent's day-by-day grid for the window.
type AgentCalendar struct {
	AgentName    string        `json:"agent_name"`
	AgentID      string        `json:"agent_id"`
	CalendarGrid []CalendarDay `json:"calendar_grid"`
}

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// BuildAgentCalendars produces one calendar per agent covering every
// day of the window inclusive. Day boundaries follow the report
// timezone. The grid is padded with leading placeholder cells so the
// first row starts on a Sunday.
func BuildAgentCalendars(agents []model.Agent, backups []model.Backup, snapshots []model.Snapshot,
	window Window, tz *time.Location, logger zerolog.Logger) []AgentCalendar {

	calendars := make([]AgentCalendar, 0, len(agents))
	for _, agent := range agents {
		grid := buildGrid(agent.AgentID, backups, snapshots, window, tz, logger)
		grid = alignToSunday(grid, tz)
		calendars = append(calendars, AgentCalendar{
			AgentName:    agent.Name(),
			AgentID:      agent.AgentID,
			CalendarGrid: grid,
		})
	}
	return calendars
}

func buildGrid(agentID string, backups []model.Backup, snapshots []model.Snapshot,
	window Window, tz *time.Location, logger zerolog.Logger) []CalendarDay {

	start := window.Start.In(tz)
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, tz)
	end := window.End.In(tz)
	lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, tz)

	var grid []CalendarDay
	for day := dayStart; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		cell := CalendarDay{
			Date:            day.Format("2006-01-02"),
			DayOfWeek:       day.Format("Mon"),
			DayNumber:       strconv.Itoa(day.Day()),
			BackupStatus:    "none",
			CompletionRatio: "-",
			CompletionColor: "none",
		}

		for _, b := range backups {
			if derefStr(b.AgentID) != agentID {
				continue
			}
			dt, err := ParseTimestamp(derefStr(b.StartedAt))
			if err != nil || dt.IsZero() || !inDay(dt, day, next) {
				continue
			}
			cell.TotalBackups++
			switch b.Status {
			case model.BackupStatusSucceeded:
				cell.SuccessfulBackups++
			case model.BackupStatusFailed:
				cell.FailedBackups++
			}
		}

		if cell.TotalBackups > 0 {
			switch {
			case cell.SuccessfulBackups == cell.TotalBackups:
				cell.BackupStatus = "success"
			case cell.FailedBackups > 0:
				cell.BackupStatus = "failed"
			default:
				cell.BackupStatus = "running"
			}
			missing := cell.TotalBackups - cell.SuccessfulBackups
			switch {
			case missing == 0:
				cell.CompletionColor = "green"
			case missing == 1:
				cell.CompletionColor = "yellow"
			default:
				cell.CompletionColor = "red"
			}
			cell.CompletionRatio = strconv.Itoa(cell.SuccessfulBackups) + "/" + strconv.Itoa(cell.TotalBackups)
		}

		localOnly, cloudOnly, both := 0, 0, 0
		for _, s := range snapshots {
			if derefStr(s.AgentID) != agentID {
				continue
			}
			dt, err := ParseTimestamp(derefStr(s.BackupStartedAt))
			if err != nil || dt.IsZero() || !inDay(dt, day, next) {
				continue
			}
			cell.HasSnapshot = true
			cell.SnapshotsCreated++

			facets, err := ClassifySnapshot(s)
			if err != nil {
				logger.Warn().Err(err).Str("snapshot_id", s.SnapshotID).Msg("skipping snapshot facets")
			}
			if facets.Active() {
				cell.SnapshotsRemaining++
			}
			if facets.Local {
				cell.LocalSnapshots++
			}
			if facets.Cloud {
				cell.CloudSnapshots++
			}
			switch {
			case facets.Local && facets.Cloud:
				both++
			case facets.Local:
				localOnly++
			case facets.Cloud:
				cloudOnly++
			}
		}

		cell.SnapshotLocationLocal = localOnly
		cell.SnapshotLocationCloud = cloudOnly
		cell.SnapshotLocationBoth = both
		switch {
		case both > 0, localOnly > 0 && cloudOnly > 0:
			cell.SnapshotLocationDisplay = "LC"
		case localOnly > 0:
			cell.SnapshotLocationDisplay = "L"
		case cloudOnly > 0:
			cell.SnapshotLocationDisplay = "C"
		}

		grid = append(grid, cell)
	}
	return grid
}

// alignToSunday prepends placeholder cells until the first real cell
// falls on a Sunday, then recomputes the day-of-week labels.
func alignToSunday(grid []CalendarDay, tz *time.Location) []CalendarDay {
	if len(grid) == 0 {
		return grid
	}

	first, err := time.ParseInLocation("2006-01-02", grid[0].Date, tz)
	if err != nil {
		return grid
	}

	padding := int(first.Weekday())
	padded := make([]CalendarDay, 0, padding+len(grid))
	for i := 0; i < padding; i++ {
		padded = append(padded, CalendarDay{
			BackupStatus:    "none",
			CompletionRatio: "-",
			CompletionColor: "none",
		})
	}
	padded = append(padded, grid...)

	for i := range padded {
		if padded[i].Date == "" {
			continue
		}
		if day, err := time.ParseInLocation("2006-01-02", padded[i].Date, tz); err == nil {
			padded[i].DayOfWeek = dayNames[int(day.Weekday())]
		}
	}
	return padded
}

func inDay(t, dayStart, nextDay time.Time) bool {
	return !t.Before(dayStart) && t.Before(nextDay)
}
