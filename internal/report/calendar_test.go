package report

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amcchord/slideReports/internal/model"
)

func weekWindow() Window {
	// Thursday Jan 2 through Wednesday Jan 8, 2025.
	return Window{
		Start: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 23, 59, 59, 0, time.UTC),
	}
}

func TestBuildAgentCalendars_CoversEveryDay(t *testing.T) {
	agents := []model.Agent{testAgent("agent_1", "", "web-01")}

	cals := BuildAgentCalendars(agents, nil, nil, weekWindow(), time.UTC, zerolog.Nop())

	require.Len(t, cals, 1)
	grid := cals[0].CalendarGrid

	// Jan 2 2025 is a Thursday, so four placeholder cells precede it.
	require.Len(t, grid, 4+7)
	for i := 0; i < 4; i++ {
		assert.Empty(t, grid[i].Date)
		assert.Equal(t, "none", grid[i].BackupStatus)
	}
	assert.Equal(t, "2025-01-02", grid[4].Date)
	assert.Equal(t, "Thu", grid[4].DayOfWeek)
	assert.Equal(t, "2025-01-08", grid[len(grid)-1].Date)
}

func TestBuildAgentCalendars_FirstRealCellStartsRowOnSunday(t *testing.T) {
	for day := 1; day <= 7; day++ {
		w := Window{
			Start: time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, day+3, 0, 0, 0, 0, time.UTC),
		}
		cals := BuildAgentCalendars([]model.Agent{testAgent("a", "", "a")}, nil, nil, w, time.UTC, zerolog.Nop())
		grid := cals[0].CalendarGrid

		padding := 0
		for padding < len(grid) && grid[padding].Date == "" {
			padding++
		}
		assert.Less(t, padding, 7)

		first, err := time.Parse("2006-01-02", grid[padding].Date)
		require.NoError(t, err)
		assert.Equal(t, padding, int(first.Weekday()))
	}
}

func TestBuildAgentCalendars_BackupStatusAndColor(t *testing.T) {
	agents := []model.Agent{testAgent("agent_1", "", "web-01")}
	backups := []model.Backup{
		// Jan 2: all succeeded.
		testBackup("b1", "agent_1", "2025-01-02T08:00:00Z", "", model.BackupStatusSucceeded),
		testBackup("b2", "agent_1", "2025-01-02T20:00:00Z", "", model.BackupStatusSucceeded),
		// Jan 3: one of two failed.
		testBackup("b3", "agent_1", "2025-01-03T08:00:00Z", "", model.BackupStatusSucceeded),
		testBackup("b4", "agent_1", "2025-01-03T20:00:00Z", "", model.BackupStatusFailed),
		// Jan 4: two failed.
		testBackup("b5", "agent_1", "2025-01-04T08:00:00Z", "", model.BackupStatusFailed),
		testBackup("b6", "agent_1", "2025-01-04T20:00:00Z", "", model.BackupStatusFailed),
		// Belongs to another agent, must not be counted.
		testBackup("b7", "agent_2", "2025-01-02T08:00:00Z", "", model.BackupStatusFailed),
	}

	cals := BuildAgentCalendars(agents, backups, nil, weekWindow(), time.UTC, zerolog.Nop())
	grid := cals[0].CalendarGrid[4:]

	jan2 := grid[0]
	assert.Equal(t, "success", jan2.BackupStatus)
	assert.Equal(t, "green", jan2.CompletionColor)
	assert.Equal(t, "2/2", jan2.CompletionRatio)

	jan3 := grid[1]
	assert.Equal(t, "failed", jan3.BackupStatus)
	assert.Equal(t, "yellow", jan3.CompletionColor)
	assert.Equal(t, "1/2", jan3.CompletionRatio)

	jan4 := grid[2]
	assert.Equal(t, "failed", jan4.BackupStatus)
	assert.Equal(t, "red", jan4.CompletionColor)

	jan5 := grid[3]
	assert.Equal(t, "none", jan5.BackupStatus)
	assert.Equal(t, "-", jan5.CompletionRatio)
}

func TestBuildAgentCalendars_SnapshotLocations(t *testing.T) {
	agents := []model.Agent{testAgent("agent_1", "", "web-01")}
	snapshots := []model.Snapshot{
		testSnapshot("s1", "agent_1", "2025-01-02T08:00:00Z", `[{"type":"local"}]`),
		testSnapshot("s2", "agent_1", "2025-01-02T12:00:00Z", `[{"type":"cloud"}]`),
		testSnapshot("s3", "agent_1", "2025-01-03T08:00:00Z", `[{"type":"local"},{"type":"cloud"}]`),
	}

	cals := BuildAgentCalendars(agents, nil, snapshots, weekWindow(), time.UTC, zerolog.Nop())
	grid := cals[0].CalendarGrid[4:]

	jan2 := grid[0]
	assert.True(t, jan2.HasSnapshot)
	assert.Equal(t, 2, jan2.SnapshotsCreated)
	assert.Equal(t, "LC", jan2.SnapshotLocationDisplay)

	jan3 := grid[1]
	assert.Equal(t, 1, jan3.SnapshotLocationBoth)
	assert.Equal(t, "LC", jan3.SnapshotLocationDisplay)
}

func TestBuildAgentCalendars_TimezoneShiftsDayBucket(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	agents := []model.Agent{testAgent("agent_1", "", "web-01")}
	// 02:00 UTC on Jan 3 is still Jan 2 in New York.
	backups := []model.Backup{
		testBackup("b1", "agent_1", "2025-01-03T02:00:00Z", "", model.BackupStatusSucceeded),
	}

	cals := BuildAgentCalendars(agents, backups, nil, weekWindow(), ny, zerolog.Nop())

	var jan2, jan3 CalendarDay
	for _, cell := range cals[0].CalendarGrid {
		switch cell.Date {
		case "2025-01-02":
			jan2 = cell
		case "2025-01-03":
			jan3 = cell
		}
	}
	assert.Equal(t, 1, jan2.TotalBackups)
	assert.Equal(t, 0, jan3.TotalBackups)
}
