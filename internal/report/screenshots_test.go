package report

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amcchord/slideReports/internal/model"
)

func screenshotSnapshot(id, agentID, startedAt, url string) model.Snapshot {
	s := testSnapshot(id, agentID, startedAt, "")
	if url != "" {
		s.VerifyBootScreenshotURL = strPtr(url)
	}
	return s
}

func TestFindLatestScreenshot(t *testing.T) {
	agents := []model.Agent{
		testAgent("ag-1", "dev-1", "web-01"),
		testAgent("ag-2", "dev-1", "db-01"),
	}
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-1", "ag-1", "2025-01-05T08:00:00Z", "https://img/old.png"),
		screenshotSnapshot("sn-2", "ag-2", "2025-01-10T08:00:00Z", "https://img/new.png"),
		screenshotSnapshot("sn-3", "ag-1", "2025-01-12T08:00:00Z", ""),
	}

	latest := FindLatestScreenshot(snapshots, agents, time.UTC)
	require.NotNil(t, latest)
	assert.Equal(t, "https://img/new.png", latest.URL)
	assert.Equal(t, "db-01", latest.AgentName)
	assert.Equal(t, "2025-01-10 08:00:00 UTC", latest.CapturedAt)
}

func TestFindLatestScreenshotNoneAvailable(t *testing.T) {
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-1", "ag-1", "2025-01-05T08:00:00Z", ""),
	}
	assert.Nil(t, FindLatestScreenshot(snapshots, nil, time.UTC))
}

func TestFindLatestScreenshotUnknownAgent(t *testing.T) {
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-1", "ag-missing", "2025-01-05T08:00:00Z", "https://img/a.png"),
	}
	latest := FindLatestScreenshot(snapshots, nil, time.UTC)
	require.NotNil(t, latest)
	assert.Equal(t, "Unknown", latest.AgentName)
}

func TestLatestScreenshotByAgent(t *testing.T) {
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-1", "ag-1", "2025-01-05T08:00:00Z", "https://img/ag1-old.png"),
		screenshotSnapshot("sn-2", "ag-1", "2025-01-09T08:00:00Z", "https://img/ag1-new.png"),
		screenshotSnapshot("sn-3", "ag-2", "2025-01-03T08:00:00Z", "https://img/ag2.png"),
		screenshotSnapshot("sn-4", "ag-2", "2025-01-04T08:00:00Z", ""),
	}

	byAgent := LatestScreenshotByAgent(snapshots)
	assert.Equal(t, map[string]string{
		"ag-1": "https://img/ag1-new.png",
		"ag-2": "https://img/ag2.png",
	}, byAgent)
}

func TestBuildAgentScreenshotPairs(t *testing.T) {
	agents := []model.Agent{
		testAgent("ag-1", "dev-1", "web-01"),
		testAgent("ag-2", "dev-1", "db-01"),
	}
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-aaaaaaaaaaaaaaaa", "ag-1", "2025-01-05T08:00:00Z", "https://img/oldest.png"),
		screenshotSnapshot("sn-2", "ag-1", "2025-01-07T08:00:00Z", "https://img/middle.png"),
		screenshotSnapshot("sn-3", "ag-1", "2025-01-09T08:00:00Z", "https://img/newest.png"),
	}

	pairs := BuildAgentScreenshotPairs(agents, snapshots, time.UTC)
	require.Len(t, pairs, 1)

	pair := pairs[0]
	assert.Equal(t, "web-01", pair.AgentName)
	assert.Equal(t, "ag-1", pair.AgentID)
	require.NotNil(t, pair.OldestScreenshot)
	require.NotNil(t, pair.NewestScreenshot)
	assert.Equal(t, "https://img/oldest.png", pair.OldestScreenshot.URL)
	assert.Equal(t, "https://img/newest.png", pair.NewestScreenshot.URL)
	assert.Equal(t, "2025-01-05 08:00:00 UTC", pair.OldestScreenshot.Date)
	assert.Equal(t, "2025-01-09 08:00:00 UTC", pair.NewestScreenshot.Date)
	assert.Equal(t, "sn-aaaaaaaaa", pair.OldestScreenshot.SnapshotID)
}

func TestBuildAgentScreenshotPairsSingleSnapshot(t *testing.T) {
	agents := []model.Agent{testAgent("ag-1", "dev-1", "web-01")}
	snapshots := []model.Snapshot{
		screenshotSnapshot("sn-1", "ag-1", "2025-01-05T08:00:00Z", "https://img/only.png"),
	}

	pairs := BuildAgentScreenshotPairs(agents, snapshots, time.UTC)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].OldestScreenshot)
	require.NotNil(t, pairs[0].NewestScreenshot)
	assert.Equal(t, pairs[0].OldestScreenshot.URL, pairs[0].NewestScreenshot.URL)
}

func TestBuildSnapshotAudit(t *testing.T) {
	agents := []model.Agent{
		testAgent("ag-1", "dev-1", "web-01"),
		testAgent("ag-2", "dev-1", "db-01"),
	}

	verified := testSnapshot("sn-1", "ag-1", "2025-01-09T08:00:00Z", `[{"type":"local"},{"type":"cloud"}]`)
	verified.VerifyBootStatus = strPtr("success")
	verified.VerifyFSStatus = strPtr("failed")
	verified.VerifyBootScreenshotURL = strPtr("https://img/sn-1.png")

	localOnly := testSnapshot("sn-2", "ag-1", "2025-01-07T08:00:00Z", `[{"type":"local"}]`)

	// Present in no location, must not produce a row.
	gone := testSnapshot("sn-3", "ag-1", "", "")

	groups := BuildSnapshotAudit(agents, []model.Snapshot{verified, localOnly, gone}, time.UTC, zerolog.Nop())
	require.Len(t, groups, 1)

	group := groups[0]
	assert.Equal(t, "web-01", group.AgentName)
	require.Len(t, group.Snapshots, 2)

	first := group.Snapshots[0]
	assert.Equal(t, "2025-01-09 08:00:00 UTC", first.DateFormatted)
	assert.True(t, first.LocationLocal)
	assert.True(t, first.LocationCloud)
	assert.True(t, first.VerifyBootPassed)
	assert.False(t, first.VerifyFSPassed)
	assert.Equal(t, "https://img/sn-1.png", first.ScreenshotURL)

	second := group.Snapshots[1]
	assert.True(t, second.LocationLocal)
	assert.False(t, second.LocationCloud)
	assert.False(t, second.VerifyBootPassed)
}

func TestBuildSnapshotAuditMalformedLocations(t *testing.T) {
	agents := []model.Agent{testAgent("ag-1", "dev-1", "web-01")}
	broken := testSnapshot("sn-1", "ag-1", "2025-01-09T08:00:00Z", "{not json")

	groups := BuildSnapshotAudit(agents, []model.Snapshot{broken}, time.UTC, zerolog.Nop())
	assert.Empty(t, groups)
}

func TestBuildAgentSnapshotTotals(t *testing.T) {
	agents := []model.Agent{
		testAgent("ag-1", "dev-1", "web-01"),
		testAgent("ag-2", "dev-1", "db-01"),
	}

	deleted := testSnapshot("sn-3", "ag-1", "", `[{"type":"local"}]`)
	deleted.Deletions = strPtr(`[{"type":"retention"}]`)

	snapshots := []model.Snapshot{
		testSnapshot("sn-1", "ag-1", "", `[{"type":"local"},{"type":"cloud"}]`),
		testSnapshot("sn-2", "ag-1", "", `[{"type":"cloud"}]`),
		deleted,
		testSnapshot("sn-4", "ag-2", "", `[{"type":"local"}]`),
	}

	totals := BuildAgentSnapshotTotals(agents, snapshots, zerolog.Nop())
	require.Len(t, totals, 2)
	assert.Equal(t, AgentSnapshotTotals{AgentName: "web-01", LocalCount: 1, CloudCount: 2}, totals[0])
	assert.Equal(t, AgentSnapshotTotals{AgentName: "db-01", LocalCount: 1, CloudCount: 0}, totals[1])
}
