package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultSummary builds the deterministic executive summary used when
// no AI collaborator is configured or its call fails. Sections whose
// data source is excluded from the report are skipped.
func DefaultSummary(showBackups, showSnapshots, showAlerts bool,
	backups BackupMetrics, snapshots SnapshotMetrics, alerts AlertMetrics) string {

	var parts []string

	if showBackups {
		rate := "0"
		if backups.TotalBackups > 0 {
			rate = formatRate(float64(backups.SuccessRate))
		}
		parts = append(parts, fmt.Sprintf(
			"During this reporting period, %d backups were executed achieving a %s%% success rate",
			backups.TotalBackups, rate))
	}

	if showSnapshots {
		parts = append(parts, fmt.Sprintf(
			"with %d active snapshots maintained across local and cloud storage locations",
			snapshots.ActiveSnapshots))
	}

	if showAlerts {
		if alerts.UnresolvedAlerts > 0 {
			parts = append(parts, fmt.Sprintf(
				"There are %d unresolved alerts requiring attention", alerts.UnresolvedAlerts))
		} else {
			parts = append(parts, "All alerts have been resolved")
		}
	}

	if len(parts) == 0 {
		return "No data available for the selected reporting period."
	}
	summary := strings.Join(parts, ". ") + "."
	return strings.ReplaceAll(summary, "..", ".")
}

// formatRate renders a percentage the way templates expect: one
// decimal place for whole values, the shortest exact form otherwise.
func formatRate(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
