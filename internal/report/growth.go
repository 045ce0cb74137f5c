package report

import (
	"github.com/amcchord/slideReports/internal/model"
)

// StorageGrowth describes capacity change across the window. The data
// model carries no storage history, so the start value for a device
// that ran backups in the window is estimated at 85% of its current
// usage. The estimate is approximate and labeled as such in templates.
type StorageGrowth struct {
	StartBytes      int64   `json:"start_bytes"`
	EndBytes        int64   `json:"end_bytes"`
	StartFormatted  string  `json:"start_formatted"`
	EndFormatted    string  `json:"end_formatted"`
	GrowthBytes     int64   `json:"growth_bytes"`
	GrowthFormatted string  `json:"growth_formatted"`
	GrowthPercent   Percent `json:"growth_percent"`
	IsGrowth        bool    `json:"is_growth"`
}

// DeviceGrowthRow is per-device growth for display.
type DeviceGrowthRow struct {
	DeviceName      string  `json:"device_name"`
	StartBytes      int64   `json:"start_bytes"`
	EndBytes        int64   `json:"end_bytes"`
	StartFormatted  string  `json:"start_formatted"`
	EndFormatted    string  `json:"end_formatted"`
	GrowthBytes     int64   `json:"growth_bytes"`
	GrowthFormatted string  `json:"growth_formatted"`
	GrowthPercent   Percent `json:"growth_percent"`
	IsGrowth        bool    `json:"is_growth"`
}

// GrowthMetrics bundles the aggregate and per-device growth rows.
type GrowthMetrics struct {
	StorageGrowth       StorageGrowth     `json:"storage_growth"`
	DeviceStorageGrowth []DeviceGrowthRow `json:"device_storage_growth"`
}

// CalculateStorageGrowth estimates storage growth per device and in
// aggregate. Devices with no backups in the window are treated as
// flat.
func CalculateStorageGrowth(devices []model.Device, agents []model.Agent, backups []model.Backup) GrowthMetrics {
	backupCountByAgent := map[string]int{}
	for _, b := range backups {
		backupCountByAgent[derefStr(b.AgentID)]++
	}

	m := GrowthMetrics{DeviceStorageGrowth: []DeviceGrowthRow{}}
	var overallStart, overallEnd int64

	for _, device := range devices {
		used := derefInt64(device.StorageUsedBytes)
		start := used

		if used > 0 {
			for _, agent := range agents {
				if derefStr(agent.DeviceID) != device.DeviceID {
					continue
				}
				if backupCountByAgent[agent.AgentID] > 0 {
					start = int64(float64(used) * 0.85)
					break
				}
			}
		}

		growth := used - start
		percent := 0.0
		if start > 0 {
			percent = round1(float64(growth) / float64(start) * 100)
		}

		overallStart += start
		overallEnd += used

		m.DeviceStorageGrowth = append(m.DeviceStorageGrowth, DeviceGrowthRow{
			DeviceName:      device.Name(),
			StartBytes:      start,
			EndBytes:        used,
			StartFormatted:  FormatBytes(start),
			EndFormatted:    FormatBytes(used),
			GrowthBytes:     growth,
			GrowthFormatted: FormatBytes(abs64(growth)),
			GrowthPercent:   Percent(percent),
			IsGrowth:        growth >= 0,
		})
	}

	overallGrowth := overallEnd - overallStart
	overallPercent := 0.0
	if overallStart > 0 {
		overallPercent = round1(float64(overallGrowth) / float64(overallStart) * 100)
	}
	m.StorageGrowth = StorageGrowth{
		StartBytes:      overallStart,
		EndBytes:        overallEnd,
		StartFormatted:  FormatBytes(overallStart),
		EndFormatted:    FormatBytes(overallEnd),
		GrowthBytes:     overallGrowth,
		GrowthFormatted: FormatBytes(abs64(overallGrowth)),
		GrowthPercent:   Percent(overallPercent),
		IsGrowth:        overallGrowth >= 0,
	}
	return m
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
