package model

// Snapshot is a synced recovery-point record. Locations and Deletions hold
// raw JSON arrays describing where the snapshot exists and how copies were
// deleted; the report engine re-derives boolean facets from them at render
// time instead of trusting any precomputed columns.
type Snapshot struct {
	SnapshotID              string         `json:"snapshot_id"`
	AgentID                 *string        `json:"agent_id"`
	BackupStartedAt         *string        `json:"backup_started_at"`
	BackupEndedAt           *string        `json:"backup_ended_at"`
	Locations               *string        `json:"locations"`
	Deletions               *string        `json:"deletions"`
	Deleted                 *string        `json:"deleted"`
	VerifyBootStatus        *string        `json:"verify_boot_status"`
	VerifyFSStatus          *string        `json:"verify_fs_status"`
	VerifyBootScreenshotURL *string        `json:"verify_boot_screenshot_url"`
	Raw                     map[string]any `json:"-"`
}

// ScreenshotURL returns the boot verification screenshot URL or "".
func (s Snapshot) ScreenshotURL() string {
	if s.VerifyBootScreenshotURL == nil {
		return ""
	}
	return *s.VerifyBootScreenshotURL
}
