package model

// FileRestore is a synced file-level restore record.
type FileRestore struct {
	FileRestoreID string         `json:"file_restore_id"`
	AgentID       *string        `json:"agent_id"`
	SnapshotID    *string        `json:"snapshot_id"`
	CreatedAt     *string        `json:"created_at"`
	Raw           map[string]any `json:"-"`
}
