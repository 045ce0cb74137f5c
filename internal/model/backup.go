package model

const (
	BackupStatusSucceeded = "succeeded"
	BackupStatusFailed    = "failed"
	BackupStatusRunning   = "running"
)

// Backup is a synced backup job record.
type Backup struct {
	BackupID     string         `json:"backup_id"`
	AgentID      *string        `json:"agent_id"`
	StartedAt    *string        `json:"started_at"`
	EndedAt      *string        `json:"ended_at"`
	Status       string         `json:"status"`
	ErrorCode    *int64         `json:"error_code"`
	ErrorMessage *string        `json:"error_message"`
	Raw          map[string]any `json:"-"`
}
