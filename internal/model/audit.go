package model

// AuditEntry is a synced audit-log record.
type AuditEntry struct {
	AuditID      string         `json:"audit_id"`
	AuditTime    *string        `json:"audit_time"`
	Actor        *string        `json:"actor"`
	Action       string         `json:"action"`
	ResourceType *string        `json:"resource_type"`
	ResourceID   *string        `json:"resource_id"`
	ClientID     *string        `json:"client_id"`
	Raw          map[string]any `json:"-"`
}
