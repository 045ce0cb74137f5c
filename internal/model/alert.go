package model

// Alert is a synced alert record associated with a device or agent.
type Alert struct {
	AlertID   string         `json:"alert_id"`
	AlertType *string        `json:"alert_type"`
	CreatedAt *string        `json:"created_at"`
	Resolved  bool           `json:"resolved"`
	DeviceID  *string        `json:"device_id"`
	AgentID   *string        `json:"agent_id"`
	Raw       map[string]any `json:"-"`
}
