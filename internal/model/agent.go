package model

// Agent is a synced protected-machine record attached to a device.
type Agent struct {
	AgentID             string         `json:"agent_id"`
	DeviceID            *string        `json:"device_id"`
	DisplayName         *string        `json:"display_name"`
	Hostname            *string        `json:"hostname"`
	OS                  *string        `json:"os"`
	OSVersion           *string        `json:"os_version"`
	Platform            *string        `json:"platform"`
	AgentVersion        *string        `json:"agent_version"`
	EncryptionAlgorithm *string        `json:"encryption_algorithm"`
	IPAddresses         *string        `json:"ip_addresses"`
	LastSeenAt          *string        `json:"last_seen_at"`
	ClientID            *string        `json:"client_id"`
	Raw                 map[string]any `json:"-"`
}

// Name returns the best available display name for the agent.
func (a Agent) Name() string {
	if a.DisplayName != nil && *a.DisplayName != "" {
		return *a.DisplayName
	}
	if a.Hostname != nil && *a.Hostname != "" {
		return *a.Hostname
	}
	return a.AgentID
}

// OSComposite returns "os os_version" when both fields are present,
// otherwise "". Used as one outlier-detection dimension.
func (a Agent) OSComposite() string {
	if a.OS == nil || *a.OS == "" || a.OSVersion == nil || *a.OSVersion == "" {
		return ""
	}
	return *a.OS + " " + *a.OSVersion
}
