package model

const (
	VMStateRunning = "running"
	VMStateStopped = "stopped"
)

// VirtualMachine is a synced virtualization record.
type VirtualMachine struct {
	VirtID     string         `json:"virt_id"`
	AgentID    *string        `json:"agent_id"`
	SnapshotID *string        `json:"snapshot_id"`
	State      string         `json:"state"`
	CPUCount   *int64         `json:"cpu_count"`
	MemoryInMB *int64         `json:"memory_in_mb"`
	CreatedAt  *string        `json:"created_at"`
	Raw        map[string]any `json:"-"`
}
