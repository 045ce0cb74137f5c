package model

// Device is a synced backup appliance record. Timestamp columns are kept as
// the ISO-8601 strings delivered by the upstream API; parsing happens at
// report time. Raw carries upstream fields that have no dedicated column.
type Device struct {
	DeviceID          string         `json:"device_id"`
	DisplayName       *string        `json:"display_name"`
	Hostname          *string        `json:"hostname"`
	LastSeenAt        *string        `json:"last_seen_at"`
	IPAddresses       *string        `json:"ip_addresses"`
	PublicIPAddress   *string        `json:"public_ip_address"`
	ImageVersion      *string        `json:"image_version"`
	PackageVersion    *string        `json:"package_version"`
	SerialNumber      *string        `json:"serial_number"`
	HardwareModelName *string        `json:"hardware_model_name"`
	ServiceStatus     *string        `json:"service_status"`
	StorageUsedBytes  *int64         `json:"storage_used_bytes"`
	StorageTotalBytes *int64         `json:"storage_total_bytes"`
	ClientID          *string        `json:"client_id"`
	Raw               map[string]any `json:"-"`
}

// Name returns the best available display name for the device.
func (d Device) Name() string {
	if d.DisplayName != nil && *d.DisplayName != "" {
		return *d.DisplayName
	}
	if d.Hostname != nil && *d.Hostname != "" {
		return *d.Hostname
	}
	return "Unknown"
}
