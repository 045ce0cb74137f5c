package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/amcchord/slideReports/internal/model"
)

// Devices lists devices, optionally scoped to one client.
func (s *Store) Devices(ctx context.Context, clientID string) ([]model.Device, error) {
	query := `SELECT device_id, display_name, hostname, last_seen_at, ip_addresses, public_ip_address,
		image_version, package_version, serial_number, hardware_model_name, service_status,
		storage_used_bytes, storage_total_bytes, client_id, raw_json FROM devices`
	args := []any{}
	if clientID != "" {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY device_id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		var raw []byte
		if err := rows.Scan(&d.DeviceID, &d.DisplayName, &d.Hostname, &d.LastSeenAt, &d.IPAddresses,
			&d.PublicIPAddress, &d.ImageVersion, &d.PackageVersion, &d.SerialNumber,
			&d.HardwareModelName, &d.ServiceStatus, &d.StorageUsedBytes, &d.StorageTotalBytes,
			&d.ClientID, &raw); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		d.Raw = decodeRaw(raw)
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

// Agents lists agents, optionally scoped to one client.
func (s *Store) Agents(ctx context.Context, clientID string) ([]model.Agent, error) {
	query := `SELECT agent_id, device_id, display_name, hostname, os, os_version, platform,
		agent_version, encryption_algorithm, ip_addresses, last_seen_at, client_id, raw_json FROM agents`
	args := []any{}
	if clientID != "" {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY agent_id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

func scanAgents(rows pgx.Rows) ([]model.Agent, error) {
	var agents []model.Agent
	for rows.Next() {
		var a model.Agent
		var raw []byte
		if err := rows.Scan(&a.AgentID, &a.DeviceID, &a.DisplayName, &a.Hostname, &a.OS,
			&a.OSVersion, &a.Platform, &a.AgentVersion, &a.EncryptionAlgorithm,
			&a.IPAddresses, &a.LastSeenAt, &a.ClientID, &raw); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.Raw = decodeRaw(raw)
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

// Clients lists clients, optionally restricted to one ID.
func (s *Store) Clients(ctx context.Context, clientID string) ([]model.Client, error) {
	query := `SELECT client_id, name, raw_json FROM clients`
	args := []any{}
	if clientID != "" {
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY client_id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		var raw []byte
		if err := rows.Scan(&c.ClientID, &c.Name, &raw); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Raw = decodeRaw(raw)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

const backupColumns = `backup_id, agent_id, started_at, ended_at, status, error_code, error_message, raw_json`

// BackupsInWindow lists backups whose start timestamp falls inside [start, end],
// newest first, optionally scoped to one client via the owning agent.
func (s *Store) BackupsInWindow(ctx context.Context, start, end, clientID string) ([]model.Backup, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT ` + columnsWithPrefix(backupColumns, "b.") + ` FROM backups b
			JOIN agents a ON b.agent_id = a.agent_id
			WHERE a.client_id = $1 AND b.started_at >= $2 AND b.started_at <= $3
			ORDER BY b.started_at DESC`
		args = []any{clientID, start, end}
	} else {
		query = `SELECT ` + backupColumns + ` FROM backups
			WHERE started_at >= $1 AND started_at <= $2
			ORDER BY started_at DESC`
		args = []any{start, end}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()
	return scanBackups(rows)
}

// LastSuccessfulBackups returns the most recent succeeded backup per agent,
// keyed by agent ID, optionally scoped to one client.
func (s *Store) LastSuccessfulBackups(ctx context.Context, clientID string) (map[string]model.Backup, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT DISTINCT ON (b.agent_id) ` + columnsWithPrefix(backupColumns, "b.") + `
			FROM backups b
			JOIN agents a ON b.agent_id = a.agent_id
			WHERE a.client_id = $1 AND b.status = 'succeeded'
			ORDER BY b.agent_id, b.started_at DESC`
		args = []any{clientID}
	} else {
		query = `SELECT DISTINCT ON (agent_id) ` + backupColumns + ` FROM backups
			WHERE status = 'succeeded'
			ORDER BY agent_id, started_at DESC`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list last successful backups: %w", err)
	}
	defer rows.Close()

	backups, err := scanBackups(rows)
	if err != nil {
		return nil, err
	}
	byAgent := make(map[string]model.Backup, len(backups))
	for _, b := range backups {
		if b.AgentID != nil {
			byAgent[*b.AgentID] = b
		}
	}
	return byAgent, nil
}

func scanBackups(rows pgx.Rows) ([]model.Backup, error) {
	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		var raw []byte
		if err := rows.Scan(&b.BackupID, &b.AgentID, &b.StartedAt, &b.EndedAt, &b.Status,
			&b.ErrorCode, &b.ErrorMessage, &raw); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		b.Raw = decodeRaw(raw)
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return backups, nil
}

const snapshotColumns = `snapshot_id, agent_id, backup_started_at, backup_ended_at, locations, deletions,
	deleted, verify_boot_status, verify_fs_status, verify_boot_screenshot_url, raw_json`

// SnapshotsInWindow lists snapshots whose backup start timestamp falls inside
// [start, end], newest first, optionally scoped to one client.
func (s *Store) SnapshotsInWindow(ctx context.Context, start, end, clientID string) ([]model.Snapshot, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT ` + columnsWithPrefix(snapshotColumns, "s.") + ` FROM snapshots s
			JOIN agents a ON s.agent_id = a.agent_id
			WHERE a.client_id = $1 AND s.backup_started_at >= $2 AND s.backup_started_at <= $3
			ORDER BY s.backup_started_at DESC`
		args = []any{clientID, start, end}
	} else {
		query = `SELECT ` + snapshotColumns + ` FROM snapshots
			WHERE backup_started_at >= $1 AND backup_started_at <= $2
			ORDER BY backup_started_at DESC`
		args = []any{start, end}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// Snapshots lists all snapshots regardless of window, newest first,
// optionally scoped to one client. Deletion state is not filtered here;
// the report classifier derives it from the deletions JSON.
func (s *Store) Snapshots(ctx context.Context, clientID string) ([]model.Snapshot, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT ` + columnsWithPrefix(snapshotColumns, "s.") + ` FROM snapshots s
			JOIN agents a ON s.agent_id = a.agent_id
			WHERE a.client_id = $1
			ORDER BY s.backup_started_at DESC`
		args = []any{clientID}
	} else {
		query = `SELECT ` + snapshotColumns + ` FROM snapshots ORDER BY backup_started_at DESC`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list all snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows pgx.Rows) ([]model.Snapshot, error) {
	var snapshots []model.Snapshot
	for rows.Next() {
		var sn model.Snapshot
		var raw []byte
		if err := rows.Scan(&sn.SnapshotID, &sn.AgentID, &sn.BackupStartedAt, &sn.BackupEndedAt,
			&sn.Locations, &sn.Deletions, &sn.Deleted, &sn.VerifyBootStatus, &sn.VerifyFSStatus,
			&sn.VerifyBootScreenshotURL, &raw); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sn.Raw = decodeRaw(raw)
		snapshots = append(snapshots, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// AlertsInWindow lists alerts created inside [start, end], optionally scoped
// to one client via the associated agent or device.
func (s *Store) AlertsInWindow(ctx context.Context, start, end, clientID string) ([]model.Alert, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT al.alert_id, al.alert_type, al.created_at, al.resolved, al.device_id, al.agent_id, al.raw_json
			FROM alerts al
			LEFT JOIN agents ag ON al.agent_id = ag.agent_id
			LEFT JOIN devices d ON al.device_id = d.device_id
			WHERE (ag.client_id = $1 OR d.client_id = $1)
			  AND al.created_at >= $2 AND al.created_at <= $3
			ORDER BY al.created_at DESC`
		args = []any{clientID, start, end}
	} else {
		query = `SELECT alert_id, alert_type, created_at, resolved, device_id, agent_id, raw_json
			FROM alerts
			WHERE created_at >= $1 AND created_at <= $2
			ORDER BY created_at DESC`
		args = []any{start, end}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var raw []byte
		if err := rows.Scan(&a.AlertID, &a.AlertType, &a.CreatedAt, &a.Resolved,
			&a.DeviceID, &a.AgentID, &raw); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Raw = decodeRaw(raw)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// AuditsInWindow lists the most recent audit entries inside [start, end],
// newest first, capped at limit.
func (s *Store) AuditsInWindow(ctx context.Context, start, end, clientID string, limit int) ([]model.AuditEntry, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT audit_id, audit_time, actor, action, resource_type, resource_id, client_id, raw_json
			FROM audits
			WHERE client_id = $1 AND audit_time >= $2 AND audit_time <= $3
			ORDER BY audit_time DESC LIMIT $4`
		args = []any{clientID, start, end, limit}
	} else {
		query = `SELECT audit_id, audit_time, actor, action, resource_type, resource_id, client_id, raw_json
			FROM audits
			WHERE audit_time >= $1 AND audit_time <= $2
			ORDER BY audit_time DESC LIMIT $3`
		args = []any{start, end, limit}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var audits []model.AuditEntry
	for rows.Next() {
		var a model.AuditEntry
		var raw []byte
		if err := rows.Scan(&a.AuditID, &a.AuditTime, &a.Actor, &a.Action,
			&a.ResourceType, &a.ResourceID, &a.ClientID, &raw); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		a.Raw = decodeRaw(raw)
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audits: %w", err)
	}
	return audits, nil
}

// VirtualMachines lists virtual machines, optionally scoped to one client via
// the owning agent.
func (s *Store) VirtualMachines(ctx context.Context, clientID string) ([]model.VirtualMachine, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT vm.virt_id, vm.agent_id, vm.snapshot_id, vm.state, vm.cpu_count, vm.memory_in_mb, vm.created_at, vm.raw_json
			FROM virtual_machines vm
			JOIN agents a ON vm.agent_id = a.agent_id
			WHERE a.client_id = $1
			ORDER BY vm.virt_id`
		args = []any{clientID}
	} else {
		query = `SELECT virt_id, agent_id, snapshot_id, state, cpu_count, memory_in_mb, created_at, raw_json
			FROM virtual_machines ORDER BY virt_id`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list virtual machines: %w", err)
	}
	defer rows.Close()

	var vms []model.VirtualMachine
	for rows.Next() {
		var vm model.VirtualMachine
		var raw []byte
		if err := rows.Scan(&vm.VirtID, &vm.AgentID, &vm.SnapshotID, &vm.State,
			&vm.CPUCount, &vm.MemoryInMB, &vm.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan virtual machine: %w", err)
		}
		vm.Raw = decodeRaw(raw)
		vms = append(vms, vm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate virtual machines: %w", err)
	}
	return vms, nil
}

// FileRestores lists file restores, optionally scoped to one client.
func (s *Store) FileRestores(ctx context.Context, clientID string) ([]model.FileRestore, error) {
	var query string
	var args []any
	if clientID != "" {
		query = `SELECT fr.file_restore_id, fr.agent_id, fr.snapshot_id, fr.created_at, fr.raw_json
			FROM file_restores fr
			JOIN agents a ON fr.agent_id = a.agent_id
			WHERE a.client_id = $1
			ORDER BY fr.file_restore_id`
		args = []any{clientID}
	} else {
		query = `SELECT file_restore_id, agent_id, snapshot_id, created_at, raw_json
			FROM file_restores ORDER BY file_restore_id`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list file restores: %w", err)
	}
	defer rows.Close()

	var restores []model.FileRestore
	for rows.Next() {
		var fr model.FileRestore
		var raw []byte
		if err := rows.Scan(&fr.FileRestoreID, &fr.AgentID, &fr.SnapshotID, &fr.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan file restore: %w", err)
		}
		fr.Raw = decodeRaw(raw)
		restores = append(restores, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file restores: %w", err)
	}
	return restores, nil
}
