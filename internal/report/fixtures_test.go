package report

import (
	"github.com/amcchord/slideReports/internal/model"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func testAgent(id, deviceID, name string) model.Agent {
	a := model.Agent{AgentID: id, DisplayName: strPtr(name)}
	if deviceID != "" {
		a.DeviceID = strPtr(deviceID)
	}
	return a
}

func testBackup(id, agentID, startedAt, endedAt, status string) model.Backup {
	b := model.Backup{BackupID: id, AgentID: strPtr(agentID), Status: status}
	if startedAt != "" {
		b.StartedAt = strPtr(startedAt)
	}
	if endedAt != "" {
		b.EndedAt = strPtr(endedAt)
	}
	return b
}

func testSnapshot(id, agentID, backupStartedAt, locations string) model.Snapshot {
	s := model.Snapshot{SnapshotID: id, AgentID: strPtr(agentID)}
	if backupStartedAt != "" {
		s.BackupStartedAt = strPtr(backupStartedAt)
	}
	if locations != "" {
		s.Locations = strPtr(locations)
	}
	return s
}
