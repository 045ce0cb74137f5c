package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDevices_NoFilter(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	rows := newMockRows(func(dest ...any) error {
		setString(dest[0], "dev-1")
		setStringPtr(dest[1], "Office NAS")
		setInt64Ptr(dest[11], 500)
		setInt64Ptr(dest[12], 1000)
		return nil
	})
	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return !strings.Contains(sql, "WHERE")
	}), mock.Anything).Return(rows, nil)

	devices, err := s.Devices(ctx, "")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-1", devices[0].DeviceID)
	assert.Equal(t, "Office NAS", devices[0].Name())
	assert.EqualValues(t, 500, *devices[0].StorageUsedBytes)
	db.AssertExpectations(t)
}

func TestDevices_ClientFilter(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "client_id = $1")
	}), []any{"client-1"}).Return(newEmptyMockRows(), nil)

	devices, err := s.Devices(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, devices)
	db.AssertExpectations(t)
}

func TestBackupsInWindow_JoinsAgentsForClientFilter(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "JOIN agents")
	}), []any{"client-1", "2025-01-01T00:00:00Z", "2025-01-31T23:59:59Z"}).
		Return(newEmptyMockRows(), nil)

	backups, err := s.BackupsInWindow(ctx, "2025-01-01T00:00:00Z", "2025-01-31T23:59:59Z", "client-1")
	require.NoError(t, err)
	assert.Empty(t, backups)
	db.AssertExpectations(t)
}

func TestBackupsInWindow_ScansRows(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			setString(dest[0], "bk-1")
			setStringPtr(dest[1], "agent-1")
			setStringPtr(dest[2], "2025-01-02T03:04:05Z")
			setString(dest[4], "succeeded")
			return nil
		},
		func(dest ...any) error {
			setString(dest[0], "bk-2")
			setStringPtr(dest[1], "agent-1")
			setString(dest[4], "failed")
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	backups, err := s.BackupsInWindow(ctx, "2025-01-01T00:00:00Z", "2025-01-31T23:59:59Z", "")
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "succeeded", backups[0].Status)
	assert.Equal(t, "failed", backups[1].Status)
	db.AssertExpectations(t)
}

func TestLastSuccessfulBackups_KeysByAgent(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			setString(dest[0], "bk-1")
			setStringPtr(dest[1], "agent-1")
			setString(dest[4], "succeeded")
			return nil
		},
		func(dest ...any) error {
			setString(dest[0], "bk-2")
			setStringPtr(dest[1], "agent-2")
			setString(dest[4], "succeeded")
			return nil
		},
	)
	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "DISTINCT ON")
	}), mock.Anything).Return(rows, nil)

	byAgent, err := s.LastSuccessfulBackups(ctx, "")
	require.NoError(t, err)
	require.Len(t, byAgent, 2)
	assert.Equal(t, "bk-1", byAgent["agent-1"].BackupID)
	assert.Equal(t, "bk-2", byAgent["agent-2"].BackupID)
	db.AssertExpectations(t)
}

func TestAuditsInWindow_PassesLimit(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"),
		[]any{"2025-01-01T00:00:00Z", "2025-01-31T23:59:59Z", 100}).
		Return(newEmptyMockRows(), nil)

	audits, err := s.AuditsInWindow(ctx, "2025-01-01T00:00:00Z", "2025-01-31T23:59:59Z", "", 100)
	require.NoError(t, err)
	assert.Empty(t, audits)
	db.AssertExpectations(t)
}

func TestSnapshots_QueryError(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("db down"))

	_, err := s.Snapshots(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list all snapshots")
	db.AssertExpectations(t)
}

func TestPreference_FallbackOnMissing(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"timezone"}).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			return errNoRows{}
		}})

	// pgx.ErrNoRows is matched via errors.Is; plain errors propagate.
	_, err := s.Preference(ctx, "timezone", "America/New_York")
	require.Error(t, err)
}

func TestPreference_ReturnsValue(t *testing.T) {
	db := &mockDB{}
	s := New(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"timezone"}).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			setString(dest[0], "Europe/Oslo")
			return nil
		}})

	value, err := s.Preference(ctx, "timezone", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Oslo", value)
}

type errNoRows struct{}

func (errNoRows) Error() string { return "scan error" }
