package storetest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/stretchr/testify/require"
)

// SampleRecord is a fully populated record with millisecond timestamps.
func SampleRecord() credstore.Record {
	now := time.UnixMilli(time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC).UnixMilli())
	return credstore.Record{
		AccessToken:    "access-1",
		RefreshToken:   "refresh-1",
		User:           json.RawMessage(`{"id":"u-1","email":"admin@crec.edu","role":"admin"}`),
		ExpiresAt:      now.Add(30 * time.Minute),
		LastActivityAt: now,
	}
}

func RequireRecordEqual(t *testing.T, want, got credstore.Record) {
	t.Helper()
	require.Equal(t, want.AccessToken, got.AccessToken)
	require.Equal(t, want.RefreshToken, got.RefreshToken)
	require.JSONEq(t, string(want.User), string(got.User))
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt), "expiresAt %v != %v", want.ExpiresAt, got.ExpiresAt)
	require.True(t, want.LastActivityAt.Equal(got.LastActivityAt), "lastActivity %v != %v", want.LastActivityAt, got.LastActivityAt)
	require.Empty(t, got.Corrupt)
}
