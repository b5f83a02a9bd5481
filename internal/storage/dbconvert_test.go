package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsEncoding(t *testing.T) {
	s, err := marshalPermissions(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	perms, err := unmarshalPermissions(`["read","admin"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "admin"}, perms)

	perms, err = unmarshalPermissions("")
	require.NoError(t, err)
	assert.Empty(t, perms)

	_, err = unmarshalPermissions("{")
	assert.Error(t, err)
}

func TestEpochMillis(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 123_456_789, time.UTC)
	assert.Equal(t, ts.Truncate(time.Millisecond), fromEpochMillis(toEpochMillis(ts)))

	// zero time is replaced with now rather than stored as year 1
	assert.Greater(t, toEpochMillis(time.Time{}), int64(0))
}

func TestPgTextHelpers(t *testing.T) {
	assert.False(t, stringToPgText("").Valid)
	assert.Equal(t, "utm", pgTextToString(stringToPgText("utm")))
	assert.True(t, timeToPgTimestamptz(time.Time{}).Valid)
}
