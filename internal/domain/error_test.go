package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := E(CodeTimeout, "execute", "deadline 1s elapsed", nil)

	require.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrSpawnFailed)
	assert.Equal(t, "execute: TIMEOUT: deadline 1s elapsed", err.Error())
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := E(CodeNotFound, "", "task 7", nil)
	wrapped := Wrap(CodeStoreUnavailable, "update task", inner)

	assert.Equal(t, CodeNotFound, wrapped.Code)
	assert.Equal(t, "update task", wrapped.Op)
	require.ErrorIs(t, wrapped, ErrNotFound)
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, "op", nil))
}

func TestCodeFromSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{fmt.Errorf("lookup: %w", ErrExecutableNotFound), CodeSpawnFailed},
		{ErrPermissionDenied, CodeSpawnFailed},
		{ErrPathIgnored, CodeInvalidRequest},
		{fmt.Errorf("wrapped: %w", ErrUnknownGroup), CodeUnknownGroup},
		{context.Canceled, CodeCanceled},
	}
	for _, tc := range cases {
		got, ok := CodeFrom(tc.err)
		require.True(t, ok, tc.err.Error())
		assert.Equal(t, tc.want, got)
	}

	_, ok := CodeFrom(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithMetaCopies(t *testing.T) {
	base := E(CodeSpawnFailed, "spawn", "", ErrExecutableNotFound)
	tagged := base.WithMeta("tool", "eza")

	assert.Empty(t, base.Meta)
	assert.Equal(t, "eza", tagged.Meta["tool"])
	require.ErrorIs(t, tagged, ErrExecutableNotFound)
}

func TestParseContextScope(t *testing.T) {
	scope, err := ParseContextScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, scope)

	scope, err = ParseContextScope(" Project ")
	require.NoError(t, err)
	assert.Equal(t, ScopeProject, scope)

	_, err = ParseContextScope("planet")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCacheEntryExpiry(t *testing.T) {
	stored := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := CacheEntry{StoredAt: stored, TTL: 0}
	assert.False(t, entry.Expired(stored.AddDate(10, 0, 0)))

	entry.TTL = 10 * time.Second
	assert.False(t, entry.Expired(stored.Add(10*time.Second-time.Nanosecond)))
	assert.True(t, entry.Expired(stored.Add(10*time.Second)))
	assert.True(t, entry.Expired(stored.Add(11*time.Second)))
}
