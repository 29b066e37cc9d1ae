package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}

	raw, err := us.IssueAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "sfx_"))
	assert.Equal(t, raw[:16], us.APIKeyPrefix)
	assert.Equal(t, HashAPIKey(raw), us.APIKeyHash)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyRevokedAt)
	assert.True(t, us.HasActiveAPIKey())

	// A second issue replaces the first key.
	raw2, err := us.IssueAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.Equal(t, HashAPIKey(raw2), us.APIKeyHash)
}

func TestRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()

	assert.Empty(t, us.APIKeyHash)
	assert.Empty(t, us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyRevokedAt)
	assert.False(t, us.HasActiveAPIKey())
}

func TestTouchAPIKeyUsage(t *testing.T) {
	us := &UserSettings{UserID: 1}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)
	require.Nil(t, us.APIKeyLastUsedAt)

	us.TouchAPIKeyUsage()

	assert.NotNil(t, us.APIKeyLastUsedAt)
}

func TestHashAPIKeyIgnoresSurroundingWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("sfx_abc"), HashAPIKey("  sfx_abc \n"))
	assert.Len(t, HashAPIKey("anything"), 64)
}
