package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ROLE_USER, u.Role)
	assert.Equal(t, STATUS_INACTIVE, u.Status)
	assert.False(t, u.IsActive())
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestActivateConsumesToken(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, u.GenerateActivationToken())
	require.False(t, u.IsActive())

	u.Activate()

	assert.True(t, u.IsActive())
	assert.Empty(t, u.ActivationToken)
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("al", "alice@example.com", "secret123")
	assert.Error(t, err, "name too short")

	_, err = CreateUser("alice", "not-an-email", "secret123")
	assert.Error(t, err)
}

func TestSetPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("newpassword"))
	assert.True(t, u.CheckPassword("newpassword"))
}

func TestGenerateActivationToken(t *testing.T) {
	u := &User{}
	require.NoError(t, u.GenerateActivationToken())
	assert.Len(t, u.ActivationToken, 32)
	assert.NotNil(t, u.ActivationSentAt)
}
