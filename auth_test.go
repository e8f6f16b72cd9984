package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	a := NewAuth(nil)

	hash, err := a.HashPassword("")
	require.NoError(t, err)
	assert.Empty(t, hash, "open rooms keep an empty hash")

	hash, err = a.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	_, err = a.HashPassword(strings.Repeat("x", 65))
	assert.Error(t, err)
}

func TestCheckJoin(t *testing.T) {
	a := NewAuth(nil)
	hash, err := a.HashPassword("secret")
	require.NoError(t, err)

	assert.NoError(t, a.CheckJoin("", "", "", "ROOM01", "1.1.1.1"), "open room")
	assert.NoError(t, a.CheckJoin(hash, "secret", "", "ROOM01", "1.1.1.1"))
	assert.ErrorIs(t, a.CheckJoin(hash, "nope", "", "ROOM01", "1.1.1.1"), ErrWrongPassword)
}

func TestInviteBypassesPassword(t *testing.T) {
	a := NewAuth(nil)
	hash, err := a.HashPassword("secret")
	require.NoError(t, err)

	token, err := a.IssueInvite("ROOM01")
	require.NoError(t, err)

	assert.NoError(t, a.ValidateInvite(token, "ROOM01"))
	assert.NoError(t, a.CheckJoin(hash, "", token, "ROOM01", "2.2.2.2"))

	assert.ErrorIs(t, a.ValidateInvite(token, "OTHER1"), ErrBadInvite)
	assert.ErrorIs(t, a.CheckJoin(hash, "", token, "OTHER1", "2.2.2.2"), ErrWrongPassword)

	other := NewAuth(nil)
	assert.ErrorIs(t, other.ValidateInvite(token, "ROOM01"), ErrBadInvite, "foreign secret")
	assert.ErrorIs(t, a.ValidateInvite("not-a-token", "ROOM01"), ErrBadInvite)
}

func TestInviteSecretSurvivesRestart(t *testing.T) {
	db := openTestDB(t)

	token, err := NewAuth(db).IssueInvite("ROOM01")
	require.NoError(t, err)
	assert.NoError(t, NewAuth(db).ValidateInvite(token, "ROOM01"))
}

func TestJoinRateLimit(t *testing.T) {
	a := NewAuth(nil)
	hash, err := a.HashPassword("secret")
	require.NoError(t, err)

	for i := 0; i < maxJoinAttempts; i++ {
		assert.ErrorIs(t, a.CheckJoin(hash, "bad", "", "ROOM01", "3.3.3.3"), ErrWrongPassword)
	}
	assert.ErrorIs(t, a.CheckJoin(hash, "secret", "", "ROOM01", "3.3.3.3"), ErrJoinRate)
	assert.NoError(t, a.CheckJoin(hash, "secret", "", "ROOM01", "4.4.4.4"), "other addresses are unaffected")
}
