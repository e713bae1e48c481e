package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := newTokenIssuer("secret", "songquiz", time.Hour)

	token, err := issuer.issue("alice")
	require.NoError(t, err)

	subject, err := issuer.verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := newTokenIssuer("secret", "songquiz", time.Hour).issue("alice")
	require.NoError(t, err)

	_, err = newTokenIssuer("other", "songquiz", time.Hour).verify(token)
	assert.Error(t, err)
}

func TestTokenWrongIssuer(t *testing.T) {
	token, err := newTokenIssuer("secret", "someone-else", time.Hour).issue("alice")
	require.NoError(t, err)

	_, err = newTokenIssuer("secret", "songquiz", time.Hour).verify(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	issuer := newTokenIssuer("secret", "songquiz", -time.Minute)

	token, err := issuer.issue("alice")
	require.NoError(t, err)

	_, err = issuer.verify(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := newTokenIssuer("secret", "songquiz", time.Hour).verify("not-a-token")
	assert.Error(t, err)
}
