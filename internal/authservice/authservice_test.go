package authservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetToken(t *testing.T) {
	s := New(time.Minute)

	token, err := s.CreateToken("nb/login", "payload-1", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	v, ok := s.GetToken("nb/login", token)
	require.True(t, ok)
	assert.Equal(t, "payload-1", v)

	// GetToken does not consume it.
	v, ok = s.GetToken("nb/login", token)
	require.True(t, ok)
	assert.Equal(t, "payload-1", v)
}

func TestPopTokenIsSingleUse(t *testing.T) {
	s := New(time.Minute)
	token, err := s.CreateToken("sb/xfr", "payload", time.Minute)
	require.NoError(t, err)

	v, ok := s.PopToken("sb/xfr", token)
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	v, ok = s.PopToken("sb/xfr", token)
	assert.False(t, ok)
	assert.Nil(t, v)

	// GetToken agrees it's gone too.
	_, ok = s.GetToken("sb/xfr", token)
	assert.False(t, ok)
}

func TestTokensAreNamespacedByPurpose(t *testing.T) {
	s := New(time.Minute)
	token, err := s.CreateToken("sb/cal", "a", time.Minute)
	require.NoError(t, err)

	// The same token string minted under a different purpose must not
	// resolve; purposes are part of the cache key.
	_, ok := s.GetToken("sb/xfr", token)
	assert.False(t, ok)

	v, ok := s.GetToken("sb/cal", token)
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestTokenExpires(t *testing.T) {
	s := New(time.Minute)
	token, err := s.CreateToken("nb/login", "payload", 20*time.Millisecond)
	require.NoError(t, err)

	_, ok := s.GetTokenExpiry("nb/login", token)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = s.GetToken("nb/login", token)
	assert.False(t, ok)
	_, ok = s.GetTokenExpiry("nb/login", token)
	assert.False(t, ok)
}

func TestCreateTokenDefaultLifetime(t *testing.T) {
	s := New(time.Minute)
	token, err := s.CreateToken("nb/login", "p", 0)
	require.NoError(t, err)

	exp, ok := s.GetTokenExpiry("nb/login", token)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Add(DefaultLifetime).Unix(), exp, 2)
}

func TestUnknownTokenMiss(t *testing.T) {
	s := New(time.Minute)
	_, ok := s.GetToken("nb/login", "does-not-exist")
	assert.False(t, ok)
	_, ok = s.PopToken("nb/login", "does-not-exist")
	assert.False(t, ok)
}
