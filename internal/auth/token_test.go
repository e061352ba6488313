package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("unit-test-secret", time.Hour)

	uid := uuid.NewString()
	token, err := m.Issue(uid, "PROVIDER")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.Equal(t, "PROVIDER", claims.Role)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("unit-test-secret", -time.Minute)

	token, err := m.Issue(uuid.NewString(), "BUYER")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(uuid.NewString(), "BUYER")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager("unit-test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

// tokens forged with alg "none" must never verify
func TestTokenRejectsUnsignedAlg(t *testing.T) {
	m := NewTokenManager("unit-test-secret", time.Hour)

	// header {"alg":"none","typ":"JWT"} with an arbitrary uid claim
	forged := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJ1aWQiOiJhdHRhY2tlciIsInJvbGUiOiJBRE1JTiJ9."

	_, err := m.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
