package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transwise/internal/config"
)

func newTestService(now time.Time) *JWTService {
	s := NewJWTService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "transwise"})
	s.now = func() time.Time { return now }
	return s
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Now()
	s := newTestService(now)

	token, expires, err := s.Issue("clerk-1", "CONAG", "clerk")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expires, time.Second)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "clerk-1", claims.Subject)
	assert.Equal(t, "clerk", claims.Role)
	assert.True(t, claims.Allows("CONAG"))
	assert.True(t, claims.Allows("conag"))
	assert.False(t, claims.Allows("OTHER"))
}

func TestIssue_CanonicalisesCompany(t *testing.T) {
	s := newTestService(time.Now())
	token, _, err := s.Issue("clerk-1", " conag ", "")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "CONAG", claims.Company)
	assert.True(t, claims.Allows("Conag"))
}

func TestIssue_DefaultsToAllCompanies(t *testing.T) {
	s := newTestService(time.Now())
	token, _, err := s.Issue("admin", "", "admin")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, AllCompanies, claims.Company)
	assert.True(t, claims.Allows("ANY"))
}

func TestIssue_RequiresSubject(t *testing.T) {
	_, _, err := newTestService(time.Now()).Issue("", "CONAG", "")
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestValidate_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	token, _, err := newTestService(issuedAt).Issue("clerk-1", "CONAG", "")
	require.NoError(t, err)

	_, err = newTestService(time.Now()).Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Rejects(t *testing.T) {
	now := time.Now()
	token, _, err := newTestService(now).Issue("clerk-1", "CONAG", "")
	require.NoError(t, err)

	other := NewJWTService(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour, Issuer: "transwise"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	foreign := NewJWTService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "someone-else"})
	_, err = foreign.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	_, err = newTestService(now).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
