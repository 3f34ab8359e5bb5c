package httpapi

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

func testSession(expiresIn time.Duration) domain.Session {
	return domain.Session{
		ID:        "ses-1",
		UserID:    "u-1",
		Role:      domain.RoleManager,
		ExpiresAt: time.Now().Add(expiresIn),
	}
}

func TestIssueAndParseToken(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour, "")
	require.NoError(t, err)

	token, expiresAt, err := auth.Issue(testSession(8 * time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenClaims{UserID: "u-1", Role: domain.RoleManager, SessionID: "ses-1"}, claims)
}

func TestTokenNeverOutlivesSession(t *testing.T) {
	auth, err := NewAuthManager(testSecret, 8*time.Hour, "")
	require.NoError(t, err)

	session := testSession(10 * time.Minute)
	_, expiresAt, err := auth.Issue(session)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(session.ExpiresAt.UTC()))
}

func TestParseTokenRejects(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour, "")
	require.NoError(t, err)
	other, err := NewAuthManager("another-secret-another-secret-xx", time.Hour, "")
	require.NoError(t, err)

	foreign, _, err := other.Issue(testSession(time.Hour))
	require.NoError(t, err)
	_, err = auth.ParseToken(foreign)
	assert.ErrorIs(t, err, errInvalidToken)

	expired, err := auth.sign("u-1", domain.RoleSales, "ses-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = auth.ParseToken(expired)
	assert.ErrorIs(t, err, errInvalidToken)

	wrongIssuer, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "someone-else",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID: "ses-1",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = auth.ParseToken(wrongIssuer)
	assert.ErrorIs(t, err, errInvalidToken)

	noSession, err := auth.sign("u-1", domain.RoleSales, "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = auth.ParseToken(noSession)
	assert.Error(t, err)
}

func TestManagerPIN(t *testing.T) {
	none, err := NewAuthManager(testSecret, time.Hour, "  ")
	require.NoError(t, err)
	assert.False(t, none.PINRequired())
	assert.False(t, none.ValidateManagerPIN("739154"))

	auth, err := NewAuthManager(testSecret, time.Hour, "739154")
	require.NoError(t, err)
	assert.True(t, auth.PINRequired())
	assert.True(t, auth.ValidateManagerPIN("739154"))
	assert.True(t, auth.ValidateManagerPIN(" 739154 "))
	assert.False(t, auth.ValidateManagerPIN("739155"))
	assert.False(t, auth.ValidateManagerPIN(""))
}
