package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestJWTService_AdminToken(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1, 0)
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAdminToken()
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ParseToken(token, UsageAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = svc.ParseToken(token, UsageWSTicket)
	assert.ErrorIs(t, err, ErrWrongUsage, "токен администратора не является тикетом")
}

func TestJWTService_WSTicket(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1, 60)
	require.NoError(t, err)

	ticket, err := svc.GenerateWSTicket("session-42")
	require.NoError(t, err)

	claims, err := svc.ParseToken(ticket, UsageWSTicket)
	require.NoError(t, err)
	assert.Equal(t, "session-42", claims.SessionID)
}

func TestJWTService_Expired(t *testing.T) {
	svc, err := NewJWTService(testSecret, 1, 60)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateAdminToken()
	require.NoError(t, err)

	_, err = svc.ParseToken(token, UsageAdmin)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	a, _ := NewJWTService(testSecret, 1, 60)
	b, _ := NewJWTService("another-secret-9876543210", 1, 60)

	token, _, err := a.GenerateAdminToken()
	require.NoError(t, err)

	_, err = b.ParseToken(token, UsageAdmin)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = b.ParseToken("not-a-token", UsageAdmin)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService("short", 1, 60)
	assert.Error(t, err)
}
