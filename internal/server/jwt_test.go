package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/book-foundry/internal/config"
	"github.com/jonathan/book-foundry/internal/ws"
)

func testJWTService() *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := testJWTService()

	token, err := svc.GenerateToken("cli")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Subject)
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := testJWTService()

	_, err := svc.ValidateToken("")
	assert.Error(t, err)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	// Token signed with a different secret
	other := NewJWTService(&config.JWTConfig{Secret: "other-secret", ExpirationHours: 1})
	token, err := other.GenerateToken("cli")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestWithAuth_GuardsRunEndpoints(t *testing.T) {
	svc := testJWTService()
	s, err := New(Config{Addr: ":0"}, newFakePipeline(), ws.NewManager(), svc)
	require.NoError(t, err)

	// No token
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token
	token, err := svc.GenerateToken("cli")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RequiresJWTUnlessDisabled(t *testing.T) {
	_, err := New(Config{Addr: ":0"}, newFakePipeline(), ws.NewManager(), nil)
	assert.Error(t, err)
}
