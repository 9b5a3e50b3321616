package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyAPIKeyRoundTrip(t *testing.T) {
	hash, err := HashAPIKey("sk-test-key")
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey(hash, "sk-test-key"))
	assert.False(t, VerifyAPIKey(hash, "wrong-key"))
}

func TestTokenAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	auth := NewTokenAuth("test-secret")
	r := gin.New()
	r.Use(auth.Middleware())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenAuthMiddlewareAcceptsValidToken(t *testing.T) {
	auth := NewTokenAuth("test-secret")
	token, err := auth.IssueToken("client-1", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(auth.Middleware())
	r.GET("/protected", func(c *gin.Context) {
		id, _ := c.Get(clientIDKey)
		c.JSON(http.StatusOK, gin.H{"client_id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	auth := NewTokenAuth("test-secret")
	token, err := auth.IssueToken("client-1", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(auth.Middleware())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
