package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"codesandbox/internal/logging"
)

const bcryptCost = 12

// Claims is the JWT payload: a client identifier plus the registered
// expiry/issued-at fields.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// TokenAuth verifies bearer JWTs signed with the configured secret. API
// clients authenticate with a long-lived bearer token rather than a
// session cookie, since this service has no browser-facing login flow.
type TokenAuth struct {
	secret []byte
}

// NewTokenAuth builds a verifier bound to the given HMAC secret.
func NewTokenAuth(secret string) *TokenAuth {
	return &TokenAuth{secret: []byte(secret)}
}

// HashAPIKey bcrypt-hashes a plaintext client API key for storage.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether key matches the stored bcrypt hash.
func VerifyAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// IssueToken mints a bearer token for clientID carrying the given
// registered claims (expiry included), used by an out-of-band
// provisioning flow (not itself an
// HTTP endpoint in this service).
func (a *TokenAuth) IssueToken(clientID string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{ClientID: clientID, RegisteredClaims: claims})
	return token.SignedString(a.secret)
}

// clientIDKey is the gin context key Execute-adjacent handlers can use
// to recover the authenticated caller, e.g. for audit attribution.
const clientIDKey = "client_id"

// Middleware rejects requests without a valid "Authorization: Bearer
// <token>" header and stashes the authenticated client ID in context.
func (a *TokenAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, StandardResponse{
				Success: false,
				Error:   "missing bearer token",
				Code:    "UNAUTHORIZED",
			})
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			logging.S().Debugw("rejected bearer token", "error", err)
			c.JSON(http.StatusUnauthorized, StandardResponse{
				Success: false,
				Error:   "invalid or expired token",
				Code:    "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		c.Set(clientIDKey, claims.ClientID)
		c.Next()
	}
}
