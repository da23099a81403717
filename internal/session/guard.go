// Package session resolves who is making a request. Tokens are issued by the
// external auth service; this package only verifies them.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnauthenticated = errors.New("unauthenticated")

const (
	identityKey = "session.identity"
	// sidCookie scopes page state to one browser.
	sidCookie = "events_sid"
)

// Identity is the caller of a request.
type Identity struct {
	// UserID is empty for anonymous visitors.
	UserID string
	// Token is the bearer token forwarded to the events API.
	Token string
	// SessionID identifies the browser the request came from.
	SessionID string
}

// Authenticated reports whether a valid token was presented.
func (i Identity) Authenticated() bool { return i.UserID != "" }

// StateID keys per-session page state. It includes the user so that state
// never leaks across a logout and login in the same browser.
func (i Identity) StateID() string {
	if i.UserID == "" {
		return "anon:" + i.SessionID
	}
	return "user:" + i.UserID + ":" + i.SessionID
}

// Guard verifies session tokens.
type Guard struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	logger     *zap.Logger
}

// NewGuard creates a guard for HS256 tokens signed with secret. Tokens are read
// from the Authorization header or from cookieName.
func NewGuard(secret, cookieName string, ttl time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		logger:     logger.Named("session"),
	}
}

// Middleware resolves the Identity of every request. Requests without a valid
// token proceed anonymously.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{SessionID: g.sessionID(c)}

		if raw := g.rawToken(c); raw != "" {
			userID, err := g.Verify(raw)
			if err != nil {
				g.logger.Debug("Rejected session token", zap.Error(err))
			} else {
				id.UserID = userID
				id.Token = raw
			}
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// Require aborts requests that carry no valid token.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity resolved by Middleware.
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}

// Verify checks raw and returns the user it was issued for.
func (g *Guard) Verify(raw string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userID := claimString(claims["user_id"])
	if userID == "" {
		userID = claimString(claims["sub"])
	}
	if userID == "" {
		return "", fmt.Errorf("%w: token has no user", ErrUnauthenticated)
	}
	return userID, nil
}

// Issue signs a token for userID. The auth service issues real tokens; this
// serves local development and tests.
func (g *Guard) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(g.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

func (g *Guard) rawToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(g.cookieName); err == nil {
		return v
	}
	return ""
}

func (g *Guard) sessionID(c *gin.Context) string {
	if v, err := c.Cookie(sidCookie); err == nil {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}

	sid := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sidCookie, sid, int(g.ttl.Seconds()), "/", "", false, true)
	return sid
}

func claimString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return ""
	}
}
