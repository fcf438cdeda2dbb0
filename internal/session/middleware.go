package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ctxKey       = "session_id"
	headerName   = "X-Session-Token"
	renewPercent = 4
)

type Middleware struct {
	JWT        JWT
	CookieName string
	Secure     bool
	Logger     *zap.Logger
}

// Handler resolves the caller's session from the cookie or a bearer token.
// Requests without a valid token get a new session and a fresh cookie.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			tok, _ = c.Cookie(m.cookieName())
		}
		if tok != "" {
			claims, err := m.JWT.Verify(tok)
			if err == nil {
				c.Set(ctxKey, claims.SessionID)
				if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < m.JWT.TokenTTL/renewPercent {
					m.issue(c, claims.SessionID)
				}
				c.Next()
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("session token rejected", zap.Error(err))
			}
		}
		m.issue(c, uuid.NewString())
		c.Next()
	}
}

func (m *Middleware) issue(c *gin.Context, sessionID string) {
	c.Set(ctxKey, sessionID)
	tok, exp, err := m.JWT.Sign(sessionID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("sign session token failed", zap.Error(err))
		}
		return
	}
	maxAge := int(time.Until(exp).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName(), tok, maxAge, "/", "", m.Secure, true)
	c.Header(headerName, tok)
}

func (m *Middleware) cookieName() string {
	if m.CookieName == "" {
		return "yh_session"
	}
	return m.CookieName
}

// ID returns the session id resolved by the middleware.
func ID(c *gin.Context) string {
	return c.GetString(ctxKey)
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
