package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName is the cookie that carries the session token
	SessionCookieName = "token"

	// sessionCookieMaxAge is 30 days in seconds. The token inside usually
	// expires sooner; the shorter token lifetime governs.
	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
}

// SessionCookies writes and reads the session cookie. Secure is set in
// production so the cookie only travels over TLS.
type SessionCookies struct {
	Secure bool
}

// Set stores the session token as an HTTP-only, SameSite=Lax cookie on /
func (sc SessionCookies) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, sessionCookieMaxAge, "/", "", sc.Secure, true)
}

// Get reads the session token back from the request cookie
func (sc SessionCookies) Get(c *gin.Context) (string, error) {
	return c.Cookie(SessionCookieName)
}

// Clear deletes the session cookie
func (sc SessionCookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", sc.Secure, true)
}
