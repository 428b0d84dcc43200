package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/models"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingSession = errors.New("missing session")
	ErrInvalidToken   = errors.New("invalid token")
	ErrUserNotFound   = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated session context set by the
// session middleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// sessionToken extracts the session token from the cookie, falling back to
// a bearer Authorization header for non-browser API clients
func (s *Server) sessionToken(c *gin.Context) (string, error) {
	if token, err := s.cookies.Get(c); err == nil && token != "" {
		return token, nil
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		if token := strings.TrimPrefix(authHeader, bearerPrefix); token != "" {
			return token, nil
		}
	}

	return "", ErrMissingSession
}

// sessionAuthMiddleware validates the session token and loads the account
func (s *Server) sessionAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := s.sessionToken(c)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		// Verify the account exists; registration precedes any session
		var user models.User
		if err := s.db.Where("email = ?", claims.Email).First(&user).Error; err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:  user.ID,
			Email:   user.Email,
			Role:    claims.Role,
			TokenID: claims.ID,
		})

		c.Next()
	}
}

// requireRole ensures the session role grants the given role's privileges
func (s *Server) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrMissingSession, "Unauthorized")
			return
		}

		if !auth.RoleAtLeast(sessionData.Role, role) {
			respondWithError(c, s.logger, http.StatusForbidden, errors.New("insufficient role"), role+" access required")
			return
		}

		c.Next()
	}
}

// storedRoleResolver resolves roles from the account record when one exists
// and falls back to the email-pattern rule for unknown emails
type storedRoleResolver struct {
	db       *gorm.DB
	fallback auth.RoleResolver
}

func (r *storedRoleResolver) Resolve(email string) string {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err == nil && user.Role != "" {
		return user.Role
	}
	return r.fallback.Resolve(email)
}
