package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/tasks"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required,min=2,max=50"`
	LastName    string `json:"lastName" binding:"required,min=2,max=50"`
	Email       string `json:"email" binding:"required,email"`
	DateOfBirth string `json:"dateOfBirth" binding:"required,dateofbirth"`
	Country     string `json:"country" binding:"required,countrycode"`
}

// SendOTPRequest asks for a verification code to be issued
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest submits a verification code
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyRequest submits a 6-character verification code
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// LoginRequest exchanges an issued token for a session cookie
type LoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// validationDetail maps field-level validation failures to readable messages
func validationDetail(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	detail := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			detail[fe.Field()] = "is required"
		case "email":
			detail[fe.Field()] = "must be a valid email address"
		case "min":
			detail[fe.Field()] = "must be at least " + fe.Param() + " characters"
		case "max":
			detail[fe.Field()] = "must be at most " + fe.Param() + " characters"
		case "len":
			detail[fe.Field()] = "must be exactly " + fe.Param() + " characters"
		case "dateofbirth":
			detail[fe.Field()] = "must match YYYY-MM-DD"
		case "countrycode":
			detail[fe.Field()] = "must be a 2-letter country code"
		default:
			detail[fe.Field()] = "is invalid"
		}
	}
	return detail
}

// bindOrReject binds the JSON body and writes a field-detailed 400 on failure
func (s *Server) bindOrReject(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if detail := validationDetail(err); detail != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": detail})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		}
		return false
	}
	return true
}

// @Summary Register
// @Description Create (or refresh) an account profile and start verification
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	var user models.User
	err := s.db.Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		// Re-registering refreshes the profile fields
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		user.DateOfBirth = req.DateOfBirth
		user.Country = req.Country
		if err := s.db.Save(&user).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			DateOfBirth: req.DateOfBirth,
			Country:     req.Country,
			Role:        s.roles.Resolve(req.Email),
		}
		if err := s.db.Create(&user).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to create user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	default:
		s.logger.Error().Err(err).Msg("Failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")

	c.JSON(http.StatusOK, gin.H{"message": "Registration successful. Check your email for a verification code."})
}

// @Summary Send verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "Send code request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/send-otp [post]
func (s *Server) sendOTP(c *gin.Context) {
	var req SendOTPRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	code, err := s.codes.Issue(req.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// In store mode the code travels by email via the worker; in fixed mode
	// there is nothing to deliver
	if s.config.Auth.OTPMode == "store" {
		task, err := tasks.NewOTPDeliveryTask(req.Email, code)
		if err == nil {
			_, err = s.asynqClient.Enqueue(task)
		}
		if err != nil {
			// Sending stays idempotent; the client may simply request again
			s.logger.Warn().Err(err).Str("email", req.Email).Msg("Failed to enqueue code delivery")
		}
	}

	s.logger.Info().Str("email", req.Email).Msg("Verification code issued")

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// @Summary Verify code
// @Description Exchange a valid verification code for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verify code request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/verify-otp [post]
func (s *Server) verifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	if err := s.codes.Verify(req.Email, req.OTP); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
		return
	}

	token, err := s.tokens.Issue(req.Email, s.roles.Resolve(req.Email))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// @Summary Verify code (strict form)
// @Description Same exchange as verify-otp, with a strict 6-character code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/verify [post]
func (s *Server) verify(c *gin.Context) {
	var req VerifyRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	if err := s.codes.Verify(req.Email, req.OTP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid verification code"})
		return
	}

	token, err := s.tokens.Issue(req.Email, s.roles.Resolve(req.Email))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification successful", "token": token})
}

// @Summary Login
// @Description Store a verified session token in the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	claims, err := s.tokens.Verify(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	s.cookies.Set(c, req.Token)

	s.logger.Info().Str("email", claims.Email).Str("role", claims.Role).Msg("User logged in")

	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

// @Summary Logout
// @Description Clear the session cookie and revoke its token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	// Revocation is best effort; the cookie is cleared regardless
	if token, err := s.cookies.Get(c); err == nil && token != "" {
		if claims, err := s.tokens.Verify(token); err == nil {
			s.tokens.Revoke(claims)
		}
	}

	s.cookies.Clear(c)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// @Summary Get current user
// @Description Get the identity embedded in the current session
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    sessionData.UserID,
		"email": sessionData.Email,
		"role":  sessionData.Role,
	})
}
