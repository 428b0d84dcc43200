package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/models"
)

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Country   string    `json:"country"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user organizer admin"`
}

// ApplicationRequest is a user's request to become an organizer
type ApplicationRequest struct {
	Company string `json:"company" binding:"required,min=2,max=120"`
	Website string `json:"website" binding:"omitempty,url"`
	Message string `json:"message" binding:"max=2000"`
}

// DecisionRequest approves or rejects an organizer application
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
}

// CategoryRequest creates a category
type CategoryRequest struct {
	Name string `json:"name" binding:"required,min=2,max=80"`
	Slug string `json:"slug" binding:"required,min=2,max=80,lowercase"`
}

// SettingsRequest replaces the given settings keys
type SettingsRequest struct {
	Settings []SettingEntry `json:"settings" binding:"required,min=1,dive"`
}

// SettingEntry is one key/value pair
type SettingEntry struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

func userDetail(u *models.User) UserDetail {
	return UserDetail{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Country:   u.Country,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// @Summary List users
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {array} UserDetail
// @Router /api/admin/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	userDetails := make([]UserDetail, len(users))
	for i := range users {
		userDetails[i] = userDetail(&users[i])
	}

	c.JSON(http.StatusOK, userDetails)
}

// @Summary Update user role
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "Role"
// @Success 200 {object} UserDetail
// @Router /api/admin/users/{id}/role [patch]
func (s *Server) updateUserRole(c *gin.Context) {
	var req UpdateRoleRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	userID := c.Param("id")

	// Admins cannot demote themselves
	if userID == sessionData.UserID && req.Role != auth.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own role"})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user.Role = req.Role
	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update role")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Str("changed_by", sessionData.UserID).
		Msg("User role updated")

	c.JSON(http.StatusOK, userDetail(&user))
}

// @Summary Apply to become an organizer
// @Tags applications
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body ApplicationRequest true "Application"
// @Success 201 {object} models.OrganizerApplication
// @Failure 409 {object} map[string]interface{}
// @Router /api/applications [post]
func (s *Server) applyForOrganizer(c *gin.Context) {
	var req ApplicationRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)

	// One pending application per user
	var pending int64
	err := s.db.Model(&models.OrganizerApplication{}).
		Where("user_id = ? AND status = ?", sessionData.UserID, models.ApplicationPending).
		Count(&pending).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if pending > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An application is already pending"})
		return
	}

	application := models.OrganizerApplication{
		UserID:  sessionData.UserID,
		Company: req.Company,
		Website: req.Website,
		Message: req.Message,
		Status:  models.ApplicationPending,
	}

	if err := s.db.Create(&application).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("application_id", application.ID).Str("user_id", application.UserID).Msg("Organizer application submitted")

	c.JSON(http.StatusCreated, application)
}

// @Summary List organizer applications
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Param status query string false "Status filter"
// @Success 200 {array} models.OrganizerApplication
// @Router /api/admin/applications [get]
func (s *Server) listApplications(c *gin.Context) {
	query := s.db.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []models.OrganizerApplication
	if err := query.Find(&applications).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, applications)
}

// @Summary Decide an organizer application
// @Description Approval promotes the applicant to the organizer role
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Application ID"
// @Param request body DecisionRequest true "Decision"
// @Success 200 {object} models.OrganizerApplication
// @Router /api/admin/applications/{id}/decision [post]
func (s *Server) decideApplication(c *gin.Context) {
	var req DecisionRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)

	var application models.OrganizerApplication
	if err := s.db.Where("id = ?", c.Param("id")).First(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if application.Status != models.ApplicationPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Application already decided"})
		return
	}

	now := time.Now()
	application.DecidedBy = sessionData.UserID
	application.DecidedAt = &now

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.Decision == "approve" {
			application.Status = models.ApplicationApproved
			if err := tx.Model(&models.User{}).
				Where("id = ? AND role = ?", application.UserID, auth.RoleUser).
				Update("role", auth.RoleOrganizer).Error; err != nil {
				return err
			}
		} else {
			application.Status = models.ApplicationRejected
		}
		return tx.Save(&application).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decide application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().
		Str("application_id", application.ID).
		Str("status", application.Status).
		Str("decided_by", sessionData.UserID).
		Msg("Organizer application decided")

	c.JSON(http.StatusOK, application)
}

// @Summary Create category
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 409 {object} map[string]interface{}
// @Router /api/admin/categories [post]
func (s *Server) createCategory(c *gin.Context) {
	var req CategoryRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	var existing int64
	if err := s.db.Model(&models.Category{}).Where("slug = ?", req.Slug).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Category slug already exists"})
		return
	}

	category := models.Category{Name: req.Name, Slug: req.Slug}
	if err := s.db.Create(&category).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

// @Summary Delete category
// @Tags admin
// @Security CookieAuth
// @Param id path string true "Category ID"
// @Success 204
// @Router /api/admin/categories/{id} [delete]
func (s *Server) deleteCategory(c *gin.Context) {
	result := s.db.Where("id = ?", c.Param("id")).Delete(&models.Category{})
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to delete category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List daily sales reports
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.DailyReport
// @Router /api/admin/reports [get]
func (s *Server) listReports(c *gin.Context) {
	var reports []models.DailyReport
	if err := s.db.Order("date DESC").Limit(90).Find(&reports).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

// @Summary Get settings
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.Setting
// @Router /api/admin/settings [get]
func (s *Server) getSettings(c *gin.Context) {
	var settings []models.Setting
	if err := s.db.Order("key ASC").Find(&settings).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// @Summary Update settings
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body SettingsRequest true "Settings"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/settings [put]
func (s *Server) updateSettings(c *gin.Context) {
	var req SettingsRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range req.Settings {
			setting := models.Setting{Key: entry.Key, Value: entry.Value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&setting).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to update settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}
