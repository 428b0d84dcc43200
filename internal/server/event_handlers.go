package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/models"
)

// EventRequest creates or updates an event
type EventRequest struct {
	Title       string    `json:"title" binding:"required,min=2,max=120"`
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id"`
	Venue       string    `json:"venue"`
	City        string    `json:"city"`
	Country     string    `json:"country" binding:"omitempty,countrycode"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	Published   bool      `json:"published"`
}

// TicketTypeRequest adds an inventory bucket to an event
type TicketTypeRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=80"`
	PriceCents int64  `json:"price_cents" binding:"min=0"`
	Currency   string `json:"currency" binding:"omitempty,len=3"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// OrderRequest reserves tickets for the current user
type OrderRequest struct {
	TicketTypeID string `json:"ticket_type_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1,max=10"`
}

// TicketTypeSales is one row of an event sales summary
type TicketTypeSales struct {
	TicketTypeID string `json:"ticket_type_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Sold         int    `json:"sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// @Summary List published events
// @Tags events
// @Produce json
// @Param category query string false "Category slug filter"
// @Success 200 {array} models.Event
// @Router /api/events [get]
func (s *Server) listEvents(c *gin.Context) {
	query := s.db.Preload("TicketTypes").Where("published = ?", true).Order("starts_at ASC")

	if slug := c.Query("category"); slug != "" {
		var category models.Category
		if err := s.db.Where("slug = ?", slug).First(&category).Error; err != nil {
			// Unknown category filters down to an empty list
			c.JSON(http.StatusOK, []models.Event{})
			return
		}
		query = query.Where("category_id = ?", category.ID)
	}

	events := []models.Event{}
	if err := query.Find(&events).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, events)
}

// @Summary Get an event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} map[string]interface{}
// @Router /api/events/{id} [get]
func (s *Server) getEvent(c *gin.Context) {
	var event models.Event
	err := s.db.Preload("TicketTypes").Where("id = ? AND published = ?", c.Param("id"), true).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// @Summary List categories
// @Tags events
// @Produce json
// @Success 200 {array} models.Category
// @Router /api/categories [get]
func (s *Server) listCategories(c *gin.Context) {
	var categories []models.Category
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list categories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// @Summary List own events
// @Tags organizer
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.Event
// @Router /api/organizer/events [get]
func (s *Server) listOwnEvents(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var events []models.Event
	err := s.db.Preload("TicketTypes").
		Where("organizer_id = ?", sessionData.UserID).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list organizer events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, events)
}

// @Summary Create event
// @Tags organizer
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body EventRequest true "Event"
// @Success 201 {object} models.Event
// @Failure 400 {object} map[string]interface{}
// @Router /api/organizer/events [post]
func (s *Server) createEvent(c *gin.Context) {
	var req EventRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	if !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": gin.H{"EndsAt": "must be after StartsAt"}})
		return
	}

	sessionData, _ := GetSessionData(c)

	event := models.Event{
		OrganizerID: sessionData.UserID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		City:        req.City,
		Country:     req.Country,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
	}

	if err := s.db.Create(&event).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("event_id", event.ID).Str("organizer_id", event.OrganizerID).Msg("Event created")

	c.JSON(http.StatusCreated, event)
}

// ownEvent loads an event and checks ownership; admins bypass the check
func (s *Server) ownEvent(c *gin.Context) (*models.Event, bool) {
	sessionData, _ := GetSessionData(c)

	var event models.Event
	if err := s.db.Where("id = ?", c.Param("id")).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return nil, false
		}
		s.logger.Error().Err(err).Msg("Failed to load event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	if event.OrganizerID != sessionData.UserID && sessionData.Role != auth.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your event"})
		return nil, false
	}

	return &event, true
}

// @Summary Update event
// @Tags organizer
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Event ID"
// @Param request body EventRequest true "Event"
// @Success 200 {object} models.Event
// @Router /api/organizer/events/{id} [patch]
func (s *Server) updateEvent(c *gin.Context) {
	event, ok := s.ownEvent(c)
	if !ok {
		return
	}

	var req EventRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.CategoryID = req.CategoryID
	event.Venue = req.Venue
	event.City = req.City
	event.Country = req.Country
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Published = req.Published

	if err := s.db.Save(event).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// @Summary Delete event
// @Tags organizer
// @Security CookieAuth
// @Param id path string true "Event ID"
// @Success 204
// @Router /api/organizer/events/{id} [delete]
func (s *Server) deleteEvent(c *gin.Context) {
	event, ok := s.ownEvent(c)
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.TicketType{}).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("event_id", event.ID).Msg("Event deleted")

	c.Status(http.StatusNoContent)
}

// @Summary Add ticket type
// @Tags organizer
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Event ID"
// @Param request body TicketTypeRequest true "Ticket type"
// @Success 201 {object} models.TicketType
// @Router /api/organizer/events/{id}/ticket-types [post]
func (s *Server) createTicketType(c *gin.Context) {
	event, ok := s.ownEvent(c)
	if !ok {
		return
	}

	var req TicketTypeRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	ticketType := models.TicketType{
		EventID:    event.ID,
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Currency:   currency,
		Quantity:   req.Quantity,
	}

	if err := s.db.Create(&ticketType).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create ticket type")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, ticketType)
}

// @Summary Event sales summary
// @Tags organizer
// @Produce json
// @Security CookieAuth
// @Param id path string true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/organizer/events/{id}/sales [get]
func (s *Server) getEventSales(c *gin.Context) {
	event, ok := s.ownEvent(c)
	if !ok {
		return
	}

	var ticketTypes []models.TicketType
	if err := s.db.Where("event_id = ?", event.ID).Find(&ticketTypes).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load ticket types")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	sales := make([]TicketTypeSales, len(ticketTypes))
	var totalSold int
	var totalRevenue int64
	for i, tt := range ticketTypes {
		revenue := int64(tt.Sold) * tt.PriceCents
		sales[i] = TicketTypeSales{
			TicketTypeID: tt.ID,
			Name:         tt.Name,
			Quantity:     tt.Quantity,
			Sold:         tt.Sold,
			RevenueCents: revenue,
		}
		totalSold += tt.Sold
		totalRevenue += revenue
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id":            event.ID,
		"title":               event.Title,
		"ticket_types":        sales,
		"total_sold":          totalSold,
		"total_revenue_cents": totalRevenue,
	})
}

// @Summary Order tickets
// @Tags orders
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Event ID"
// @Param request body OrderRequest true "Order"
// @Success 201 {object} models.Order
// @Failure 409 {object} map[string]interface{}
// @Router /api/events/{id}/orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req OrderRequest
	if !s.bindOrReject(c, &req) {
		return
	}

	sessionData, _ := GetSessionData(c)
	eventID := c.Param("id")

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ticketType models.TicketType
		if err := tx.Where("id = ? AND event_id = ?", req.TicketTypeID, eventID).First(&ticketType).Error; err != nil {
			return err
		}

		var event models.Event
		if err := tx.Where("id = ? AND published = ?", eventID, true).First(&event).Error; err != nil {
			return err
		}

		if ticketType.Remaining() < req.Quantity {
			return errSoldOut
		}

		// Inventory is decremented atomically with the order row; the WHERE
		// guard rejects concurrent oversell at the database
		result := tx.Model(&models.TicketType{}).
			Where("id = ? AND quantity - sold >= ?", ticketType.ID, req.Quantity).
			Update("sold", gorm.Expr("sold + ?", req.Quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errSoldOut
		}

		order = models.Order{
			UserID:       sessionData.UserID,
			EventID:      eventID,
			TicketTypeID: ticketType.ID,
			Quantity:     req.Quantity,
			TotalCents:   int64(req.Quantity) * ticketType.PriceCents,
			Status:       "confirmed",
		}
		return tx.Create(&order).Error
	})

	switch {
	case errors.Is(err, errSoldOut):
		c.JSON(http.StatusConflict, gin.H{"error": "Not enough tickets available"})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event or ticket type not found"})
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to create order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Int("quantity", order.Quantity).
		Msg("Order created")

	c.JSON(http.StatusCreated, order)
}

var errSoldOut = errors.New("not enough tickets available")

// @Summary List own orders
// @Tags orders
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.Order
// @Router /api/orders [get]
func (s *Server) listMyOrders(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var orders []models.Order
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC").Find(&orders).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, orders)
}
