package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents a registered account. Role is one of "user", "organizer",
// "admin" (see internal/auth for the derivation rule).
type User struct {
	BaseModel
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	FirstName   string `json:"first_name" gorm:"not null"`
	LastName    string `json:"last_name" gorm:"not null"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD, validated at the boundary
	Country     string `json:"country" gorm:"type:varchar(2)"`
	Role        string `json:"role" gorm:"type:varchar(16);not null;default:user"`
}

// Category groups events (music, sports, theatre, ...)
type Category struct {
	BaseModel
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"uniqueIndex;not null"`
}

// Event is an organizer-owned listing. Unpublished events are visible only
// to their organizer and to admins.
type Event struct {
	BaseModel
	OrganizerID string    `json:"organizer_id" gorm:"index;not null"`
	CategoryID  string    `json:"category_id" gorm:"index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Venue       string    `json:"venue"`
	City        string    `json:"city"`
	Country     string    `json:"country" gorm:"type:varchar(2)"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Published   bool      `json:"published" gorm:"not null;default:false"`

	TicketTypes []TicketType `json:"ticket_types,omitempty" gorm:"foreignKey:EventID"`
}

// TicketType is a priced inventory bucket within an event
type TicketType struct {
	BaseModel
	EventID    string `json:"event_id" gorm:"index;not null"`
	Name       string `json:"name" gorm:"not null"`
	PriceCents int64  `json:"price_cents" gorm:"not null"`
	Currency   string `json:"currency" gorm:"type:varchar(3);not null;default:EUR"`
	Quantity   int    `json:"quantity" gorm:"not null"`
	Sold       int    `json:"sold" gorm:"not null;default:0"`
}

// Remaining returns how many tickets of this type are still available
func (t *TicketType) Remaining() int {
	return t.Quantity - t.Sold
}

// Order records a ticket purchase. There is no payment integration; an
// order is confirmed the moment inventory is reserved.
type Order struct {
	BaseModel
	UserID       string `json:"user_id" gorm:"index;not null"`
	EventID      string `json:"event_id" gorm:"index;not null"`
	TicketTypeID string `json:"ticket_type_id" gorm:"index;not null"`
	Quantity     int    `json:"quantity" gorm:"not null"`
	TotalCents   int64  `json:"total_cents" gorm:"not null"`
	Status       string `json:"status" gorm:"type:varchar(16);not null;default:confirmed"`
}

// OrganizerApplication is a user's request to become an organizer,
// decided by an admin.
type OrganizerApplication struct {
	BaseModel
	UserID    string     `json:"user_id" gorm:"index;not null"`
	Company   string     `json:"company" gorm:"not null"`
	Website   string     `json:"website"`
	Message   string     `json:"message" gorm:"type:text"`
	Status    string     `json:"status" gorm:"type:varchar(16);not null;default:pending"`
	DecidedBy string     `json:"decided_by"`
	DecidedAt *time.Time `json:"decided_at"`
}

// Application status values
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Setting is a key/value row for platform-wide settings editable from the
// admin dashboard
type Setting struct {
	BaseModel
	Key   string `json:"key" gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:text"`
}

// DailyReport is a per-day sales rollup produced by the worker
type DailyReport struct {
	BaseModel
	Date         string    `json:"date" gorm:"uniqueIndex;type:varchar(10);not null"` // YYYY-MM-DD
	OrdersCount  int64     `json:"orders_count" gorm:"not null"`
	TicketsSold  int64     `json:"tickets_sold" gorm:"not null"`
	RevenueCents int64     `json:"revenue_cents" gorm:"not null"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// AutoMigrate runs schema migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Event{},
		&TicketType{},
		&Order{},
		&OrganizerApplication{},
		&Setting{},
		&DailyReport{},
	)
}
