// Package catalog loads an optional YAML seed of categories and events,
// used to populate development and demo deployments.
package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/models"
)

// Seed is the root of the YAML seed file
type Seed struct {
	Organizer  SeedOrganizer  `yaml:"organizer"`
	Categories []SeedCategory `yaml:"categories"`
	Events     []SeedEvent    `yaml:"events"`
}

// SeedOrganizer owns the seeded events
type SeedOrganizer struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// SeedCategory is one category entry
type SeedCategory struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// SeedEvent is one event entry with its ticket types
type SeedEvent struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"` // slug
	Venue       string           `yaml:"venue"`
	City        string           `yaml:"city"`
	Country     string           `yaml:"country"`
	StartsAt    time.Time        `yaml:"starts_at"`
	EndsAt      time.Time        `yaml:"ends_at"`
	TicketTypes []SeedTicketType `yaml:"ticket_types"`
}

// SeedTicketType is one inventory bucket entry
type SeedTicketType struct {
	Name       string `yaml:"name"`
	PriceCents int64  `yaml:"price_cents"`
	Currency   string `yaml:"currency"`
	Quantity   int    `yaml:"quantity"`
}

// Parse reads and decodes a seed file
func Parse(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if seed.Organizer.Email == "" && len(seed.Events) > 0 {
		return nil, fmt.Errorf("seed file declares events but no organizer")
	}

	return &seed, nil
}

// SeedFromFile parses the file at path and applies it to the database
func SeedFromFile(db *gorm.DB, path string, logger zerolog.Logger) error {
	seed, err := Parse(path)
	if err != nil {
		return err
	}
	return Apply(db, seed, logger)
}

// Apply upserts the seed into the database. Categories match on slug and
// events on title, so re-applying the same file is a no-op.
func Apply(db *gorm.DB, seed *Seed, logger zerolog.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		categoryIDs := make(map[string]string, len(seed.Categories))
		for _, sc := range seed.Categories {
			category := models.Category{Name: sc.Name, Slug: sc.Slug}
			if err := tx.Where(models.Category{Slug: sc.Slug}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("failed to seed category %q: %w", sc.Slug, err)
			}
			categoryIDs[sc.Slug] = category.ID
		}

		if len(seed.Events) == 0 {
			return nil
		}

		organizer := models.User{
			Email:     seed.Organizer.Email,
			FirstName: seed.Organizer.FirstName,
			LastName:  seed.Organizer.LastName,
			Role:      auth.RoleOrganizer,
		}
		if err := tx.Where(models.User{Email: seed.Organizer.Email}).FirstOrCreate(&organizer).Error; err != nil {
			return fmt.Errorf("failed to seed organizer: %w", err)
		}

		for _, se := range seed.Events {
			event := models.Event{
				OrganizerID: organizer.ID,
				CategoryID:  categoryIDs[se.Category],
				Title:       se.Title,
				Description: se.Description,
				Venue:       se.Venue,
				City:        se.City,
				Country:     se.Country,
				StartsAt:    se.StartsAt,
				EndsAt:      se.EndsAt,
				Published:   true,
			}

			var created models.Event
			err := tx.Where(models.Event{Title: se.Title, OrganizerID: organizer.ID}).
				Attrs(event).
				FirstOrCreate(&created).Error
			if err != nil {
				return fmt.Errorf("failed to seed event %q: %w", se.Title, err)
			}

			for _, st := range se.TicketTypes {
				currency := st.Currency
				if currency == "" {
					currency = "EUR"
				}
				ticketType := models.TicketType{
					EventID:    created.ID,
					Name:       st.Name,
					PriceCents: st.PriceCents,
					Currency:   currency,
					Quantity:   st.Quantity,
				}
				err := tx.Where(models.TicketType{EventID: created.ID, Name: st.Name}).
					Attrs(ticketType).
					FirstOrCreate(&models.TicketType{}).Error
				if err != nil {
					return fmt.Errorf("failed to seed ticket type %q: %w", st.Name, err)
				}
			}
		}

		logger.Info().
			Int("categories", len(seed.Categories)).
			Int("events", len(seed.Events)).
			Msg("Seed catalog applied")

		return nil
	})
}
