package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/models"
)

const testSeed = `
organizer:
  email: organizer@ticketbay.dev
  first_name: Demo
  last_name: Organizer
categories:
  - name: Live Music
    slug: live-music
  - name: Theatre
    slug: theatre
events:
  - title: Harbour Sounds Festival
    description: Three days on the waterfront
    category: live-music
    venue: Hafenpark
    city: Hamburg
    country: DE
    starts_at: 2026-09-18T16:00:00Z
    ends_at: 2026-09-20T23:00:00Z
    ticket_types:
      - name: Weekend Pass
        price_cents: 12900
        quantity: 2000
      - name: Day Ticket
        price_cents: 5900
        currency: EUR
        quantity: 1500
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}
	return path
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestParse(t *testing.T) {
	seed, err := Parse(writeSeed(t, testSeed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(seed.Categories) != 2 {
		t.Errorf("categories = %d, want 2", len(seed.Categories))
	}
	if len(seed.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(seed.Events))
	}
	if got := len(seed.Events[0].TicketTypes); got != 2 {
		t.Errorf("ticket types = %d, want 2", got)
	}
	if seed.Organizer.Email != "organizer@ticketbay.dev" {
		t.Errorf("organizer email = %q", seed.Organizer.Email)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	if _, err := Parse(writeSeed(t, "categories: {not: a list}")); err == nil {
		t.Error("malformed YAML accepted")
	}

	noOrganizer := `
events:
  - title: Orphan Event
`
	if _, err := Parse(writeSeed(t, noOrganizer)); err == nil {
		t.Error("events without organizer accepted")
	}
}

func TestApply_Idempotent(t *testing.T) {
	db := newTestDB(t)
	path := writeSeed(t, testSeed)

	for range 2 {
		if err := SeedFromFile(db, path, zerolog.Nop()); err != nil {
			t.Fatalf("SeedFromFile: %v", err)
		}
	}

	var categories, events, ticketTypes, users int64
	db.Model(&models.Category{}).Count(&categories)
	db.Model(&models.Event{}).Count(&events)
	db.Model(&models.TicketType{}).Count(&ticketTypes)
	db.Model(&models.User{}).Count(&users)

	if categories != 2 || events != 1 || ticketTypes != 2 || users != 1 {
		t.Errorf("counts after re-apply = %d categories, %d events, %d ticket types, %d users",
			categories, events, ticketTypes, users)
	}

	var organizer models.User
	if err := db.Where("email = ?", "organizer@ticketbay.dev").First(&organizer).Error; err != nil {
		t.Fatalf("organizer not seeded: %v", err)
	}
	if organizer.Role != auth.RoleOrganizer {
		t.Errorf("organizer role = %q, want %q", organizer.Role, auth.RoleOrganizer)
	}

	var event models.Event
	if err := db.Where("title = ?", "Harbour Sounds Festival").First(&event).Error; err != nil {
		t.Fatalf("event not seeded: %v", err)
	}
	if !event.Published {
		t.Error("seeded event is not published")
	}
}
