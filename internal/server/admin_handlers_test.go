package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/workers"
)

func TestAdmin_RequiresAdminRole(t *testing.T) {
	srv := newTestServer(t)

	user := sessionCookie(obtainToken(t, srv, "alice@example.com"))
	organizer := sessionCookie(obtainToken(t, srv, "organizer@example.com"))

	for _, cookie := range []*http.Cookie{user, organizer} {
		w := doRequest(t, srv, http.MethodGet, "/api/admin/users", nil, cookie)
		require.Equal(t, http.StatusForbidden, w.Code)
	}

	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))
	w := doRequest(t, srv, http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdmin_UpdateUserRole(t *testing.T) {
	srv := newTestServer(t)
	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))
	obtainToken(t, srv, "alice@example.com")

	var alice models.User
	require.NoError(t, srv.db.Where("email = ?", "alice@example.com").First(&alice).Error)

	w := doRequest(t, srv, http.MethodPatch, "/api/admin/users/"+alice.ID+"/role", map[string]any{
		"role": "organizer",
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "organizer", decodeBody(t, w)["role"])

	// The stored role wins over the email pattern on the next login
	token := obtainToken(t, srv, "alice@example.com")
	w = doRequest(t, srv, http.MethodGet, "/api/auth/me", nil, sessionCookie(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "organizer", decodeBody(t, w)["role"])

	// Unknown role values are rejected
	w = doRequest(t, srv, http.MethodPatch, "/api/admin/users/"+alice.ID+"/role", map[string]any{
		"role": "superuser",
	}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplications_ApprovalPromotes(t *testing.T) {
	srv := newTestServer(t)
	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))
	user := sessionCookie(obtainToken(t, srv, "alice@example.com"))

	w := doRequest(t, srv, http.MethodPost, "/api/applications", map[string]any{
		"company": "Alice Events GmbH",
		"website": "https://alice.events",
		"message": "Five years of club nights",
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	applicationID := decodeBody(t, w)["id"].(string)

	// A second pending application is rejected
	w = doRequest(t, srv, http.MethodPost, "/api/applications", map[string]any{
		"company": "Alice Events GmbH",
	}, user)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/api/admin/applications/"+applicationID+"/decision", map[string]any{
		"decision": "approve",
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ApplicationApproved, decodeBody(t, w)["status"])

	// The applicant is an organizer on their next session
	token := obtainToken(t, srv, "alice@example.com")
	w = doRequest(t, srv, http.MethodGet, "/api/auth/me", nil, sessionCookie(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "organizer", decodeBody(t, w)["role"])

	// Deciding twice conflicts
	w = doRequest(t, srv, http.MethodPost, "/api/admin/applications/"+applicationID+"/decision", map[string]any{
		"decision": "reject",
	}, admin)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdmin_Categories(t *testing.T) {
	srv := newTestServer(t)
	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))

	w := doRequest(t, srv, http.MethodPost, "/api/admin/categories", map[string]any{
		"name": "Live Music",
		"slug": "live-music",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := decodeBody(t, w)["id"].(string)

	// Duplicate slug conflicts
	w = doRequest(t, srv, http.MethodPost, "/api/admin/categories", map[string]any{
		"name": "Concerts",
		"slug": "live-music",
	}, admin)
	require.Equal(t, http.StatusConflict, w.Code)

	// Public listing sees the category
	w = doRequest(t, srv, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "live-music")

	w = doRequest(t, srv, http.MethodDelete, "/api/admin/categories/"+categoryID, nil, admin)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, srv, http.MethodDelete, "/api/admin/categories/"+categoryID, nil, admin)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_Settings(t *testing.T) {
	srv := newTestServer(t)
	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))

	w := doRequest(t, srv, http.MethodPut, "/api/admin/settings", map[string]any{
		"settings": []map[string]any{
			{"key": "platform_fee_percent", "value": "5"},
			{"key": "support_email", "value": "support@ticketbay.dev"},
		},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Upsert replaces values on the same key
	w = doRequest(t, srv, http.MethodPut, "/api/admin/settings", map[string]any{
		"settings": []map[string]any{
			{"key": "platform_fee_percent", "value": "7"},
		},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/api/admin/settings", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"platform_fee_percent"`)
	assert.Contains(t, body, `"7"`)
	assert.NotContains(t, body, `"5"`)
}

func TestAdmin_Reports(t *testing.T) {
	srv := newTestServer(t)
	admin := sessionCookie(obtainToken(t, srv, "admin@example.com"))
	organizer := sessionCookie(obtainToken(t, srv, "organizer@example.com"))
	eventID, ticketTypeID := createTestEvent(t, srv, organizer, 50)

	buyer := sessionCookie(obtainToken(t, srv, "alice@example.com"))
	w := doRequest(t, srv, http.MethodPost, "/api/events/"+eventID+"/orders", map[string]any{
		"ticket_type_id": ticketTypeID,
		"quantity":       2,
	}, buyer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Roll up today's orders the way the worker does
	today := timeNowDate(t, srv)
	report, err := workers.RollupDay(srv.db, today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.OrdersCount)
	assert.EqualValues(t, 2, report.TicketsSold)
	assert.EqualValues(t, 9000, report.RevenueCents)

	w = doRequest(t, srv, http.MethodGet, "/api/admin/reports", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), today)
}
