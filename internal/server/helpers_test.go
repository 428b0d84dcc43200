package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/ticketbay/internal/config"
)

const testOTPCode = "123456"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Environment: "development",
		Database: config.DatabaseConfig{
			URL: filepath.Join(t.TempDir(), "test.sqlite"),
		},
		Redis: config.RedisConfig{
			Address: "localhost:6379",
		},
		Auth: config.AuthConfig{
			TokenSecret:   "test-secret",
			TokenLifetime: time.Hour,
			OTPMode:       "fixed",
			OTPCode:       testOTPCode,
			OTPLifetime:   5 * time.Minute,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := srv.db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return srv
}

// doRequest performs a JSON request against the server router
func doRequest(t *testing.T, srv *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a JSON response body into a map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerUser runs the registration step for the given email
func registerUser(t *testing.T, srv *Server, email string) {
	t.Helper()

	w := doRequest(t, srv, http.MethodPost, "/api/auth/register", map[string]any{
		"firstName":   "Test",
		"lastName":    "Person",
		"email":       email,
		"dateOfBirth": "1990-01-15",
		"country":     "DE",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// obtainToken registers the email and exchanges the fixed code for a token
func obtainToken(t *testing.T, srv *Server, email string) string {
	t.Helper()

	registerUser(t, srv, email)

	w := doRequest(t, srv, http.MethodPost, "/api/auth/send-otp", map[string]any{"email": email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, srv, http.MethodPost, "/api/auth/verify-otp", map[string]any{
		"email": email,
		"otp":   testOTPCode,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token, ok := decodeBody(t, w)["token"].(string)
	require.True(t, ok, "verify-otp response has no token")
	require.NotEmpty(t, token)
	return token
}

// sessionCookie wraps a token the way the login handler stores it
func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: "token", Value: token}
}

// newBearerRequest builds a request authenticated via the Authorization header
func newBearerRequest(t *testing.T, method, path, token string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveRaw(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

// timeNowDate returns today's date the way the rollup worker names days
func timeNowDate(t *testing.T, _ *Server) string {
	t.Helper()
	return time.Now().UTC().Format("2006-01-02")
}
