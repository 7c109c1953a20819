package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

func newTestServer(t *testing.T, production bool) *chi.Mux {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := log.New(io.Discard)
	store := database.NewMemoryStore()
	sessions := services.NewSessionStore(client, time.Hour)
	entries := services.NewEntryService(store, services.EntryServiceOptions{
		Cache:  services.NewEntryListCache(client, time.Minute),
		Logger: logger,
	})

	return NewRouter(Options{
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		Production:     production,
		RateLimitRedis: client,
		Identity:       sessions,
	}, Handlers{
		Entries:   handlers.NewEntryHandler(entries, logger),
		Analytics: handlers.NewAnalyticsHandler(services.NewAnalytics(entries), logger),
		Auth:      handlers.NewAuthHandler(services.NewAccountService(store, sessions), logger),
	})
}

func TestRouteTable(t *testing.T) {
	r := newTestServer(t, false)

	var got []string
	require.NoError(t, chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+strings.TrimSuffix(route, "/"))
		return nil
	}))
	sort.Strings(got)

	want := []string{
		"DELETE /api/entries/{id}",
		"DELETE /api/entries/{id}/images/{imageID}",
		"GET /api/analytics/emotions",
		"GET /api/analytics/people",
		"GET /api/auth/me",
		"GET /api/entries",
		"GET /api/entries/{id}",
		"GET /api/entries/{id}/history",
		"GET /health",
		"POST /api/auth/signin",
		"POST /api/auth/signout",
		"POST /api/auth/signup",
		"POST /api/entries",
		"POST /api/entries/{id}/images",
		"PUT /api/entries/{id}",
	}
	assert.Equal(t, want, got)
}

func TestSignupThenJournal(t *testing.T) {
	r := newTestServer(t, false)

	call := func(method, target, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := call(http.MethodPost, "/api/auth/signup", "", `{"username":"river","password":"long enough pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var auth handlers.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	rec = call(http.MethodPost, "/api/entries", auth.Token, `{"title":"day one","emotions":["happy"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	rec = call(http.MethodGet, "/api/entries", auth.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list handlers.EntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, auth.User.ID, list.Entries[0].UserID)

	rec = call(http.MethodGet, "/api/entries", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Entries)

	rec = call(http.MethodGet, "/api/analytics/emotions", auth.Token, "")
	var stats handlers.EmotionStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, map[string]int{"happy": 1}, stats.Emotions)
}

func TestProductionStackSetsSecurityHeaders(t *testing.T) {
	r := newTestServer(t, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
