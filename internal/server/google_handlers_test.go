package server

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectCalendar provisions userID and walks the consent flow end to end.
func (e *testEnv) connectCalendar(t *testing.T, userID string) {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/auth/user", userID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/google/auth", userID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	authURL, err := url.Parse(body["authUrl"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	resp = e.do(t, http.MethodGet, "/api/google/callback?code=abc&state="+url.QueryEscape(state), "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, "http://app.test/calendar?google_connected=true", resp.Header.Get("Location"))
}

func TestGoogleCallback(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/google/callback", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// A bare user id is not a valid state.
	resp = e.do(t, http.MethodGet, "/api/google/callback?code=abc&state=user_a", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://app.test/calendar?google_error=true", resp.Header.Get("Location"))
	assert.Empty(t, e.gateway.exchanged)

	e.connectCalendar(t, "user_a")
	assert.Equal(t, []string{"abc"}, e.gateway.exchanged)

	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", "user_a").Error)
	assert.True(t, user.GoogleCalendarEnabled)
	require.NotNil(t, user.GoogleAccessToken)
	assert.Equal(t, "access-abc", *user.GoogleAccessToken)

	resp = e.do(t, http.MethodGet, "/api/auth/user", "user_a", nil)
	assert.True(t, decode[models.User](t, resp).GoogleCalendarEnabled)
}

func TestGoogleSyncAndDelete(t *testing.T) {
	e := newTestEnv(t)
	e.connectCalendar(t, "user_a")

	at := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC)
	resp := e.do(t, http.MethodPost, "/api/content", "user_a", map[string]any{
		"title":       "Launch post",
		"platform":    "LinkedIn",
		"status":      "Scheduled",
		"scheduledAt": at,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	item := decode[models.ContentItem](t, resp)

	resp = e.do(t, http.MethodPost, "/api/google/sync/"+itoa(item.ID), "user_a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "evt_1", body["eventId"])

	require.Len(t, e.gateway.inserted, 1)
	assert.Equal(t, "📝 Launch post", e.gateway.inserted[0].Summary)
	assert.Equal(t, "9", e.gateway.inserted[0].ColorID)

	resp = e.do(t, http.MethodGet, contentPath(item.ID), "user_a", nil)
	synced := decode[models.ContentItem](t, resp)
	require.NotNil(t, synced.GoogleCalendarEventID)
	assert.Equal(t, "evt_1", *synced.GoogleCalendarEventID)

	// A second sync updates the existing event.
	resp = e.do(t, http.MethodPost, "/api/google/sync/"+itoa(item.ID), "user_a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"evt_1"}, e.gateway.updated)

	resp = e.do(t, http.MethodDelete, contentPath(item.ID), "user_a", nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"evt_1"}, e.gateway.deleted)
}

func TestGoogleSync_Errors(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/content", "user_a", map[string]any{"title": "Unscheduled", "platform": "Blog"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	item := decode[models.ContentItem](t, resp)

	resp = e.do(t, http.MethodGet, "/api/auth/user", "user_a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Not connected yet.
	resp = e.do(t, http.MethodPost, "/api/google/sync/"+itoa(item.ID), "user_a", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	e.connectCalendar(t, "user_a")

	resp = e.do(t, http.MethodPost, "/api/google/sync/"+itoa(item.ID), "user_a", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "scheduledAt", decode[models.ErrorResponse](t, resp).Field)

	resp = e.do(t, http.MethodPost, "/api/google/sync/"+itoa(item.ID), "user_b", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/google/sync/nope", "user_a", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, e.gateway.inserted)
}

func TestGoogleDisconnect(t *testing.T) {
	e := newTestEnv(t)
	e.connectCalendar(t, "user_a")

	resp := e.do(t, http.MethodDelete, "/api/google/disconnect", "user_a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["success"])

	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", "user_a").Error)
	assert.False(t, user.GoogleCalendarEnabled)
	assert.Nil(t, user.GoogleAccessToken)

	// Unknown accounts cannot be disconnected.
	resp = e.do(t, http.MethodDelete, "/api/google/disconnect", "ghost", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestGoogleRoutes_FeatureFlagOff(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.FeatureFlags = "google_calendar=off" })

	resp := e.do(t, http.MethodGet, "/api/google/auth", "user_a", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/google/callback?code=a&state=b", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Content deletes skip the calendar entirely.
	resp = e.do(t, http.MethodPost, "/api/content", "user_a", map[string]any{"title": "x", "platform": "Blog"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	item := decode[models.ContentItem](t, resp)
	resp = e.do(t, http.MethodDelete, contentPath(item.ID), "user_a", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
