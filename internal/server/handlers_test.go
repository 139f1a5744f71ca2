package server

import (
	"fmt"
	"net/http"
	"testing"

	"shutterhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	tokens, _ := env.signup(t, "margaret")

	resp := env.do(t, http.MethodGet, "/api/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "margaret",
			"email":    "margaret@example.com",
			"password": testUserPassword,
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "weakling",
			"email":    "weak@example.com",
			"password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("login", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "margaret@example.com",
			"password": testUserPassword,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "margaret@example.com",
			"password": "Wr0ng$Password!",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
			"refresh_token": tokens.RefreshToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))

		resp = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/logout", tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/api/me", tokens.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestUploadPhotos_EnforcesDailyQuota(t *testing.T) {
	env := newTestEnv(t)
	tokens, _ := env.signup(t, "walker")

	resp := env.uploadImages(t, tokens.AccessToken, 1, map[string]string{"title": "Dunes", "category": "landscape"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))

	// Two slots remain, so the third image of the batch is refused and the first two kept.
	resp = env.uploadImages(t, tokens.AccessToken, 3, map[string]string{"title": "Series"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
	var batch struct {
		Uploaded    []models.Photo `json:"uploaded"`
		FailedIndex *int           `json:"failed_index"`
		Error       string         `json:"error"`
	}
	decodeBody(t, resp, &batch)
	assert.Len(t, batch.Uploaded, 2)
	require.NotNil(t, batch.FailedIndex)
	assert.Equal(t, 2, *batch.FailedIndex)
	assert.NotEmpty(t, batch.Error)
	assert.Equal(t, "Series (1)", batch.Uploaded[0].Title)

	resp = env.uploadImages(t, tokens.AccessToken, 1, map[string]string{"title": "One more"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/me/quota", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var quota models.UploadQuota
	decodeBody(t, resp, &quota)
	assert.Equal(t, 3, quota.Limit)
	assert.Equal(t, 3, quota.Used)
	assert.Equal(t, 0, quota.Remaining)

	// Original and thumbnail per stored photo.
	assert.Equal(t, 6, env.photos.Len())
}

func TestUploadPhotos_RequiresImages(t *testing.T) {
	env := newTestEnv(t)
	tokens, _ := env.signup(t, "cartier")

	resp := env.uploadImages(t, tokens.AccessToken, 0, map[string]string{"title": "Empty"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommentNotifiesOwnerAndReplays(t *testing.T) {
	env := newTestEnv(t)
	ownerTokens, _ := env.signup(t, "helmut")
	fanTokens, _ := env.signup(t, "tina")

	resp := env.uploadImages(t, ownerTokens.AccessToken, 1, map[string]string{"title": "Portrait"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
	var batch struct {
		Uploaded []models.Photo `json:"uploaded"`
	}
	decodeBody(t, resp, &batch)
	require.Len(t, batch.Uploaded, 1)
	photoID := batch.Uploaded[0].ID

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/photos/%d/comments", photoID), fanTokens.AccessToken,
		map[string]string{"content": "Lovely light"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))

	resp = env.do(t, http.MethodGet, "/api/notifications/unread-count", ownerTokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int64 `json:"count"`
	}
	decodeBody(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)

	resp = env.do(t, http.MethodGet, "/api/notifications/since?cursor=0", ownerTokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))
	var items []models.Notification
	decodeBody(t, resp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationComment, items[0].Type)
	assert.NotEmpty(t, items[0].Link)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/notifications/since?cursor=%d", items[0].ID), ownerTokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rest []models.Notification
	decodeBody(t, resp, &rest)
	assert.Empty(t, rest)
}

func TestNotificationsSince_RequiresCursor(t *testing.T) {
	env := newTestEnv(t)
	tokens, _ := env.signup(t, "brassai")

	resp := env.do(t, http.MethodGet, "/api/notifications/since", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/notifications/since?cursor=-5", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFavoritesAndReports(t *testing.T) {
	env := newTestEnv(t)
	ownerTokens, _ := env.signup(t, "lange")
	viewerTokens, _ := env.signup(t, "arbus")

	resp := env.uploadImages(t, ownerTokens.AccessToken, 1, map[string]string{"title": "Migrant"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
	var batch struct {
		Uploaded []models.Photo `json:"uploaded"`
	}
	decodeBody(t, resp, &batch)
	photoID := batch.Uploaded[0].ID

	resp = env.do(t, http.MethodPost, "/api/favorites", viewerTokens.AccessToken,
		map[string]interface{}{"type": "photo", "id": photoID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))

	resp = env.do(t, http.MethodPost, "/api/favorites", viewerTokens.AccessToken,
		map[string]interface{}{"type": "spaceship", "id": photoID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/favorites", viewerTokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var favs struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, resp, &favs)
	assert.Equal(t, int64(1), favs.Total)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/favorites/photo/%d", photoID), viewerTokens.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/reports", viewerTokens.AccessToken,
		map[string]interface{}{"type": "photo", "id": photoID, "reason": "spam"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
}
