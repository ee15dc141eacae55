package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivulet/internal/middleware"
	"rivulet/internal/models"
	"rivulet/internal/test"
	"rivulet/pkg/tasks"
)

var articleColumns = []string{"id", "feed_id", "guid", "url", "title", "summary", "content", "author", "image_url", "published_at", "created_at"}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	user := &models.User{ID: 1, Username: "tester"}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, user))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestMarkReadInvalidID(t *testing.T) {
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	r := mux.SetURLVars(authedRequest(t, http.MethodPost, "/api/articles/abc/read", ""), map[string]string{"id": "abc"})
	w := httptest.NewRecorder()
	h.MarkRead(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestMarkReadArticleNotFound(t *testing.T) {
	_, mock := test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	mock.ExpectQuery(`SELECT a\.\* FROM articles a`).
		WithArgs(int64(1), int64(42)).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	r := mux.SetURLVars(authedRequest(t, http.MethodPost, "/api/articles/42/read", ""), map[string]string{"id": "42"})
	w := httptest.NewRecorder()
	h.MarkRead(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleSavedReturnsNewState(t *testing.T) {
	_, mock := test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	mock.ExpectQuery(`SELECT a\.\* FROM articles a`).
		WithArgs(int64(1), int64(7)).
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(7, 1, "g", "u", "T", "s", "c", "", "", time.Now(), time.Now()))
	mock.ExpectQuery(`INSERT INTO read_states .+ RETURNING is_saved`).
		WithArgs(int64(1), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"is_saved"}).AddRow(true))

	r := mux.SetURLVars(authedRequest(t, http.MethodPost, "/api/articles/7/toggle-saved", ""), map[string]string{"id": "7"})
	w := httptest.NewRecorder()
	h.ToggleSaved(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["isSaved"])
}

func TestMarkBulkReadReturnsCount(t *testing.T) {
	_, mock := test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	mock.ExpectExec(`INSERT INTO read_states .+ SELECT .+ FROM articles a`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	r := authedRequest(t, http.MethodPost, "/api/articles/mark-read", `{"feedId":3,"olderThanHours":24}`)
	w := httptest.NewRecorder()
	h.MarkBulkRead(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["count"])
}

func TestPostFeedDuplicateSubscriptionConflict(t *testing.T) {
	_, mock := test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	feedRows := sqlmock.NewRows([]string{"id", "url", "title", "description", "site_url", "icon_url", "last_fetched_at", "last_error", "created_at"}).
		AddRow(5, "https://example.com/rss", "https://example.com/rss", "", "", "", nil, nil, time.Now())
	mock.ExpectQuery(`INSERT INTO feeds`).WillReturnRows(feedRows)
	mock.ExpectQuery(`INSERT INTO subscriptions`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "subscriptions_user_id_feed_id_key"`))

	r := authedRequest(t, http.MethodPost, "/api/feeds", `{"url":"https://example.com/rss"}`)
	w := httptest.NewRecorder()
	h.PostFeed(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, false, body["success"])
}

func TestPostFeedEnqueuesImmediateRefresh(t *testing.T) {
	_, mock := test.NewMockDB(t)
	enqueuer := &test.MockTaskEnqueuer{}
	h := New(enqueuer, &test.MockTaskInspector{})

	feedRows := sqlmock.NewRows([]string{"id", "url", "title", "description", "site_url", "icon_url", "last_fetched_at", "last_error", "created_at"}).
		AddRow(5, "https://example.com/rss", "https://example.com/rss", "", "", "", nil, nil, time.Now())
	mock.ExpectQuery(`INSERT INTO feeds`).WillReturnRows(feedRows)

	subRows := sqlmock.NewRows([]string{"id", "user_id", "feed_id", "category_id", "created_at"}).
		AddRow(9, 1, 5, nil, time.Now())
	mock.ExpectQuery(`INSERT INTO subscriptions`).WillReturnRows(subRows)

	r := authedRequest(t, http.MethodPost, "/api/feeds", `{"url":"https://example.com/rss"}`)
	w := httptest.NewRecorder()
	h.PostFeed(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeRefreshFeed, enqueuer.EnqueuedTasks[0].Type())
}

func TestPostFeedInvalidURL(t *testing.T) {
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	r := authedRequest(t, http.MethodPost, "/api/feeds", `{"url":"not a url"}`)
	w := httptest.NewRecorder()
	h.PostFeed(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetArticlesInvalidFilter(t *testing.T) {
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	r := authedRequest(t, http.MethodGet, "/api/articles?feedId=bogus", "")
	w := httptest.NewRecorder()
	h.GetArticles(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetArticlesEnvelope(t *testing.T) {
	_, mock := test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &test.MockTaskInspector{})

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles a`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	cols := append(append([]string{}, articleColumns...), "is_read", "is_saved")
	mock.ExpectQuery(`SELECT a\.\*, COALESCE`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 1, "g", "u", "T", "s", "c", "", "", time.Now(), time.Now(), false, true))

	r := authedRequest(t, http.MethodGet, "/api/articles?page=1&limit=20", "")
	w := httptest.NewRecorder()
	h.GetArticles(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, true, body["success"])
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total"])
	assert.Equal(t, float64(1), pagination["totalPages"])
}
