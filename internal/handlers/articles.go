package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rivulet/internal/db"
	"rivulet/internal/query"
)

// GetArticles lists or searches the user's articles. Filters, ranking, and
// pagination all live in the query builder; read-state errors propagate to
// the caller rather than being recovered silently.
func (h *Handlers) GetArticles(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	filter, err := filterFromRequest(r, user.ID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, pagination, err := db.ListArticles(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondPage(w, articles, pagination)
}

func filterFromRequest(r *http.Request, userID int64) (query.Filter, error) {
	q := r.URL.Query()
	f := query.Filter{
		UserID:  userID,
		Search:  q.Get("search"),
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
	}

	var err error
	if f.FeedID, err = optionalInt64(q.Get("feedId")); err != nil {
		return f, errors.New("invalid feedId")
	}
	if f.CategoryID, err = optionalInt64(q.Get("categoryId")); err != nil {
		return f, errors.New("invalid categoryId")
	}
	if f.IsRead, err = optionalBool(q.Get("isRead")); err != nil {
		return f, errors.New("invalid isRead")
	}
	if f.IsSaved, err = optionalBool(q.Get("isSaved")); err != nil {
		return f, errors.New("invalid isSaved")
	}
	if f.From, err = optionalTime(q.Get("from")); err != nil {
		return f, errors.New("invalid from date")
	}
	if f.To, err = optionalTime(q.Get("to")); err != nil {
		return f, errors.New("invalid to date")
	}

	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	return f.Normalize(), nil
}

func optionalInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkRead marks one article read for the user.
func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.setRead(w, r, true)
}

// MarkUnread marks one article unread for the user.
func (h *Handlers) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.setRead(w, r, false)
}

func (h *Handlers) setRead(w http.ResponseWriter, r *http.Request, read bool) {
	user := requestUser(r)

	articleID, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	if _, err := db.GetArticleForUser(user.ID, articleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Article not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var err error
	if read {
		err = db.MarkRead(user.ID, articleID)
	} else {
		err = db.MarkUnread(user.ID, articleID)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, map[string]bool{"isRead": read})
}

// ToggleSaved flips the saved flag for one article and returns the new
// value.
func (h *Handlers) ToggleSaved(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	articleID, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	if _, err := db.GetArticleForUser(user.ID, articleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Article not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	saved, err := db.ToggleSaved(user.ID, articleID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, map[string]bool{"isSaved": saved})
}

type bulkReadRequest struct {
	ArticleIDs     []int64 `json:"articleIds,omitempty"`
	FeedID         *int64  `json:"feedId,omitempty"`
	CategoryID     *int64  `json:"categoryId,omitempty"`
	OlderThanHours *int    `json:"olderThanHours,omitempty"`
}

// MarkBulkRead marks a filtered article set read and returns the number of
// targeted articles.
func (h *Handlers) MarkBulkRead(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req bulkReadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OlderThanHours != nil && *req.OlderThanHours < 0 {
		respondError(w, http.StatusBadRequest, "olderThanHours must not be negative")
		return
	}

	count, err := db.MarkBulkRead(user.ID, db.BulkReadScope{
		ArticleIDs:     req.ArticleIDs,
		FeedID:         req.FeedID,
		CategoryID:     req.CategoryID,
		OlderThanHours: req.OlderThanHours,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, map[string]int{"count": count})
}

// GetUnreadCount returns the user's total unread articles.
func (h *Handlers) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	count, err := db.UnreadCount(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, map[string]int{"count": count})
}

// GetUnreadCountsByFeed returns unread totals per subscribed feed.
func (h *Handlers) GetUnreadCountsByFeed(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	counts, err := db.UnreadCountsByFeed(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, counts)
}

// GetUnreadCountsByCategory returns unread totals per category.
func (h *Handlers) GetUnreadCountsByCategory(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	counts, err := db.UnreadCountsByCategory(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, counts)
}
