package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"rivulet/internal/db"
	"rivulet/pkg/tasks"
)

type addFeedRequest struct {
	URL        string `json:"url"`
	CategoryID *int64 `json:"categoryId,omitempty"`
}

// PostFeed subscribes the user to a feed URL, creating the shared feed row
// on first subscription, and enqueues an immediate refresh.
func (h *Handlers) PostFeed(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req addFeedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		respondError(w, http.StatusBadRequest, "Invalid feed URL")
		return
	}

	if req.CategoryID != nil {
		if _, err := db.GetCategoryByID(user.ID, *req.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(w, http.StatusNotFound, "Category not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	feed, err := db.GetOrCreateFeed(req.URL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	sub, err := db.AddSubscription(user.ID, feed.ID, req.CategoryID)
	if err != nil {
		if strings.Contains(err.Error(), "subscriptions_user_id_feed_id_key") {
			respondError(w, http.StatusConflict, "Already subscribed to this feed")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := tasks.EnqueueRefresh(h.asynqClient, h.inspector, feed.ID, feed.URL); err != nil {
		// The subscription stands; the next scheduler tick will fetch it.
		log.Printf("Error enqueuing initial refresh for feed %d: %v", feed.ID, err)
	}

	respondData(w, http.StatusCreated, map[string]interface{}{
		"subscription": sub,
		"feed":         feed,
	})
}

// RefreshFeed enqueues a manual refresh. It shares the enqueue path with
// the scheduler, so a tick racing the button press collapses into one job.
func (h *Handlers) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	feedID, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid feed ID")
		return
	}

	if _, err := db.GetSubscriptionForFeed(user.ID, feedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Feed not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	feed, err := db.GetFeedByID(feedID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	queued, err := tasks.EnqueueRefresh(h.asynqClient, h.inspector, feed.ID, feed.URL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue refresh")
		return
	}

	respondData(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

// GetFeeds lists the user's subscriptions with feed health metadata. A
// feed with a persistent fetch error still shows here with its last_error
// set; its previously fetched articles remain readable.
func (h *Handlers) GetFeeds(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	feeds, err := db.GetSubscribedFeeds(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, feeds)
}

// DeleteSubscription removes one of the user's subscriptions.
func (h *Handlers) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	subID, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subscription ID")
		return
	}

	if err := db.DeleteSubscription(user.ID, subID); err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, nil)
}
