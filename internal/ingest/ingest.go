// Package ingest runs one feed refresh end to end: fetch, deduplicate,
// store, and stamp feed health.
package ingest

import (
	"context"
	"fmt"
	"log"

	"rivulet/internal/db"
	"rivulet/internal/fetch"
	"rivulet/internal/models"
)

// maxErrorLen bounds the error message stored on the feed row.
const maxErrorLen = 200

// Ingestor fetches a feed and persists its new articles.
type Ingestor struct {
	fetcher *fetch.Fetcher
}

// New creates an ingestor around a fetcher.
func New(fetcher *fetch.Fetcher) *Ingestor {
	return &Ingestor{fetcher: fetcher}
}

// Refresh fetches one feed and inserts the articles not yet known for it.
// The fetch completes fully before any insert happens. On success the feed
// gets last_fetched_at=now and a cleared error; on fetch or storage
// failure the error is recorded and the attempt time is still stamped.
// Returns the number of newly inserted articles.
func (in *Ingestor) Refresh(ctx context.Context, feedID int64, feedURL string) (int, error) {
	result, err := in.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		if dbErr := db.MarkFetchFailure(feedID, truncateError(err)); dbErr != nil {
			log.Printf("Error recording fetch failure for feed %d: %v", feedID, dbErr)
		}
		return 0, err
	}

	if err := db.UpdateFeedMetadata(feedID, result.Meta.Title, result.Meta.Description, result.Meta.SiteURL, result.Meta.IconURL); err != nil {
		log.Printf("Error updating metadata for feed %d: %v", feedID, err)
	}

	articles := make([]models.Article, 0, len(result.Items))
	for _, item := range result.Items {
		articles = append(articles, models.Article{
			FeedID:      feedID,
			GUID:        item.GUID,
			URL:         item.URL,
			Title:       item.Title,
			Summary:     item.Summary,
			Content:     item.Content,
			Author:      item.Author,
			ImageURL:    item.ImageURL,
			PublishedAt: item.PublishedAt,
		})
	}

	inserted, err := db.InsertArticles(feedID, articles)
	if err != nil {
		if dbErr := db.MarkFetchFailure(feedID, truncateError(err)); dbErr != nil {
			log.Printf("Error recording store failure for feed %d: %v", feedID, dbErr)
		}
		return 0, fmt.Errorf("store articles for feed %d: %w", feedID, err)
	}

	// A refresh only counts as successful once the stamp lands: reporting
	// success with last_fetched_at untouched would make every tick
	// re-select the feed. Failing here lets the queue retry; the dedup
	// constraint makes the re-run insert nothing new.
	if err := db.MarkFetchSuccess(feedID); err != nil {
		return 0, fmt.Errorf("stamp fetch success for feed %d: %w", feedID, err)
	}

	return inserted, nil
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
