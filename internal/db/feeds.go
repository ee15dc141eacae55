package db

import (
	"log"
	"time"

	"rivulet/internal/models"
)

// GetFeedByID returns one feed row.
func GetFeedByID(id int64) (models.Feed, error) {
	feed := models.Feed{}
	err := DB.Get(&feed, "SELECT * FROM feeds WHERE id = $1", id)
	return feed, err
}

// GetOrCreateFeed returns the feed for a canonical URL, creating the row on
// first subscription. The URL uniqueness constraint makes this safe under
// concurrent subscribe calls for the same URL.
func GetOrCreateFeed(url string) (*models.Feed, error) {
	query := `
		INSERT INTO feeds (url, title)
		VALUES ($1, $1)
		ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		RETURNING *
	`
	feed := &models.Feed{}
	err := DB.Get(feed, query, url)
	if err != nil {
		log.Printf("Error getting or creating feed %s: %v", url, err)
		return nil, err
	}
	return feed, nil
}

// GetDueFeeds returns feeds that have never been fetched or whose last
// fetch attempt is older than the staleness threshold.
func GetDueFeeds(staleness time.Duration) ([]models.Feed, error) {
	query := `
		SELECT * FROM feeds
		WHERE last_fetched_at IS NULL OR last_fetched_at < NOW() - $1 * INTERVAL '1 second'
		ORDER BY last_fetched_at ASC NULLS FIRST
	`
	var feeds []models.Feed
	err := DB.Select(&feeds, query, int64(staleness.Seconds()))
	if err != nil {
		log.Printf("Error getting due feeds: %v", err)
		return nil, err
	}
	return feeds, nil
}

// MarkFetchSuccess stamps a successful fetch attempt and clears any
// previous error.
func MarkFetchSuccess(feedID int64) error {
	_, err := DB.Exec("UPDATE feeds SET last_fetched_at = NOW(), last_error = NULL WHERE id = $1", feedID)
	return err
}

// MarkFetchFailure records the error and still stamps the attempt time so
// the scheduler does not hot-loop on a permanently broken feed.
func MarkFetchFailure(feedID int64, message string) error {
	_, err := DB.Exec("UPDATE feeds SET last_fetched_at = NOW(), last_error = $2 WHERE id = $1", feedID, message)
	return err
}

// UpdateFeedMetadata fills feed metadata from a fetch result. Empty values
// never overwrite previously known ones.
func UpdateFeedMetadata(feedID int64, title, description, siteURL, iconURL string) error {
	query := `
		UPDATE feeds SET
			title = COALESCE(NULLIF($2, ''), title),
			description = COALESCE(NULLIF($3, ''), description),
			site_url = COALESCE(NULLIF($4, ''), site_url),
			icon_url = COALESCE(NULLIF($5, ''), icon_url)
		WHERE id = $1
	`
	_, err := DB.Exec(query, feedID, title, description, siteURL, iconURL)
	return err
}
