package models

import "time"

// Feed is a subscribable content source identified by its canonical URL.
// A feed row is shared by every user subscribed to the same URL and is
// mutated only by the ingestion pipeline.
type Feed struct {
	ID            int64      `db:"id"`
	URL           string     `db:"url"`
	Title         string     `db:"title"`
	Description   string     `db:"description"`
	SiteURL       string     `db:"site_url"`
	IconURL       string     `db:"icon_url"`
	LastFetchedAt *time.Time `db:"last_fetched_at"`
	LastError     *string    `db:"last_error"`
	CreatedAt     time.Time  `db:"created_at"`
}
