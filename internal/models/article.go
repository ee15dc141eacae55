package models

import "time"

// Article is one item retrieved from a feed, identified by (feed_id, guid).
// Articles are immutable once inserted; ingestion only ever adds new rows.
type Article struct {
	ID          int64     `db:"id"`
	FeedID      int64     `db:"feed_id"`
	GUID        string    `db:"guid"`
	URL         string    `db:"url"`
	Title       string    `db:"title"`
	Summary     string    `db:"summary"`
	Content     string    `db:"content"`
	Author      string    `db:"author"`
	ImageURL    string    `db:"image_url"`
	PublishedAt time.Time `db:"published_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// ArticleWithState is an article joined with the requesting user's read
// state. A missing read_states row surfaces as is_read=false,
// is_saved=false via COALESCE in the query.
type ArticleWithState struct {
	Article
	IsRead  bool `db:"is_read"`
	IsSaved bool `db:"is_saved"`
}
