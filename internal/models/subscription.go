package models

import "time"

// Subscription links a user to a shared feed, optionally filed under one
// of the user's categories.
type Subscription struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	FeedID     int64     `db:"feed_id"`
	CategoryID *int64    `db:"category_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// SubscribedFeed is a subscription joined with its feed, including the
// feed health metadata (last fetch time, last error) shown to the user.
type SubscribedFeed struct {
	SubscriptionID int64  `db:"subscription_id"`
	CategoryID     *int64 `db:"category_id"`
	Feed
}
