package models

import "time"

// Category is a user-owned grouping of subscriptions.
type Category struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
