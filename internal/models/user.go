package models

import "time"

// User represents a user in the database. Account creation and credential
// management live outside this service; requests carry an API token that
// resolves to one of these rows.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	APIToken  string    `db:"api_token"`
	CreatedAt time.Time `db:"created_at"`
}
