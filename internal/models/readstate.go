package models

import "time"

// ReadState is the per-user overlay for one article. The table is sparse:
// no row means "unread, not saved". Callers that load a state by key get a
// nil pointer for the missing row and must treat it the same as explicit
// false values; the Read and Saved helpers below are the single place that
// normalization happens.
type ReadState struct {
	UserID    int64      `db:"user_id"`
	ArticleID int64      `db:"article_id"`
	IsRead    bool       `db:"is_read"`
	IsSaved   bool       `db:"is_saved"`
	ReadAt    *time.Time `db:"read_at"`
	SavedAt   *time.Time `db:"saved_at"`
}

// Read reports whether the article is read. Safe on a nil receiver so a
// missing row and an explicit false are indistinguishable to callers.
func (rs *ReadState) Read() bool {
	return rs != nil && rs.IsRead
}

// Saved reports whether the article is saved. Safe on a nil receiver.
func (rs *ReadState) Saved() bool {
	return rs != nil && rs.IsSaved
}
