// Package query composes the filter, search-ranking, and pagination SQL
// shared by the article listing and search entry points.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Sort fields accepted by the listing API.
const (
	SortByDate      = "date"
	SortByRelevance = "relevance"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Filter describes one article listing request.
type Filter struct {
	UserID     int64
	FeedID     *int64
	CategoryID *int64
	IsRead     *bool
	IsSaved    *bool
	Search     string
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortDir    string
	Page       int
	Limit      int
}

// Normalize clamps pagination and sort inputs to valid values. Pages are
// 1-indexed.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.SortBy != SortByRelevance {
		f.SortBy = SortByDate
	}
	if strings.EqualFold(f.SortDir, "asc") {
		f.SortDir = "ASC"
	} else {
		f.SortDir = "DESC"
	}
	return f
}

// Builder accumulates positional args while assembling SQL fragments.
type Builder struct {
	args []interface{}
}

// Add appends an argument and returns its placeholder.
func (b *Builder) Add(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Args returns the accumulated positional arguments.
func (b *Builder) Args() []interface{} {
	return b.args
}

// FeedScope returns the predicate restricting articles to the feeds a user
// may see: one subscribed feed, the feeds under one category, or the full
// subscription set when neither is given. This is the single scope policy
// shared by article listing and bulk mark-as-read.
func FeedScope(b *Builder, userID int64, feedID, categoryID *int64) string {
	switch {
	case feedID != nil:
		return "a.feed_id IN (SELECT feed_id FROM subscriptions WHERE user_id = " + b.Add(userID) +
			" AND feed_id = " + b.Add(*feedID) + ")"
	case categoryID != nil:
		return "a.feed_id IN (SELECT feed_id FROM subscriptions WHERE user_id = " + b.Add(userID) +
			" AND category_id = " + b.Add(*categoryID) + ")"
	default:
		return "a.feed_id IN (SELECT feed_id FROM subscriptions WHERE user_id = " + b.Add(userID) + ")"
	}
}

// searchVector is the text-ranking corpus: the article's title, summary,
// and content. The query builder only relies on the match-and-score
// contract; postgres full-text search provides it.
const searchVector = "to_tsvector('english', a.title || ' ' || a.summary || ' ' || a.content)"

// Build assembles the data and count queries for a filter. Both render the
// WHERE predicate through the same code path so total/totalPages always
// agree with the returned rows. The filter must be normalized first.
func Build(f Filter) (dataSQL string, dataArgs []interface{}, countSQL string, countArgs []interface{}) {
	cb := &Builder{}
	countSQL = "SELECT COUNT(*) FROM articles a" + readStateJoin(cb, f.UserID) + " WHERE " + whereConds(cb, f)
	countArgs = cb.Args()

	qb := &Builder{}
	join := readStateJoin(qb, f.UserID)
	where := whereConds(qb, f)
	order := orderClause(qb, f)
	limit := qb.Add(f.Limit)
	offset := qb.Add((f.Page - 1) * f.Limit)

	dataSQL = "SELECT a.*, COALESCE(rs.is_read, false) AS is_read, COALESCE(rs.is_saved, false) AS is_saved" +
		" FROM articles a" + join +
		" WHERE " + where +
		" ORDER BY " + order +
		" LIMIT " + limit + " OFFSET " + offset
	dataArgs = qb.Args()

	return dataSQL, dataArgs, countSQL, countArgs
}

// readStateJoin joins the requesting user's sparse read-state overlay. A
// missing row and an explicit false are both normalized by COALESCE.
func readStateJoin(b *Builder, userID int64) string {
	return " LEFT JOIN read_states rs ON rs.article_id = a.id AND rs.user_id = " + b.Add(userID)
}

func whereConds(b *Builder, f Filter) string {
	conds := []string{FeedScope(b, f.UserID, f.FeedID, f.CategoryID)}

	if f.IsRead != nil {
		conds = append(conds, "COALESCE(rs.is_read, false) = "+b.Add(*f.IsRead))
	}
	if f.IsSaved != nil {
		conds = append(conds, "COALESCE(rs.is_saved, false) = "+b.Add(*f.IsSaved))
	}
	if f.Search != "" {
		conds = append(conds, searchVector+" @@ plainto_tsquery('english', "+b.Add(f.Search)+")")
	}
	if f.From != nil {
		conds = append(conds, "a.published_at >= "+b.Add(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "a.published_at <= "+b.Add(*f.To))
	}

	return strings.Join(conds, " AND ")
}

// orderClause picks the sort expression. Relevance ordering is only
// meaningful with a search term; without one it falls back to date.
func orderClause(b *Builder, f Filter) string {
	if f.SortBy == SortByRelevance && f.Search != "" {
		return "ts_rank(" + searchVector + ", plainto_tsquery('english', " + b.Add(f.Search) + ")) " + f.SortDir +
			", a.published_at DESC"
	}
	return "a.published_at " + f.SortDir + ", a.id " + f.SortDir
}
