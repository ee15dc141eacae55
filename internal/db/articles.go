package db

import (
	"fmt"
	"log"
	"strings"

	"rivulet/internal/models"
	"rivulet/internal/query"
)

// InsertArticles batch-inserts candidates for one feed. The unique
// (feed_id, guid) constraint is the source of truth for deduplication:
// already-known items are silently dropped by ON CONFLICT DO NOTHING, so
// re-ingesting the same fetch result is idempotent and two concurrent
// ingestions for the same feed cannot double-insert. Returns the number of
// rows actually inserted.
func InsertArticles(feedID int64, articles []models.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(articles))
	args := make([]interface{}, 0, len(articles)*9)
	for i, a := range articles {
		n := i * 9
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8, n+9))
		args = append(args, feedID, a.GUID, a.URL, a.Title, a.Summary, a.Content, a.Author, a.ImageURL, a.PublishedAt)
	}

	stmt := `
		INSERT INTO articles (feed_id, guid, url, title, summary, content, author, image_url, published_at)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (feed_id, guid) DO NOTHING
	`
	res, err := DB.Exec(stmt, args...)
	if err != nil {
		log.Printf("Error inserting articles for feed %d: %v", feedID, err)
		return 0, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// GetArticleForUser returns one article, requiring that the user holds a
// subscription to its feed.
func GetArticleForUser(userID, articleID int64) (models.Article, error) {
	q := `
		SELECT a.* FROM articles a
		JOIN subscriptions s ON s.feed_id = a.feed_id AND s.user_id = $1
		WHERE a.id = $2
	`
	article := models.Article{}
	err := DB.Get(&article, q, userID, articleID)
	return article, err
}

// ListArticles runs the data and count queries produced by the query
// builder. Both share one WHERE predicate so the pagination totals always
// agree with the returned page.
func ListArticles(f query.Filter) ([]models.ArticleWithState, query.Pagination, error) {
	f = f.Normalize()
	dataSQL, dataArgs, countSQL, countArgs := query.Build(f)

	var total int
	if err := DB.Get(&total, countSQL, countArgs...); err != nil {
		log.Printf("Error counting articles for user %d: %v", f.UserID, err)
		return nil, query.Pagination{}, err
	}

	articles := []models.ArticleWithState{}
	if err := DB.Select(&articles, dataSQL, dataArgs...); err != nil {
		log.Printf("Error listing articles for user %d: %v", f.UserID, err)
		return nil, query.Pagination{}, err
	}

	return articles, query.NewPagination(f.Page, f.Limit, total), nil
}
