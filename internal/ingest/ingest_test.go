package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivulet/internal/fetch"
	"rivulet/internal/test"
)

const twoItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Ingest Feed</title>
	<link>https://example.com</link>
	<item><guid>a</guid><title>A</title><link>https://example.com/a</link></item>
	<item><guid>b</guid><title>B</title><link>https://example.com/b</link></item>
</channel>
</rss>`

func newFeedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshInsertsNewArticles(t *testing.T) {
	_, mock := test.NewMockDB(t)
	srv := newFeedServer(t, twoItemFeed, http.StatusOK)

	mock.ExpectExec(`UPDATE feeds SET`).
		WithArgs(int64(1), "Ingest Feed", "", "https://example.com", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO articles`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at = NOW\(\), last_error = NULL`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := New(fetch.New()).Refresh(context.Background(), 1, srv.URL)

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshIsIdempotent(t *testing.T) {
	// Re-ingesting the same fetch result inserts nothing: the
	// ON CONFLICT DO NOTHING insert reports zero affected rows.
	_, mock := test.NewMockDB(t)
	srv := newFeedServer(t, twoItemFeed, http.StatusOK)

	mock.ExpectExec(`UPDATE feeds SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO articles`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := New(fetch.New()).Refresh(context.Background(), 1, srv.URL)

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRecordsFetchFailure(t *testing.T) {
	_, mock := test.NewMockDB(t)
	srv := newFeedServer(t, "", http.StatusInternalServerError)

	// The attempt time is still stamped so the scheduler does not
	// hot-loop on a permanently broken feed.
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at = NOW\(\), last_error = \$2`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := New(fetch.New()).Refresh(context.Background(), 7, srv.URL)

	assert.Equal(t, 0, inserted)
	var fetchErr *fetch.FetchError
	assert.ErrorAs(t, err, &fetchErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRecordsStoreFailure(t *testing.T) {
	_, mock := test.NewMockDB(t)
	srv := newFeedServer(t, twoItemFeed, http.StatusOK)

	mock.ExpectExec(`UPDATE feeds SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO articles`).WillReturnError(assert.AnError)
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at = NOW\(\), last_error = \$2`).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := New(fetch.New()).Refresh(context.Background(), 1, srv.URL)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshFailsWhenSuccessStampFails(t *testing.T) {
	// If last_fetched_at cannot be stamped the refresh must report an
	// error so the queue retries; otherwise every tick re-selects the
	// feed as due even though the run "succeeded". The retry re-inserts
	// nothing thanks to the dedup constraint.
	_, mock := test.NewMockDB(t)
	srv := newFeedServer(t, twoItemFeed, http.StatusOK)

	mock.ExpectExec(`UPDATE feeds SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO articles`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at = NOW\(\), last_error = NULL`).
		WithArgs(int64(1)).
		WillReturnError(assert.AnError)

	inserted, err := New(fetch.New()).Refresh(context.Background(), 1, srv.URL)

	assert.Error(t, err)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
