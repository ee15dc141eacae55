package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
	<title>Example Feed</title>
	<description>Example description</description>
	<link>https://example.com</link>
	<image><url>https://example.com/icon.png</url><title>Example Feed</title><link>https://example.com</link></image>
	<item>
		<guid>guid-1</guid>
		<title>First post</title>
		<link>https://example.com/1</link>
		<description>Summary one</description>
		<author>alice@example.com (Alice)</author>
		<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
		<enclosure url="https://example.com/1.jpg" length="1024" type="image/jpeg"/>
	</item>
	<item>
		<link>https://example.com/2</link>
		<description>Summary two</description>
		<media:content url="https://example.com/2.png" medium="image"/>
	</item>
	<item>
		<title>Hello</title>
		<description>&lt;p&gt;Text with &lt;img src="https://example.com/3.gif"/&gt; inline&lt;/p&gt;</description>
	</item>
	<item>
		<description>No identity at all</description>
	</item>
</channel>
</rss>`

func newFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchNormalizesItems(t *testing.T) {
	srv := newFeedServer(t, sampleFeed)

	before := time.Now()
	result, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Example Feed", result.Meta.Title)
	assert.Equal(t, "Example description", result.Meta.Description)
	assert.Equal(t, "https://example.com", result.Meta.SiteURL)
	assert.Equal(t, "https://example.com/icon.png", result.Meta.IconURL)

	// The identity-less fourth item is skipped without failing the batch.
	require.Len(t, result.Items, 3)

	first := result.Items[0]
	assert.Equal(t, "guid-1", first.GUID)
	assert.Equal(t, "First post", first.Title)
	assert.Equal(t, "https://example.com/1", first.URL)
	assert.Equal(t, "Summary one", first.Summary)
	assert.Equal(t, "https://example.com/1.jpg", first.ImageURL, "image enclosure wins")
	assert.Equal(t, 2006, first.PublishedAt.Year())

	second := result.Items[1]
	assert.Equal(t, "https://example.com/2", second.GUID, "guid falls back to link")
	assert.Equal(t, "Untitled", second.Title)
	assert.Equal(t, "Summary two", second.Summary)
	assert.Equal(t, "https://example.com/2.png", second.ImageURL, "media:content image is second priority")
	assert.False(t, second.PublishedAt.Before(before), "undated items get the fetch time")

	third := result.Items[2]
	assert.Equal(t, "Hello", third.GUID, "guid falls back to title")
	assert.Equal(t, "https://example.com/3.gif", third.ImageURL, "first <img> in the body is last priority")
}

func TestFetchContentFallsBackToDescription(t *testing.T) {
	srv := newFeedServer(t, sampleFeed)

	result, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Summary one", result.Items[0].Content)
}

func TestFetchSendsClientIdentifier(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, userAgent, gotUA)
}

func TestFetchParseFailure(t *testing.T) {
	srv := newFeedServer(t, "this is not a feed")

	result, err := New().Fetch(context.Background(), srv.URL)
	assert.Nil(t, result, "no partial result on failure")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL, fetchErr.URL)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
