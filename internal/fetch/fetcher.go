// Package fetch retrieves and parses feeds into normalized candidate
// items. It knows nothing about storage or scheduling.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	fetchTimeout = 10 * time.Second
	userAgent    = "rivulet/1.0 (personal RSS aggregator)"
)

// FetchError reports a total failure to reach or parse a feed URL. It is
// retryable; partial results are never returned alongside it.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Item is one normalized candidate article from a feed.
type Item struct {
	GUID        string
	URL         string
	Title       string
	Summary     string
	Content     string
	Author      string
	ImageURL    string
	PublishedAt time.Time
}

// Meta carries the feed-level metadata from a fetch.
type Meta struct {
	Title       string
	Description string
	SiteURL     string
	IconURL     string
}

// Result is a successful fetch: feed metadata plus candidate items.
type Result struct {
	Meta  Meta
	Items []Item
}

// Fetcher fetches and parses feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// New creates a fetcher with a fixed request timeout and a descriptive
// client identifier.
func New() *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: fetchTimeout}
	parser.UserAgent = userAgent
	return &Fetcher{parser: parser}
}

// Fetch retrieves and parses one feed. Items that cannot be given an
// identity (no guid, link, or title) are skipped without failing the
// fetch. The guid fallback chain (guid, then link, then title) is a lossy
// best-effort policy; feeds with genuinely ambiguous items may collide.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	res := &Result{
		Meta: Meta{
			Title:       parsed.Title,
			Description: parsed.Description,
			SiteURL:     parsed.Link,
		},
	}
	if parsed.Image != nil {
		res.Meta.IconURL = parsed.Image.URL
	}

	now := time.Now()
	for _, item := range parsed.Items {
		normalized, ok := normalizeItem(item, now)
		if !ok {
			continue
		}
		res.Items = append(res.Items, normalized)
	}

	return res, nil
}

// normalizeItem maps a source item onto the candidate shape. Undated items
// get the fetch time so they still sort reasonably.
func normalizeItem(item *gofeed.Item, now time.Time) (Item, bool) {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if guid == "" {
		guid = item.Title
	}
	if guid == "" {
		return Item{}, false
	}

	title := item.Title
	if title == "" {
		title = "Untitled"
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return Item{
		GUID:        guid,
		URL:         item.Link,
		Title:       title,
		Summary:     item.Description,
		Content:     content,
		Author:      itemAuthor(item),
		ImageURL:    itemImage(item, content),
		PublishedAt: published,
	}, true
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

// itemImage resolves an image URL by priority: an enclosure with an image
// MIME type, then a media:content image attribute, then the first <img>
// in the content body.
func itemImage(item *gofeed.Item, content string) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			url := ext.Attrs["url"]
			if url == "" {
				continue
			}
			if strings.HasPrefix(ext.Attrs["type"], "image/") || ext.Attrs["medium"] == "image" {
				return url
			}
		}
	}

	return firstImageSrc(content)
}

func firstImageSrc(content string) string {
	if content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}
