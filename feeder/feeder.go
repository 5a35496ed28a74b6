// Package feeder reads RSS and Atom feeds into items the post service can
// summarize.
package feeder

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/mmcdole/gofeed"
)

type RssFeedItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
	// Content is the item body as HTML, falling back to its description.
	Content string
}

// FetchRssFeeds fetches the feed at rssUrl with client and returns its items
// newest first. Undated items keep document order after the dated ones.
// If limit is greater than 0, it returns only the newest limit items.
func FetchRssFeeds(ctx context.Context, client *http.Client, rssUrl string, limit int) ([]RssFeedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = client

	feed, err := fp.ParseURLWithContext(rssUrl, ctx)
	if err != nil {
		return nil, err
	}

	var items []RssFeedItem
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		items = append(items, RssFeedItem{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: published,
			Content:     content,
		})
	}

	slices.SortStableFunc(items, func(a, b RssFeedItem) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// Reader binds FetchRssFeeds to one http client.
type Reader struct {
	client *http.Client
}

func NewReader(client *http.Client) *Reader {
	return &Reader{client: client}
}

func (r *Reader) Fetch(ctx context.Context, rssUrl string, limit int) ([]RssFeedItem, error) {
	return FetchRssFeeds(ctx, r.client, rssUrl, limit)
}
