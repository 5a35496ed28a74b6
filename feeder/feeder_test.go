package feeder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/feeder"
)

const rssXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Travel Notes</title>
<link>https://example.com</link>
<description>notes</description>
<item>
<title>Lisbon</title>
<link>https://example.com/lisbon</link>
<pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
<description>Short teaser</description>
<content:encoded><![CDATA[<p>Trams and pastries.</p>]]></content:encoded>
</item>
<item>
<title>Porto</title>
<link>https://example.com/porto</link>
<description>Port wine cellars by the river.</description>
</item>
<item>
<title>Faro</title>
<link>https://example.com/faro</link>
</item>
</channel>
</rss>`

const unorderedAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Kitchen</title>
<id>urn:kitchen</id>
<updated>2025-06-03T09:00:00Z</updated>
<entry>
<title>Bread</title>
<id>urn:bread</id>
<link href="https://example.com/bread"/>
<updated>2025-05-01T09:00:00Z</updated>
<summary>Old bread notes.</summary>
</entry>
<entry>
<title>Soup</title>
<id>urn:soup</id>
<link href="https://example.com/soup"/>
<updated>2025-06-03T09:00:00Z</updated>
<summary>Fresh soup notes.</summary>
</entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssXML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRssFeeds(t *testing.T) {
	srv := newFeedServer(t)

	items, err := feeder.FetchRssFeeds(context.Background(), srv.Client(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Lisbon", items[0].Title)
	assert.Equal(t, "https://example.com/lisbon", items[0].Link)
	assert.Equal(t, "<p>Trams and pastries.</p>", items[0].Content)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())

	assert.Equal(t, "Port wine cellars by the river.", items[1].Content)
	assert.True(t, items[1].PublishedAt.IsZero())
}

func TestFetchRssFeedsLimit(t *testing.T) {
	srv := newFeedServer(t)

	items, err := feeder.NewReader(srv.Client()).Fetch(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchRssFeedsKeepsNewest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(unorderedAtom))
	}))
	defer srv.Close()

	items, err := feeder.FetchRssFeeds(context.Background(), srv.Client(), srv.URL, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Soup", items[0].Title)
	assert.Equal(t, "https://example.com/soup", items[0].Link)
}

func TestFetchRssFeedsRejectsNonFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>nope</body></html>"))
	}))
	defer srv.Close()

	_, err := feeder.FetchRssFeeds(context.Background(), srv.Client(), srv.URL, 0)
	assert.Error(t, err)
}
