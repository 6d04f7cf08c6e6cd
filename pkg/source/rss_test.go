package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/newspulse/pkg/story"
)

func rssBody(pub time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Lobsters</title>
  <item>
    <title>Writing a database in Go</title>
    <link>https://example.com/db</link>
    <guid>https://lobste.rs/s/abc</guid>
    <description>Deep dive.</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Ancient post</title>
    <link>https://example.com/old</link>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
</channel>
</rss>`, pub.Format(time.RFC1123Z))
}

func TestRSSFetch(t *testing.T) {
	pub := time.Now().Add(-time.Hour).Truncate(time.Second)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody(pub))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer bad.Close()

	r := NewRSS([]RSSFeed{
		{Name: "broken", URL: bad.URL},
		{Name: "lobsters", URL: good.URL},
	}, 7*24*time.Hour, nil)

	stories, err := r.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 1)

	s := stories[0]
	assert.Equal(t, "rss:lobsters:https://lobste.rs/s/abc", s.ID)
	assert.Equal(t, story.SourceRSS, s.Source)
	assert.Equal(t, "lobsters", s.SourceName)
	assert.Equal(t, "https://example.com/db", s.URL)
	assert.Equal(t, "Deep dive.", s.Description)
	assert.True(t, pub.Equal(s.Timestamp))
	assert.Nil(t, s.Points)
	assert.Nil(t, s.CommentCount)
}

func TestRSSNoMaxAgeKeepsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody(time.Now()))
	}))
	defer srv.Close()

	stories, err := NewRSS([]RSSFeed{{Name: "l", URL: srv.URL}}, 0, nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 2)
	// No guid: the link stands in.
	assert.Equal(t, "rss:l:https://example.com/old", stories[1].ID)
}

func TestRSSFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody(time.Now()))
	}))
	defer srv.Close()

	f := NewFilter([]string{"database"}, nil)
	stories, err := NewRSS([]RSSFeed{{Name: "l", URL: srv.URL}}, 0, f).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "Writing a database in Go", stories[0].Title)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// Multi-byte runes are never split.
	got := truncate("héllo wörld", 2)
	assert.Equal(t, "hé...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "日本", truncate("日本", 2))
}

func TestRSSLongDescriptionStaysValidUTF8(t *testing.T) {
	desc := strings.Repeat("é", 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Café culture</title><link>https://example.com/cafe</link><description>%s</description></item>
</channel></rss>`, desc)
	}))
	defer srv.Close()

	stories, err := NewRSS([]RSSFeed{{Name: "l", URL: srv.URL}}, 0, nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.True(t, utf8.ValidString(stories[0].Description))
	assert.Equal(t, strings.Repeat("é", 500)+"...", stories[0].Description)
}
