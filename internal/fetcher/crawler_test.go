package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

type recordedFailures struct {
	entries []resilience.DLQEntry
}

func (r *recordedFailures) RecordFailure(_ context.Context, e resilience.DLQEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newAwardSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/awards/2025/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/awards/2025/":
			w.Write([]byte(`<html><body>
				<a href="20251234.html">20251234</a>
				<a href="/awards/2025/20251235.html">20251235</a>
				<a href="20251234.html#top">duplicate</a>
				<a href="https://elsewhere.example.com/awards/2025/20259999.html">offsite</a>
				<a href="/about">about</a>
				<a rel="next" href="/awards/2025/page2">Next</a>
			</body></html>`)) //nolint:errcheck
		case "/awards/2025/page2":
			w.Write([]byte(`<html><body><a href="/awards/2025/20251236">20251236</a></body></html>`)) //nolint:errcheck
		case "/awards/2025/20251234.html", "/awards/2025/20251236":
			w.Write([]byte("<p>award " + r.URL.Path + "</p>")) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawler_FetchYear(t *testing.T) {
	srv := newAwardSite(t)
	arc := archive.New(t.TempDir())
	failures := &recordedFailures{}
	c := NewCrawler(newTestFetcher(), arc, failures, CrawlerOptions{BaseURL: srv.URL + "/awards"})

	res, err := c.FetchYear(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, res.IndexPages)
	assert.Equal(t, 3, res.Discovered)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "20251235", res.Errors[0].SourceID)
	assert.Equal(t, model.ErrorKindFetch, res.Errors[0].Kind)

	require.Len(t, failures.entries, 1)
	assert.Equal(t, resilience.StageFetch, failures.entries[0].Stage)
	assert.Equal(t, resilience.ErrorTypePermanent, failures.entries[0].ErrorType)

	docs, err := arc.ListDocuments(2025)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "20251234", docs[0].ID)
	assert.Equal(t, "20251236", docs[1].ID)

	body, meta, err := arc.ReadDocument(docs[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "20251234")
	assert.Equal(t, srv.URL+"/awards/2025/20251234.html", meta.URL)
	assert.WithinDuration(t, time.Now(), meta.FetchedAt, time.Minute)

	pages, err := arc.ListIndexPages(2025)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestCrawler_IndexFailure(t *testing.T) {
	srv := newAwardSite(t)
	failures := &recordedFailures{}
	c := NewCrawler(newTestFetcher(), archive.New(t.TempDir()), failures, CrawlerOptions{BaseURL: srv.URL + "/missing/{year}"})

	res, err := c.FetchYear(context.Background(), 2025)
	require.Error(t, err)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, failures.entries, 1)
	assert.Equal(t, resilience.StageIndex, failures.entries[0].Stage)
}

func TestCrawler_IndexURL(t *testing.T) {
	c := NewCrawler(nil, nil, nil, CrawlerOptions{BaseURL: "https://example.org/awards/"})
	assert.Equal(t, "https://example.org/awards/2014/", c.IndexURL(2014))

	c = NewCrawler(nil, nil, nil, CrawlerOptions{BaseURL: "https://example.org/list?year={year}"})
	assert.Equal(t, "https://example.org/list?year=2014", c.IndexURL(2014))
}
