package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// defaultMaxIndexPages bounds pagination of one year's listing.
const defaultMaxIndexPages = 50

// documentLinkRe matches a document URL path ending in an award number.
var documentLinkRe = regexp.MustCompile(`(?:^|/)(\d{6,9})(?:\.html?)?/?$`)

// PageFetcher is the fetch surface the crawler needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*Page, error)
}

// FailureRecorder persists dead-lettered documents.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, entry resilience.DLQEntry) error
}

// CrawlerOptions configures a Crawler.
type CrawlerOptions struct {
	// BaseURL is the listing root. A "{year}" placeholder is substituted;
	// otherwise the year is appended as a path segment.
	BaseURL       string
	MaxIndexPages int
}

// CrawlResult summarizes one year's crawl.
type CrawlResult struct {
	Year       int                `json:"year"`
	IndexPages int                `json:"index_pages"`
	Discovered int                `json:"discovered"`
	Fetched    int                `json:"fetched"`
	Failed     int                `json:"failed"`
	Errors     []model.BatchError `json:"errors,omitempty"`
}

// Crawler discovers a year's award documents from its index listing and
// archives each one.
type Crawler struct {
	fetcher  PageFetcher
	archive  *archive.Archive
	failures FailureRecorder
	opts     CrawlerOptions
}

// NewCrawler creates a Crawler. failures may be nil.
func NewCrawler(f PageFetcher, a *archive.Archive, failures FailureRecorder, opts CrawlerOptions) *Crawler {
	if opts.MaxIndexPages <= 0 {
		opts.MaxIndexPages = defaultMaxIndexPages
	}
	return &Crawler{fetcher: f, archive: a, failures: failures, opts: opts}
}

// IndexURL returns the listing URL for year.
func (c *Crawler) IndexURL(year int) string {
	y := strconv.Itoa(year)
	if strings.Contains(c.opts.BaseURL, "{year}") {
		return strings.ReplaceAll(c.opts.BaseURL, "{year}", y)
	}
	return strings.TrimRight(c.opts.BaseURL, "/") + "/" + y + "/"
}

// FetchYear archives the index pages and every discovered document for year.
// Documents that fail permanently are dead-lettered and skipped; they are not
// retried within the same run. Only a failure to fetch the first index page
// is returned as an error.
func (c *Crawler) FetchYear(ctx context.Context, year int) (*CrawlResult, error) {
	res := &CrawlResult{Year: year}
	log := zap.L().With(zap.Int("year", year))

	links, err := c.crawlIndex(ctx, year, res)
	if err != nil {
		return res, err
	}
	res.Discovered = len(links)
	log.Info("fetcher: discovered documents", zap.Int("count", len(links)), zap.Int("index_pages", res.IndexPages))

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "fetcher: crawl cancelled")
		}
		page, err := c.fetcher.FetchPage(ctx, link.url)
		if err != nil {
			c.fail(ctx, res, resilience.StageFetch, year, link.id, err)
			continue
		}
		meta := archive.DocumentMeta{URL: link.url, ContentType: page.ContentType}
		if _, err := c.archive.WriteDocument(year, link.id, page.Body, meta); err != nil {
			c.fail(ctx, res, resilience.StageFetch, year, link.id, err)
			continue
		}
		res.Fetched++
	}

	log.Info("fetcher: year crawled",
		zap.Int("fetched", res.Fetched),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

type documentLink struct {
	id  string
	url string
}

func (c *Crawler) crawlIndex(ctx context.Context, year int, res *CrawlResult) ([]documentLink, error) {
	var (
		links   []documentLink
		seen    = make(map[string]bool)
		visited = make(map[string]bool)
		next    = c.IndexURL(year)
	)

	for n := 1; next != "" && n <= c.opts.MaxIndexPages; n++ {
		if visited[next] {
			break
		}
		visited[next] = true

		page, err := c.fetcher.FetchPage(ctx, next)
		if err != nil {
			c.fail(ctx, res, resilience.StageIndex, year, next, err)
			if n == 1 {
				return nil, eris.Wrapf(err, "fetcher: index for %d", year)
			}
			break
		}
		if _, err := c.archive.WriteIndexPage(year, fmt.Sprintf("page-%03d.html", n), page.Body); err != nil {
			return nil, err
		}
		res.IndexPages++

		found, nextURL, err := discoverLinks(next, page.Body)
		if err != nil {
			c.fail(ctx, res, resilience.StageIndex, year, next, err)
			break
		}
		for _, l := range found {
			if !seen[l.id] {
				seen[l.id] = true
				links = append(links, l)
			}
		}
		next = nextURL
	}
	return links, nil
}

// discoverLinks returns document links and the next-page link of a listing.
func discoverLinks(pageURL string, body []byte) ([]documentLink, string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: parse page url")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: parse index html")
	}

	var (
		links []documentLink
		next  string
	)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Host != base.Host {
			return
		}

		rel, _ := s.Attr("rel")
		if strings.EqualFold(rel, "next") || strings.EqualFold(strings.TrimSpace(s.Text()), "next") {
			if next == "" {
				next = abs.String()
			}
			return
		}
		if m := documentLinkRe.FindStringSubmatch(path.Clean(abs.Path)); m != nil {
			links = append(links, documentLink{id: m[1], url: abs.String()})
		}
	})
	return links, next, nil
}

func (c *Crawler) fail(ctx context.Context, res *CrawlResult, stage string, year int, sourceID string, err error) {
	res.Failed++
	res.Errors = append(res.Errors, model.BatchError{
		Kind:     model.KindOf(err),
		Stage:    stage,
		Year:     year,
		SourceID: sourceID,
		Message:  err.Error(),
	})
	if c.failures == nil {
		return
	}
	if rerr := c.failures.RecordFailure(ctx, resilience.NewDLQEntry(stage, sourceID, year, err)); rerr != nil {
		zap.L().Error("fetcher: record failure", zap.String("document", sourceID), zap.Error(rerr))
	}
}
