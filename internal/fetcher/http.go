// Package fetcher retrieves award documents over HTTP at a polite, fixed pace
// and crawls yearly listings into the archive.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// maxBodyBytes bounds a single document download.
const maxBodyBytes = 16 << 20

// HTTPOptions configures the document fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds each attempt, not the whole retry sequence.
	Timeout time.Duration
	// Delay is the fixed minimum gap between two requests.
	Delay time.Duration
	Retry resilience.RetryConfig
}

// Page is a fetched document.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
	Attempts    int
}

// DocumentFetcher performs serialized GETs with a fixed inter-request delay
// and bounded retries.
type DocumentFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
	mu      sync.Mutex
}

// NewDocumentFetcher creates a DocumentFetcher with the given options.
func NewDocumentFetcher(opts HTTPOptions) *DocumentFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "awards-cli/1.0"
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &DocumentFetcher{
		client:  &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 2, IdleConnTimeout: 90 * time.Second}},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch returns the body at rawURL.
func (f *DocumentFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	page, err := f.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return page.Body, nil
}

// FetchPage returns the body and content type at rawURL. Exhausted retries
// and non-2xx responses are reported as *model.FetchError.
func (f *DocumentFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("fetch", rawURL)
	}

	page, attempts, err := resilience.DoCount(ctx, retry, func(ctx context.Context) (*Page, error) {
		return f.attempt(ctx, rawURL)
	})
	if err != nil {
		fe := &model.FetchError{URL: rawURL, Attempts: attempts, Err: err}
		var se *model.FetchError
		if errors.As(err, &se) {
			fe.StatusCode = se.StatusCode
			fe.Err = se.Err
		}
		zap.L().Warn("fetcher: fetch failed",
			zap.String("url", rawURL),
			zap.Int("status", fe.StatusCode),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, fe
	}
	page.Attempts = attempts
	return page, nil
}

func (f *DocumentFetcher) attempt(ctx context.Context, rawURL string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &model.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Attempts:   1,
			Err:        eris.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	if len(body) > maxBodyBytes {
		return nil, &model.FetchError{
			URL:      rawURL,
			Attempts: 1,
			Err:      eris.Errorf("body exceeds %d bytes", maxBodyBytes),
		}
	}
	return &Page{URL: rawURL, Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
