// Package fetch retrieves the raw markup of a page for the content analyzer.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"

	"phishguard/pkg/config"
)

// Page is a fetched document. It is shared between callers that asked for
// the same URL concurrently and must not be modified.
type Page struct {
	URL         string // final URL after redirects
	Requested   string
	StatusCode  int
	ContentType string
	Redirected  bool
	Truncated   bool
	Body        string
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher holds a reusable HTTP client. Safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
	group      singleflight.Group
}

// New creates a Fetcher from the fetch settings.
func New(cfg config.FetchConfig) *Fetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
	}
	return NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, cfg)
}

// NewWithClient uses the given client instead of building one.
func NewWithClient(client *http.Client, cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBody:    cfg.MaxBodyBytes,
	}
}

// Fetch GETs rawURL and decodes the body to UTF-8. Concurrent fetches of the
// same URL share one request.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := neturl.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch %s: unsupported scheme %q", rawURL, u.Scheme)
	}
	target := u.String()

	ch := f.group.DoChan(target, func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout())
		defer cancel()
		return f.get(reqCtx, target)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Page), nil
	}
}

func (f *Fetcher) timeout() time.Duration {
	if f.httpClient.Timeout > 0 {
		return f.httpClient.Timeout
	}
	return time.Minute
}

func (f *Fetcher) get(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()

	page := &Page{
		URL:         resp.Request.URL.String(),
		Requested:   target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	page.Redirected = page.URL != target

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.maxBody > 0 {
		body = io.LimitReader(resp.Body, f.maxBody+1)
	}
	decoded, err := charset.NewReader(body, page.ContentType)
	if err != nil {
		// unknown charset label, keep the bytes as they are
		decoded = body
	}
	data, err := io.ReadAll(decoded)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBody > 0 && int64(len(data)) > f.maxBody {
		data = data[:f.maxBody]
		page.Truncated = true
	}
	page.Body = string(data)
	return page, nil
}
