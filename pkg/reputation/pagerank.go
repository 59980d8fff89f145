package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"

	"golang.org/x/time/rate"

	"phishguard/pkg/config"
)

const errPageRank = "Error while obtaining PageRank"

// PageRankEntry is one domain in an OpenPageRank response.
type PageRankEntry struct {
	StatusCode      int     `json:"status_code"`
	Error           string  `json:"error"`
	PageRankInteger int     `json:"page_rank_integer"`
	PageRankDecimal float64 `json:"page_rank_decimal"`
	Rank            string  `json:"rank"`
	Domain          string  `json:"domain"`
}

// PageRank is the provider payload, or an error marker.
type PageRank struct {
	StatusCode  int             `json:"status_code,omitempty"`
	Response    []PageRankEntry `json:"response,omitempty"`
	LastUpdated string          `json:"last_updated,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func (p PageRank) OK() bool { return p.Error == "" }

// Decimal returns the rank of the first entry.
func (p PageRank) Decimal() (float64, bool) {
	if !p.OK() || len(p.Response) == 0 || p.Response[0].StatusCode != http.StatusOK {
		return 0, false
	}
	return p.Response[0].PageRankDecimal, true
}

// Popular reports a page rank above 7.
func (p PageRank) Popular() bool {
	d, ok := p.Decimal()
	return ok && d > 7
}

// OpenPageRank queries the OpenPageRank API.
type OpenPageRank struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewOpenPageRank builds a client. A nil http client uses http.DefaultClient.
func NewOpenPageRank(cfg config.ServiceConfig, client *http.Client) *OpenPageRank {
	return &OpenPageRank{
		endpoint: cfg.BaseURL + "/api/v1.0/getPageRank",
		apiKey:   cfg.APIKey(),
		client:   orDefault(client),
		limiter:  limiter(cfg.RatePerSecond),
	}
}

// Get returns the provider's rank payload for domain.
func (o *OpenPageRank) Get(ctx context.Context, domain string) PageRank {
	if missing(domain) {
		return PageRank{Error: ErrURLNotProvided}
	}
	pr, err := o.fetch(ctx, domain)
	if err != nil {
		return PageRank{Error: errPageRank}
	}
	return pr
}

func (o *OpenPageRank) fetch(ctx context.Context, domain string) (PageRank, error) {
	if err := wait(ctx, o.limiter); err != nil {
		return PageRank{}, err
	}
	q := neturl.Values{}
	q.Set("domains[]", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return PageRank{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("API-OPR", o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return PageRank{}, fmt.Errorf("pagerank request failed: %w", err)
	}
	defer resp.Body.Close()

	var pr PageRank
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pr); err != nil {
		return PageRank{}, fmt.Errorf("decode pagerank response (status %d): %w", resp.StatusCode, err)
	}
	return pr, nil
}
