package reputation

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"phishguard/pkg/common"
	"phishguard/pkg/config"
)

// Report collects every lookup made for one URL.
type Report struct {
	Whitelist Result                    `json:"whitelist"`
	Blacklist Result                    `json:"blacklist"`
	PageRank  PageRank                  `json:"popularity"`
	Features  config.ReputationFeatures `json:"features"`
	Errors    []string                  `json:"errors,omitempty"`
}

// Checker runs the configured lookups in parallel. Any of its parts may be
// nil, in which case that lookup is skipped.
type Checker struct {
	Whitelist    *Whitelist
	SafeBrowsing *SafeBrowsing
	PageRank     *OpenPageRank
	Intel        *DomainIntel
	Timeout      time.Duration
}

// NewChecker wires every lookup from settings. The whitelist is optional:
// pass nil when none is loaded.
func NewChecker(cfg config.ReputationConfig, wl *Whitelist) *Checker {
	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	client := &http.Client{Timeout: timeout}
	return &Checker{
		Whitelist:    wl,
		SafeBrowsing: NewSafeBrowsing(cfg.SafeBrowsing, client),
		PageRank:     NewOpenPageRank(cfg.OpenPageRank, client),
		Intel:        NewDomainIntel(cfg),
		Timeout:      timeout,
	}
}

// Check looks rawURL up everywhere. The whitelist and the popularity
// provider are asked about the registrable domain, the blacklist about the
// full URL.
func (c *Checker) Check(ctx context.Context, rawURL string) Report {
	if missing(rawURL) {
		return Report{
			Whitelist: Result{Error: ErrURLNotProvided},
			Blacklist: Result{Error: ErrURLNotProvided},
			PageRank:  PageRank{Error: ErrURLNotProvided},
		}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	domain := common.RegistrableDomain(rawURL)
	var (
		rep Report
		mu  sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)

	if c.Whitelist != nil {
		rep.Whitelist = c.Whitelist.Check(domain)
	}
	if c.SafeBrowsing != nil {
		g.Go(func() error {
			r := c.SafeBrowsing.Check(gctx, rawURL)
			mu.Lock()
			rep.Blacklist = r
			mu.Unlock()
			return nil
		})
	}
	if c.PageRank != nil {
		g.Go(func() error {
			pr := c.PageRank.Get(gctx, domain)
			mu.Lock()
			rep.PageRank = pr
			mu.Unlock()
			return nil
		})
	}
	var intel config.ReputationFeatures
	if c.Intel != nil {
		g.Go(func() error {
			errs := c.Intel.Lookup(gctx, rawURL, &intel)
			mu.Lock()
			rep.Errors = append(rep.Errors, errs...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	rep.Features = intel
	rep.Features.WhitelistStatus = rep.Whitelist.Status
	rep.Features.BlacklistStatus = rep.Blacklist.Status
	if d, ok := rep.PageRank.Decimal(); ok {
		rep.Features.PageRank = d
		rep.Features.HasPageRank = true
		rep.Features.Popular = rep.PageRank.Popular()
	}
	if !rep.Blacklist.OK() {
		rep.Errors = append(rep.Errors, "blacklist_failed:"+rep.Blacklist.Error)
	}
	if !rep.PageRank.OK() {
		rep.Errors = append(rep.Errors, "pagerank_failed:"+rep.PageRank.Error)
	}
	return rep
}
