// Package reputation answers list and popularity questions about a URL:
// static whitelist membership, Google Safe Browsing, OpenPageRank, and
// WHOIS/DNS facts about its registrable domain. None of it feeds a
// classifier.
package reputation

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const (
	InWhitelist    = "In Whitelist"
	NotInWhitelist = "Not in whitelist"
	InBlacklist    = "In Blacklist"
	NotInBlacklist = "Not in blacklist"

	ErrURLNotProvided = "URL not provided"
)

// Result is a list lookup outcome: either a status or an error marker.
type Result struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Error == "" }

func missing(url string) bool {
	return strings.TrimSpace(url) == ""
}

// limiter returns nil when rps is not positive, meaning unlimited.
func limiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

func orDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
