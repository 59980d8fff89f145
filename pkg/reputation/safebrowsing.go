package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"

	"golang.org/x/time/rate"

	"phishguard/pkg/config"
)

var threatTypes = []string{
	"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION", "THREAT_TYPE_UNSPECIFIED",
}

const errBlacklist = "Error while verifying the URL"

type sbClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbThreatInfo struct {
	ThreatTypes      []string        `json:"threatTypes"`
	PlatformTypes    []string        `json:"platformTypes"`
	ThreatEntryTypes []string        `json:"threatEntryTypes"`
	ThreatEntries    []sbThreatEntry `json:"threatEntries"`
}

type sbRequest struct {
	Client     sbClient     `json:"client"`
	ThreatInfo sbThreatInfo `json:"threatInfo"`
}

// SafeBrowsing checks URLs against Google Safe Browsing v4 threat lists.
type SafeBrowsing struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewSafeBrowsing builds a client. A nil http client uses http.DefaultClient.
func NewSafeBrowsing(cfg config.ServiceConfig, client *http.Client) *SafeBrowsing {
	return &SafeBrowsing{
		endpoint: cfg.BaseURL + "/v4/threatMatches:find",
		apiKey:   cfg.APIKey(),
		client:   orDefault(client),
		limiter:  limiter(cfg.RatePerSecond),
	}
}

// Check reports whether url is listed. Transport and decoding failures
// become an error marker, never a Go error.
func (s *SafeBrowsing) Check(ctx context.Context, url string) Result {
	if missing(url) {
		return Result{Error: ErrURLNotProvided}
	}
	listed, err := s.lookup(ctx, url)
	if err != nil {
		return Result{Error: errBlacklist}
	}
	if listed {
		return Result{Status: InBlacklist}
	}
	return Result{Status: NotInBlacklist}
}

func (s *SafeBrowsing) lookup(ctx context.Context, url string) (bool, error) {
	if err := wait(ctx, s.limiter); err != nil {
		return false, err
	}
	body, err := json.Marshal(sbRequest{
		Client: sbClient{ClientID: "guardian-virtual", ClientVersion: "0.1"},
		ThreatInfo: sbThreatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []sbThreatEntry{{URL: url}},
		},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"?key="+neturl.QueryEscape(s.apiKey), bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("safe browsing request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode safe browsing response (status %d): %w", resp.StatusCode, err)
	}
	_, listed := payload["matches"]
	return listed, nil
}
