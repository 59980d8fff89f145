package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"

	"phishguard/pkg/config"
)

func TestWhitelist(t *testing.T) {
	wl, err := ReadWhitelist(strings.NewReader("1,google.com\n2,facebook.com\n3\n4,\n"))
	if err != nil {
		t.Fatalf("ReadWhitelist: %v", err)
	}
	if wl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", wl.Len())
	}
	cases := map[string]Result{
		"google.com":         {Status: InWhitelist},
		"https://google.com": {Status: NotInWhitelist},
		"evil.net":           {Status: NotInWhitelist},
		"":                   {Error: ErrURLNotProvided},
		"   ":                {Error: ErrURLNotProvided},
	}
	for in, want := range cases {
		if got := wl.Check(in); got != want {
			t.Fatalf("Check(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestLoadWhitelistMissing(t *testing.T) {
	if _, err := LoadWhitelist(t.TempDir() + "/none.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func safeBrowsingServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v4/threatMatches:find" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("key") != "sb-key" {
			t.Errorf("missing api key, got %q", r.URL.RawQuery)
		}
		var req sbRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Client.ClientID != "guardian-virtual" || len(req.ThreatInfo.ThreatTypes) != 5 ||
			len(req.ThreatInfo.ThreatEntries) != 1 || req.ThreatInfo.PlatformTypes[0] != "ANY_PLATFORM" {
			t.Errorf("unexpected request body %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	}))
}

func TestSafeBrowsing(t *testing.T) {
	t.Setenv("TEST_SB_KEY", "sb-key")
	cases := []struct {
		response string
		want     Result
	}{
		{`{"matches":[{"threatType":"SOCIAL_ENGINEERING"}]}`, Result{Status: InBlacklist}},
		{`{}`, Result{Status: NotInBlacklist}},
		{`not json`, Result{Error: errBlacklist}},
	}
	for _, c := range cases {
		srv := safeBrowsingServer(t, c.response)
		sb := NewSafeBrowsing(config.ServiceConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_SB_KEY"}, srv.Client())
		if got := sb.Check(context.Background(), "http://evil.net/login"); got != c.want {
			t.Fatalf("response %s: got %+v, want %+v", c.response, got, c.want)
		}
		srv.Close()
	}
}

func TestSafeBrowsingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	sb := NewSafeBrowsing(config.ServiceConfig{BaseURL: srv.URL}, nil)
	if got := sb.Check(context.Background(), "http://evil.net"); got.Error != errBlacklist {
		t.Fatalf("got %+v", got)
	}
	if got := sb.Check(context.Background(), ""); got.Error != ErrURLNotProvided {
		t.Fatalf("got %+v", got)
	}
}

func TestOpenPageRank(t *testing.T) {
	t.Setenv("TEST_OPR_KEY", "opr-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("API-OPR") != "opr-key" {
			t.Errorf("missing API-OPR header")
		}
		domain := r.URL.Query().Get("domains[]")
		rank := 3.2
		if domain == "google.com" {
			rank = 10
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status_code": 200,
			"response": []map[string]any{{
				"status_code": 200, "error": "", "page_rank_integer": int(rank),
				"page_rank_decimal": rank, "rank": "1", "domain": domain,
			}},
			"last_updated": "15th Jan 2025",
		})
	}))
	defer srv.Close()

	opr := NewOpenPageRank(config.ServiceConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_OPR_KEY", RatePerSecond: 100}, srv.Client())

	pr := opr.Get(context.Background(), "google.com")
	if !pr.OK() || !pr.Popular() || pr.Response[0].Domain != "google.com" {
		t.Fatalf("unexpected payload %+v", pr)
	}
	pr = opr.Get(context.Background(), "evil.net")
	if d, ok := pr.Decimal(); !ok || d != 3.2 || pr.Popular() {
		t.Fatalf("unexpected payload %+v", pr)
	}
	if pr := opr.Get(context.Background(), ""); pr.Error != ErrURLNotProvided {
		t.Fatalf("unexpected payload %+v", pr)
	}
}

func TestOpenPageRankError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()
	pr := NewOpenPageRank(config.ServiceConfig{BaseURL: srv.URL}, srv.Client()).Get(context.Background(), "x.com")
	if pr.Error != errPageRank || pr.Popular() {
		t.Fatalf("unexpected payload %+v", pr)
	}
}

func TestParseWhoisDate(t *testing.T) {
	want := time.Date(1995, 8, 14, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"1995-08-14", "19950814", "14-Aug-1995", "1995/08/14", "1995.08.14", "14.08.1995", "before 19950814 "} {
		got, ok := ParseWhoisDate(raw)
		if !ok || !got.Equal(want) {
			t.Fatalf("ParseWhoisDate(%q) = %v, %v", raw, got, ok)
		}
	}
	if got, ok := ParseWhoisDate("1995-08-14T04:00:00Z"); !ok || got.Hour() != 4 {
		t.Fatalf("RFC3339 date: %v %v", got, ok)
	}
	for _, raw := range []string{"", "   ", "sometime in 95"} {
		if _, ok := ParseWhoisDate(raw); ok {
			t.Fatalf("ParseWhoisDate(%q) should fail", raw)
		}
	}
}

// startDNS serves the given TXT records on a local UDP port. Names not in
// the map answer NXDOMAIN.
func startDNS(t *testing.T, records map[string][]string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		name := r.Question[0].Name
		txts, ok := records[name]
		if !ok {
			m.Rcode = dns.RcodeNameError
		}
		for _, txt := range txts {
			m.Answer = append(m.Answer, &dns.TXT{
				Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
				Txt: []string{txt},
			})
		}
		w.WriteMsg(m)
	})}
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

const sampleWhois = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.iana.org
Registrar URL: http://res-dom.iana.org
Updated Date: 2024-08-14T07:01:34Z
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2025-08-13T04:00:00Z
Registrar: RESERVED-Internet Assigned Numbers Authority
Domain Status: clientDeleteProhibited
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
DNSSEC: signedDelegation
`

func testIntel(server string, whoisFn func(string) (string, error)) *DomainIntel {
	return &DomainIntel{
		whois:     whoisFn,
		dnsClient: &dns.Client{Timeout: 2 * time.Second},
		dnsServer: server,
		now:       func() time.Time { return time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC) },
	}
}

func TestDomainIntel(t *testing.T) {
	server := startDNS(t, map[string][]string{
		"example.com.":        {"v=spf1 -all", "google-site-verification=abc"},
		"_dmarc.example.com.": {"v=DMARC1; p=reject"},
	})
	var queried string
	intel := testIntel(server, func(domain string) (string, error) {
		queried = domain
		return sampleWhois, nil
	})

	var rf config.ReputationFeatures
	if errs := intel.Lookup(context.Background(), "https://login.example.com/path", &rf); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if queried != "example.com" {
		t.Fatalf("whois queried %q, want the registrable domain", queried)
	}
	if !rf.HasDNSRecord || !rf.HasSPF || !rf.HasDMARC || !rf.HasWhois {
		t.Fatalf("unexpected features %+v", rf)
	}
	if rf.DomainCreationDate != "1995-08-14T04:00:00Z" || rf.DomainEndPeriod != "2025-08-13T04:00:00Z" || rf.DomainAge != 30 {
		t.Fatalf("unexpected whois features %+v", rf)
	}
}

func TestDomainIntelFailures(t *testing.T) {
	server := startDNS(t, map[string][]string{})
	intel := testIntel(server, func(string) (string, error) { return "", errors.New("connection refused") })

	var rf config.ReputationFeatures
	errs := intel.Lookup(context.Background(), "http://nowhere.test/", &rf)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "whois_extraction_failed:") {
		t.Fatalf("unexpected errors %v", errs)
	}
	if rf.HasDNSRecord || rf.HasSPF || rf.HasDMARC || rf.HasWhois {
		t.Fatalf("unexpected features %+v", rf)
	}

	errs = intel.Lookup(context.Background(), "/relative/only", &rf)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "domain_parse_failed:") {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestDomainIntelWhoisFailures(t *testing.T) {
	server := startDNS(t, map[string][]string{"example.com.": nil})
	lookups := map[string]func(string) (string, error){
		"panic": func(string) (string, error) { panic("boom") },
		"empty": func(string) (string, error) { return "", nil },
	}
	for name, fn := range lookups {
		var rf config.ReputationFeatures
		errs := testIntel(server, fn).Lookup(context.Background(), "https://example.com", &rf)
		if len(errs) != 1 || !strings.HasPrefix(errs[0], "whois_extraction_failed:") {
			t.Fatalf("%s: unexpected errors %v", name, errs)
		}
		if rf.HasWhois || !rf.HasDNSRecord {
			t.Fatalf("%s: unexpected features %+v", name, rf)
		}
	}
}

func TestCheckerEmptyURL(t *testing.T) {
	rep := (&Checker{}).Check(context.Background(), "")
	if rep.Whitelist.Error != ErrURLNotProvided || rep.Blacklist.Error != ErrURLNotProvided || rep.PageRank.Error != ErrURLNotProvided {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestChecker(t *testing.T) {
	sb := safeBrowsingServer(t, `{"matches":[{}]}`)
	defer sb.Close()
	opr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code":200,"response":[{"status_code":200,"page_rank_decimal":2.5,"domain":"example.com"}]}`))
	}))
	defer opr.Close()
	t.Setenv("TEST_SB_KEY", "sb-key")

	wl, _ := ReadWhitelist(strings.NewReader("1,example.com\n"))
	dnsAddr := startDNS(t, map[string][]string{"example.com.": {"v=spf1 -all"}})
	c := &Checker{
		Whitelist:    wl,
		SafeBrowsing: NewSafeBrowsing(config.ServiceConfig{BaseURL: sb.URL, APIKeyEnv: "TEST_SB_KEY"}, sb.Client()),
		PageRank:     NewOpenPageRank(config.ServiceConfig{BaseURL: opr.URL}, opr.Client()),
		Intel:        testIntel(dnsAddr, func(string) (string, error) { return sampleWhois, nil }),
		Timeout:      5 * time.Second,
	}

	rep := c.Check(context.Background(), "https://mail.example.com/login")
	if rep.Whitelist.Status != InWhitelist || rep.Blacklist.Status != InBlacklist {
		t.Fatalf("unexpected list results %+v %+v", rep.Whitelist, rep.Blacklist)
	}
	f := rep.Features
	if f.WhitelistStatus != InWhitelist || f.BlacklistStatus != InBlacklist || !f.HasPageRank || f.PageRank != 2.5 || f.Popular {
		t.Fatalf("unexpected features %+v", f)
	}
	if !f.HasSPF || f.HasDMARC || !f.HasWhois {
		t.Fatalf("unexpected intel %+v", f)
	}
	if len(rep.Errors) != 0 {
		t.Fatalf("unexpected errors %v", rep.Errors)
	}
}
