package reputation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/miekg/dns"

	"phishguard/pkg/common"
	"phishguard/pkg/config"
)

const dateLayout = "2006-01-02T15:04:05Z"

var compactDateRe = regexp.MustCompile(`(\d{8})`)

// DomainIntel gathers WHOIS and DNS facts about a URL's registrable domain.
type DomainIntel struct {
	whois     func(domain string) (string, error)
	dnsClient *dns.Client
	dnsServer string
	now       func() time.Time
}

// NewDomainIntel uses the resolver configured in cfg.
func NewDomainIntel(cfg config.ReputationConfig) *DomainIntel {
	client := whois.NewClient()
	client.SetTimeout(time.Duration(cfg.TimeoutSecond) * time.Second)
	return &DomainIntel{
		whois:     func(domain string) (string, error) { return client.Whois(domain) },
		dnsClient: &dns.Client{Timeout: time.Duration(cfg.TimeoutSecond) * time.Second},
		dnsServer: cfg.DNSServer,
		now:       time.Now,
	}
}

// Lookup fills the domain fields of rf. Failures of individual lookups are
// returned as extraction error strings and leave their fields zero.
func (d *DomainIntel) Lookup(ctx context.Context, rawURL string, rf *config.ReputationFeatures) []string {
	var errs []string
	domain := common.RegistrableDomain(rawURL)
	if domain == "" {
		return append(errs, "domain_parse_failed:no host in "+rawURL)
	}
	if err := d.lookupDNS(ctx, domain, rf); err != nil {
		errs = append(errs, "dns_lookup_failed:"+err.Error())
	}
	if err := d.extractWhois(ctx, domain, rf); err != nil {
		errs = append(errs, "whois_extraction_failed:"+err.Error())
	}
	return errs
}

// Extract Whois Info Of Domain
func (d *DomainIntel) extractWhois(ctx context.Context, domain string, rf *config.ReputationFeatures) (err error) {
	// the parser panics on some registry formats
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in whoisparser for domain %s: %v", domain, r)
		}
	}()

	type whoisResult struct {
		raw string
		err error
	}
	resultChan := make(chan whoisResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- whoisResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		raw, err := d.whois(domain)
		resultChan <- whoisResult{raw: raw, err: err}
	}()

	var res whoisResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-resultChan:
	}
	if res.err != nil {
		return fmt.Errorf("whois lookup for '%s' failed: %w", domain, res.err)
	}

	info, err := whoisparser.Parse(res.raw)
	if err != nil {
		return fmt.Errorf("whoisparser for '%s' failed: %w", domain, err)
	}
	rf.HasWhois = true
	if info.Domain == nil {
		return nil
	}
	if created, ok := ParseWhoisDate(info.Domain.CreatedDate); ok {
		rf.DomainCreationDate = created.Format(dateLayout)
		rf.DomainAge = int(d.now().Sub(created).Hours() / 24 / 365)
	}
	if expires, ok := ParseWhoisDate(info.Domain.ExpirationDate); ok {
		rf.DomainEndPeriod = expires.Format(dateLayout)
	}
	return nil
}

// lookupDNS checks that the domain resolves and looks for SPF in its TXT
// records and DMARC at _dmarc.<domain>.
func (d *DomainIntel) lookupDNS(ctx context.Context, domain string, rf *config.ReputationFeatures) error {
	in, err := d.queryTXT(ctx, domain)
	if err != nil {
		return err
	}
	// NOERROR means the name exists even without TXT records
	if in.Rcode == dns.RcodeSuccess {
		rf.HasDNSRecord = true
	}
	for _, txt := range txtStrings(in) {
		if strings.HasPrefix(txt, "v=spf1") {
			rf.HasSPF = true
		} else if strings.Contains(strings.ToLower(txt), "dmarc") {
			rf.HasDMARC = true
		}
	}
	if rf.HasDMARC {
		return nil
	}

	in, err = d.queryTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return fmt.Errorf("dmarc lookup: %w", err)
	}
	for _, txt := range txtStrings(in) {
		if strings.HasPrefix(strings.ToUpper(txt), "V=DMARC1") {
			rf.HasDMARC = true
		}
	}
	return nil
}

func (d *DomainIntel) queryTXT(ctx context.Context, name string) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true
	in, _, err := d.dnsClient.ExchangeContext(ctx, m, d.dnsServer)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func txtStrings(in *dns.Msg) []string {
	var out []string
	for _, rr := range in.Answer {
		if t, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(t.Txt, ""))
		}
	}
	return out
}

// ParseWhoisDate reads the many date spellings registries use. A compact
// YYYYMMDD run anywhere in the string wins over the layouts.
func ParseWhoisDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if m := compactDateRe.FindStringSubmatch(raw); len(m) > 1 {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t, true
		}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02-Jan-2006",
		"2006/01/02",
		"2006.01.02",
		"02.01.2006",
		"2006-01-02 15:04:05 MST",
		time.RFC1123,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
