package config

import (
	"fmt"
	"strconv"
	"strings"
)

// 🌎 Reputation & domain info gathered next to a verdict. Never fed to a classifier.
type ReputationFeatures struct {
	WhitelistStatus    string  `json:"whitelist_status,omitempty"`
	BlacklistStatus    string  `json:"blacklist_status,omitempty"`
	PageRank           float64 `json:"page_rank_decimal"`
	HasPageRank        bool    `json:"has_page_rank"`
	Popular            bool    `json:"popular"` // page rank above 7
	DomainAge          int     `json:"domain_age"`
	DomainCreationDate string  `json:"domain_creation_date,omitempty"`
	DomainEndPeriod    string  `json:"domain_end_period,omitempty"`
	HasDNSRecord       bool    `json:"has_dns_record"`
	HasWhois           bool    `json:"has_whois"`
	HasSPF             bool    `json:"has_spf"`
	HasDMARC           bool    `json:"has_dmarc"`
}

// 🏷️ Verdict is the per-job output: one classification plus everything
// gathered around it.
type Verdict struct {
	Kind             string              `json:"kind"` // url | content | message
	Input            string              `json:"input"`
	Depth            int                 `json:"depth"`
	Label            *int                `json:"label,omitempty"`
	Expected         *int                `json:"expected_label,omitempty"` // ground truth, e.g. from PhishTank
	Error            string              `json:"error,omitempty"`
	URL              *URLFeatures        `json:"url_features,omitempty"`
	Content          *ContentFeatures    `json:"content_features,omitempty"`
	Reputation       *ReputationFeatures `json:"reputation,omitempty"`
	ExtractionErrors []string            `json:"extraction_errors,omitempty"`
	Refs             []Ref               `json:"refs,omitempty"`
}

var EdgeCSVHeader = []string{
	"Source", "url", "is_same_domain", "is_form",
	"is_anchor", "is_iframe",
}

// VerdictCSVHeader is the header row of the verdict CSV file.
var VerdictCSVHeader = []string{
	"kind", "input", "depth", "label", "error",

	// Reputation
	"whitelist_status", "blacklist_status", "page_rank_decimal", "popular",
	"domain_age", "domain_creation_date", "domain_end_period",
	"has_dns_record", "has_whois", "has_spf", "has_dmarc",

	// Refs (flattened for CSV)
	"refs_count", "refs_same_domain_count",

	"extraction_errors",

	"expected_label",
}

// unexported helper to convert boolean to "True" or "False"
func btoi(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ToEdgeCSVRow creates a formatted slice for the edge CSV.
func (r *Ref) ToEdgeCSVRow(sourceURL string) []string {
	return []string{
		sourceURL,
		r.URL,
		btoi(r.IsSameDomain),
		btoi(r.IsForm),
		btoi(r.IsAnchor),
		btoi(r.IsIframe),
	}
}

// GetCSVHeader returns the header row for the CSV file.
func (v Verdict) GetCSVHeader() []string {
	return VerdictCSVHeader
}

// ToCSVRow converts the verdict into a slice of strings for CSV output.
// Empty cells mean "not collected", not zero.
func (v Verdict) ToCSVRow() []string {
	refsSameDomainCount := 0
	for _, ref := range v.Refs {
		if ref.IsSameDomain {
			refsSameDomainCount++
		}
	}
	rep := v.Reputation

	row := make([]string, len(VerdictCSVHeader))
	for i, header := range VerdictCSVHeader {
		switch header {
		case "kind":
			row[i] = v.Kind
		case "input":
			row[i] = v.Input
		case "depth":
			row[i] = strconv.Itoa(v.Depth)
		case "label":
			if v.Label != nil {
				row[i] = strconv.Itoa(*v.Label)
			}
		case "error":
			row[i] = v.Error

		// --- Reputation ---
		case "whitelist_status":
			if rep != nil {
				row[i] = rep.WhitelistStatus
			}
		case "blacklist_status":
			if rep != nil {
				row[i] = rep.BlacklistStatus
			}
		case "page_rank_decimal":
			if rep != nil && rep.HasPageRank {
				row[i] = fmt.Sprintf("%.2f", rep.PageRank)
			}
		case "popular":
			if rep != nil && rep.HasPageRank {
				row[i] = btoi(rep.Popular)
			}
		case "domain_age":
			if rep != nil && rep.HasWhois { // only meaningful if WHOIS answered
				row[i] = strconv.Itoa(rep.DomainAge)
			}
		case "domain_creation_date":
			if rep != nil {
				row[i] = rep.DomainCreationDate
			}
		case "domain_end_period":
			if rep != nil {
				row[i] = rep.DomainEndPeriod
			}
		case "has_dns_record":
			if rep != nil {
				row[i] = btoi(rep.HasDNSRecord)
			}
		case "has_whois":
			if rep != nil {
				row[i] = btoi(rep.HasWhois)
			}
		case "has_spf":
			if rep != nil {
				row[i] = btoi(rep.HasSPF)
			}
		case "has_dmarc":
			if rep != nil {
				row[i] = btoi(rep.HasDMARC)
			}

		// --- Refs ---
		case "refs_count":
			row[i] = strconv.Itoa(len(v.Refs))
		case "refs_same_domain_count":
			row[i] = strconv.Itoa(refsSameDomainCount)

		case "extraction_errors":
			row[i] = strings.Join(v.ExtractionErrors, "; ")

		case "expected_label":
			if v.Expected != nil {
				row[i] = strconv.Itoa(*v.Expected)
			}

		default:
			row[i] = "" // Should not happen if VerdictCSVHeader is complete
		}
	}
	return row
}
