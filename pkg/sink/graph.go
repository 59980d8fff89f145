package sink

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"phishguard/pkg/config"
)

const (
	urlConstraint = `CREATE CONSTRAINT url_unique IF NOT EXISTS FOR (u:URL) REQUIRE u.url IS UNIQUE`

	mergeVerdict = `
MERGE (u:URL {url: $url})
SET u += $props
WITH u
UNWIND $refs AS ref
MERGE (t:URL {url: ref.url})
MERGE (u)-[r:LINKS_TO]->(t)
SET r.is_same_domain = ref.is_same_domain,
    r.is_form = ref.is_form,
    r.is_anchor = ref.is_anchor,
    r.is_iframe = ref.is_iframe`
)

// GraphWriter stores analyzed URLs as nodes and their outgoing references
// as LINKS_TO relationships.
type GraphWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGraphWriter connects to Neo4j and makes sure URL nodes are unique.
func NewGraphWriter(ctx context.Context, cfg config.GraphConfig, password string) (*GraphWriter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph uri is empty")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", cfg.URI, err)
	}
	g := &GraphWriter{driver: driver, database: cfg.Database}
	if _, err := g.run(ctx, urlConstraint, nil); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("create url constraint: %w", err)
	}
	return g, nil
}

// Write merges a URL verdict. Message verdicts have no place in the link
// graph and are ignored.
func (g *GraphWriter) Write(ctx context.Context, v config.Verdict) error {
	params, ok := verdictParams(v)
	if !ok {
		return nil
	}
	if _, err := g.run(ctx, mergeVerdict, params); err != nil {
		return fmt.Errorf("merge %s: %w", v.Input, err)
	}
	return nil
}

func (g *GraphWriter) Close() error {
	return g.driver.Close(context.Background())
}

func (g *GraphWriter) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if g.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(g.database))
	}
	return neo4j.ExecuteQuery(ctx, g.driver, query, params, neo4j.EagerResultTransformer, opts...)
}

// verdictParams builds the query parameters for a URL or content verdict.
// The url and content classifiers share one node, so their label and error
// properties are prefixed with the verdict kind.
func verdictParams(v config.Verdict) (map[string]any, bool) {
	if v.Kind == "message" || v.Input == "" {
		return nil, false
	}
	props := map[string]any{
		"depth": int64(v.Depth),
	}
	if v.Label != nil {
		props[v.Kind+"_label"] = int64(*v.Label)
	}
	if v.Error != "" {
		props[v.Kind+"_error"] = v.Error
	}
	if rep := v.Reputation; rep != nil {
		props["whitelist_status"] = rep.WhitelistStatus
		props["blacklist_status"] = rep.BlacklistStatus
		props["has_dns_record"] = rep.HasDNSRecord
		props["has_whois"] = rep.HasWhois
		props["has_spf"] = rep.HasSPF
		props["has_dmarc"] = rep.HasDMARC
		if rep.HasPageRank {
			props["page_rank_decimal"] = rep.PageRank
			props["popular"] = rep.Popular
		}
		if rep.HasWhois {
			props["domain_age"] = int64(rep.DomainAge)
		}
	}

	refs := make([]any, 0, len(v.Refs))
	for _, r := range v.Refs {
		refs = append(refs, map[string]any{
			"url":            r.URL,
			"is_same_domain": r.IsSameDomain,
			"is_form":        r.IsForm,
			"is_anchor":      r.IsAnchor,
			"is_iframe":      r.IsIframe,
		})
	}
	return map[string]any{"url": v.Input, "props": props, "refs": refs}, true
}
