// Package structural derives the content classifier's feature row from a
// fetched HTML page and the URL it was fetched from.
package structural

import (
	neturl "net/url"
	"path/filepath"
	"strings"

	"phishguard/pkg/common"
	"phishguard/pkg/config"
	"phishguard/pkg/features"
)

// Form actions that submit nowhere useful.
var abnormalActions = map[string]bool{
	"#":               true,
	"about:blank":     true,
	"":                true,
	"javascript:true": true,
}

// Define irrelevant extensions for outgoing references
var irrelevantExtensions = map[string]bool{
	".css": true, ".js": true, ".ico": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
}

// Analyzer computes page structure features. It holds no state and is safe
// for concurrent use.
type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

// page carries what every sub-feature needs, computed once.
type page struct {
	doc        *Document
	url        string
	baseDomain string
	anchors    []Element
	forms      []Element
}

// Analyze parses markup and computes the feature row. Missing attributes
// and tags count as absent; an error is returned only when the markup
// cannot be read at all.
func (a *Analyzer) Analyze(markup, pageURL string) (config.ContentFeatures, error) {
	doc, err := Parse(markup)
	if err != nil {
		return config.ContentFeatures{}, err
	}
	p := &page{
		doc:        doc,
		url:        pageURL,
		baseDomain: common.RegistrableDomain(pageURL),
		anchors:    doc.Find("a[href]"),
		forms:      doc.Find("form[action]"),
	}

	cf := config.ContentFeatures{
		PctExtHyperlinks:              p.pctExtHyperlinks(),
		PctExtResourceUrls:            p.pctExtResourceURLs(),
		ExtFavicon:                    p.extFavicon(),
		InsecureForms:                 p.anyForm(func(action string) bool { return !strings.Contains(action, "https://") }),
		RelativeFormAction:            p.anyForm(func(action string) bool { return !common.HasNetloc(action) }),
		ExtFormAction:                 p.anyForm(func(action string) bool { return !p.sameSite(action) }),
		AbnormalFormAction:            p.anyForm(func(action string) bool { return abnormalActions[action] }),
		PctNullSelfRedirectHyperlinks: p.pctNullSelfRedirectHyperlinks(),
		FrequentDomainNameMismatch:    p.frequentDomainMismatch(),
		FakeLinkInStatusBar:           doc.Contains("onMouseOver") && doc.Contains("window.status"),
		RightClickDisabled:            doc.Contains("document.oncontextmenu") || doc.Contains("return false;"),
		PopUpWindow:                   doc.Contains("window.open"),
		SubmitInfoToEmail:             doc.Contains("mailto:"),
		IframeOrFrame:                 doc.HasTag("iframe") || doc.HasTag("frame"),
		MissingTitle:                  p.missingTitle(),
		ImagesOnlyInForm:              p.imagesOnlyInForm(),

		PctExtResourceUrlsRT:               features.DiscretizeCount(p.countExtResources()),
		AbnormalExtFormActionR:             p.abnormalExtFormActionR(),
		ExtMetaScriptLinkRT:                p.extMetaScriptLinkRT(),
		PctExtNullSelfRedirectHyperlinksRT: p.pctExtNullSelfRedirectHyperlinksRT(),
	}
	cf.Refs = p.refs()
	return cf, nil
}

func (p *page) sameSite(raw string) bool {
	return common.SameSite(raw, p.baseDomain)
}

func ratio(count, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(count) / float64(total)
}

func (p *page) pctExtHyperlinks() float64 {
	ext := 0
	for _, a := range p.anchors {
		href, _ := a.Attr("href")
		if !p.sameSite(href) {
			ext++
		}
	}
	return ratio(ext, len(p.anchors))
}

// countExtResources counts <img|script|link> tags carrying a src. A
// stylesheet <link href> is not a resource here.
func (p *page) countExtResources() (ext, total int) {
	for _, e := range p.doc.Find("img[src], script[src], link[src]") {
		v, _ := e.Attr("src")
		total++
		if !p.sameSite(v) {
			ext++
		}
	}
	return ext, total
}

func (p *page) pctExtResourceURLs() float64 {
	return ratio(p.countExtResources())
}

func (p *page) extFavicon() bool {
	for _, link := range p.doc.Find("link[rel]") {
		if !link.HasToken("rel", "icon") {
			continue
		}
		// only the first icon link counts
		href, ok := link.Attr("href")
		return ok && !p.sameSite(href)
	}
	return false
}

func (p *page) anyForm(pred func(action string) bool) bool {
	for _, f := range p.forms {
		action, _ := f.Attr("action")
		if pred(action) {
			return true
		}
	}
	return false
}

func (p *page) pctNullSelfRedirectHyperlinks() float64 {
	count := 0
	for _, a := range p.anchors {
		href, _ := a.Attr("href")
		if href == "" || href == "#" || href == p.url || strings.HasPrefix(href, "file://") {
			count++
		}
	}
	return ratio(count, len(p.anchors))
}

// frequentDomainMismatch reports whether the most linked-to domain differs
// from the page's own. Ties go to the domain seen first.
func (p *page) frequentDomainMismatch() bool {
	if len(p.anchors) == 0 {
		return false
	}
	counts := make(map[string]int)
	var order []string
	for _, a := range p.anchors {
		href, _ := a.Attr("href")
		d := common.RegistrableDomain(href)
		if _, seen := counts[d]; !seen {
			order = append(order, d)
		}
		counts[d]++
	}
	best := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best != p.baseDomain
}

func (p *page) missingTitle() bool {
	title, ok := p.doc.Title()
	return !ok || title == ""
}

// imagesOnlyInForm reports any form whose descendant elements are all
// <img>. A form with no elements at all qualifies.
func (p *page) imagesOnlyInForm() bool {
	for _, f := range p.doc.Find("form") {
		imagesOnly := true
		for _, name := range f.DescendantNames() {
			if name != "img" {
				imagesOnly = false
				break
			}
		}
		if imagesOnly {
			return true
		}
	}
	return false
}

func (p *page) abnormalExtFormActionR() features.Score {
	abnormal := 0
	for _, f := range p.forms {
		action, _ := f.Attr("action")
		if !p.sameSite(action) || action == "about:blank" || action == "" {
			abnormal++
		}
	}
	return features.DiscretizeCount(abnormal, len(p.forms))
}

func (p *page) extMetaScriptLinkRT() features.Score {
	var values []string
	for _, m := range p.doc.Find("meta[content]") {
		v, _ := m.Attr("content")
		values = append(values, v)
	}
	for _, s := range p.doc.Find("script[src]") {
		v, _ := s.Attr("src")
		values = append(values, v)
	}
	for _, l := range p.doc.Find("link[href]") {
		v, ok := l.Attr("src")
		if !ok {
			v, _ = l.Attr("href")
		}
		values = append(values, v)
	}
	ext := 0
	for _, v := range values {
		if !p.sameSite(v) {
			ext++
		}
	}
	return features.DiscretizeCount(ext, len(values))
}

func (p *page) pctExtNullSelfRedirectHyperlinksRT() features.Score {
	abnormal := 0
	for _, a := range p.anchors {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "#") || strings.Contains(href, "javascript:void(0)") || !p.sameSite(href) {
			abnormal++
		}
	}
	return features.DiscretizeCount(abnormal, len(p.anchors))
}

// refs lists the page's outgoing anchors, form actions and iframes resolved
// against the page URL. Self links and static assets are skipped.
func (p *page) refs() []config.Ref {
	base, err := neturl.Parse(p.url)
	if err != nil {
		return nil
	}
	source := common.CanonicalizeURL(&neturl.URL{Scheme: base.Scheme, Host: base.Host, Path: base.Path, RawQuery: base.RawQuery})

	var refs []config.Ref
	add := func(raw string, ref config.Ref) {
		u, err := neturl.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		abs := base.ResolveReference(u)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if irrelevantExtensions[strings.ToLower(filepath.Ext(abs.Path))] {
			return
		}
		target := common.CanonicalizeURL(abs)
		if target == source {
			return
		}
		ref.URL = target
		ref.IsSameDomain = p.sameSite(target)
		refs = append(refs, ref)
	}

	for _, a := range p.anchors {
		href, _ := a.Attr("href")
		add(href, config.Ref{IsAnchor: true})
	}
	for _, f := range p.forms {
		action, _ := f.Attr("action")
		add(action, config.Ref{IsForm: true})
	}
	for _, f := range p.doc.Find("iframe[src]") {
		src, _ := f.Attr("src")
		add(src, config.Ref{IsIframe: true})
	}
	return refs
}
