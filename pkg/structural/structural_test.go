package structural

import (
	"testing"

	"phishguard/pkg/config"
	"phishguard/pkg/features"
)

func analyze(t *testing.T, markup, pageURL string) config.ContentFeatures {
	t.Helper()
	cf, err := New().Analyze(markup, pageURL)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return cf
}

func TestEmptyPageDefaults(t *testing.T) {
	cf := analyze(t, "<html><head></head><body></body></html>", "https://example.com/")

	if cf.PctExtHyperlinks != 0.0 {
		t.Fatalf("PctExtHyperlinks = %v, want 0.0 when there are no links", cf.PctExtHyperlinks)
	}
	if cf.PctNullSelfRedirectHyperlinks != 0.0 || cf.PctExtResourceUrls != 0.0 {
		t.Fatalf("ratios should be 0.0 on absence: %+v", cf)
	}
	rt := []features.Score{
		cf.PctExtResourceUrlsRT,
		cf.AbnormalExtFormActionR,
		cf.ExtMetaScriptLinkRT,
		cf.PctExtNullSelfRedirectHyperlinksRT,
	}
	for i, s := range rt {
		if s != features.Legit {
			t.Fatalf("RT feature %d = %v, want legit on absence", i, s)
		}
	}
	if cf.FrequentDomainNameMismatch {
		t.Fatal("no links cannot mismatch")
	}
	if !cf.MissingTitle {
		t.Fatal("page has no title")
	}
	if len(cf.Row()) != len(config.ContentColumns) {
		t.Fatal("row does not match content schema")
	}
}

func TestJavascriptFormAction(t *testing.T) {
	cf := analyze(t, `<html><body><form action="javascript:true"></form></body></html>`, "https://example.com/login")

	if !cf.AbnormalFormAction {
		t.Fatal("javascript:true is an abnormal action")
	}
	if cf.AbnormalExtFormActionR != features.Unsafe {
		t.Fatalf("AbnormalExtFormActionR = %v, want unsafe (1 of 1 forms)", cf.AbnormalExtFormActionR)
	}
	if !cf.InsecureForms || !cf.RelativeFormAction || !cf.ExtFormAction {
		t.Fatalf("unexpected form flags: %+v", cf)
	}
	if !cf.ImagesOnlyInForm {
		t.Fatal("a form without elements counts as images-only")
	}
}

func TestSecureSameSiteForm(t *testing.T) {
	cf := analyze(t, `<form action="https://accounts.example.com/post"><input name="u"><img src="x.png"></form>`, "https://www.example.com/")
	if cf.InsecureForms || cf.RelativeFormAction || cf.ExtFormAction || cf.AbnormalFormAction {
		t.Fatalf("unexpected form flags: %+v", cf)
	}
	if cf.AbnormalExtFormActionR != features.Legit {
		t.Fatalf("AbnormalExtFormActionR = %v", cf.AbnormalExtFormActionR)
	}
	if cf.ImagesOnlyInForm {
		t.Fatal("form with an input is not images-only")
	}
}

func TestImagesOnlyForm(t *testing.T) {
	cf := analyze(t, `<form action="https://example.com/s"><img src="a.png"><img src="b.png"></form>`, "https://example.com/")
	if !cf.ImagesOnlyInForm {
		t.Fatal("expected images-only form")
	}
}

func TestHyperlinkRatiosUseRegistrableDomain(t *testing.T) {
	markup := `<html><head><title>Shop</title></head><body>
<a href="https://shop.example.com/a">a</a>
<a href="https://www.example.com/b">b</a>
<a href="https://evil.net/x">x</a>
<a href="#">top</a>
<a href="https://mail.example.com/inbox">self</a>
</body></html>`
	cf := analyze(t, markup, "https://mail.example.com/inbox")

	// evil.net and "#" have no example.com registrable domain
	if cf.PctExtHyperlinks != 0.4 {
		t.Fatalf("PctExtHyperlinks = %v, want 0.4", cf.PctExtHyperlinks)
	}
	// "#" and the page's own URL
	if cf.PctNullSelfRedirectHyperlinks != 0.4 {
		t.Fatalf("PctNullSelfRedirectHyperlinks = %v, want 0.4", cf.PctNullSelfRedirectHyperlinks)
	}
	if cf.FrequentDomainNameMismatch {
		t.Fatal("example.com is the most frequent domain")
	}
	// 2 of 5 abnormal -> 40%
	if cf.PctExtNullSelfRedirectHyperlinksRT != features.Suspicious {
		t.Fatalf("PctExtNullSelfRedirectHyperlinksRT = %v", cf.PctExtNullSelfRedirectHyperlinksRT)
	}
	if cf.MissingTitle {
		t.Fatal("title is present")
	}
}

func TestFrequentDomainMismatch(t *testing.T) {
	markup := `<a href="https://evil.net/1">1</a><a href="https://cdn.evil.net/2">2</a><a href="https://example.com/">home</a>`
	cf := analyze(t, markup, "https://example.com/")
	if !cf.FrequentDomainNameMismatch {
		t.Fatal("evil.net dominates the links")
	}
}

func TestFrequentDomainTieGoesToFirstSeen(t *testing.T) {
	first := analyze(t, `<a href="https://example.com/a">a</a><a href="https://evil.net/b">b</a>`, "https://example.com/")
	if first.FrequentDomainNameMismatch {
		t.Fatal("tie should resolve to the first seen domain (example.com)")
	}
	second := analyze(t, `<a href="https://evil.net/b">b</a><a href="https://example.com/a">a</a>`, "https://example.com/")
	if !second.FrequentDomainNameMismatch {
		t.Fatal("tie should resolve to the first seen domain (evil.net)")
	}
}

func TestResourcesAndFavicon(t *testing.T) {
	markup := `<html><head>
<link rel="stylesheet" href="https://static.other.com/s.css">
<link rel="shortcut icon" href="https://example.com/favicon.ico">
<link rel="preload" src="https://cdn.other.com/font.woff">
<script src="https://www.example.com/app.js"></script>
<script>var inline = 1;</script>
</head><body><img src="https://example.com/a.png"><img alt="no source"></body></html>`
	cf := analyze(t, markup, "https://example.com/")

	// link[src] on cdn.other.com is the only external of three src-carrying tags
	if got := cf.PctExtResourceUrls; got < 0.33 || got > 0.34 {
		t.Fatalf("PctExtResourceUrls = %v, want 1/3", got)
	}
	if cf.PctExtResourceUrlsRT != features.Suspicious {
		t.Fatalf("PctExtResourceUrlsRT = %v", cf.PctExtResourceUrlsRT)
	}
	if cf.ExtFavicon {
		t.Fatal("favicon is served from example.com")
	}
}

func TestResourcesIgnoreStylesheetHref(t *testing.T) {
	markup := `<html><head>
<link rel="stylesheet" href="https://a.other.com/1.css">
<link rel="stylesheet" href="https://b.other.com/2.css">
<link rel="stylesheet" href="https://c.other.com/3.css">
</head><body><img src="/logo.png"><img src="https://example.com/logo.png"></body></html>`
	cf := analyze(t, markup, "https://example.com/")

	// the relative src has no registrable domain and counts as external
	if cf.PctExtResourceUrls != 0.5 {
		t.Fatalf("PctExtResourceUrls = %v, want 0.5", cf.PctExtResourceUrls)
	}

	cf = analyze(t, `<link rel="stylesheet" href="https://a.other.com/1.css">
<link rel="stylesheet" href="https://b.other.com/2.css">
<link rel="stylesheet" href="https://c.other.com/3.css">
<img src="https://example.com/logo.png">`, "https://example.com/")
	if cf.PctExtResourceUrls != 0.0 {
		t.Fatalf("PctExtResourceUrls = %v, want 0", cf.PctExtResourceUrls)
	}
	if cf.PctExtResourceUrlsRT != features.Legit {
		t.Fatalf("PctExtResourceUrlsRT = %v, want Legit", cf.PctExtResourceUrlsRT)
	}
	if cf.ExtMetaScriptLinkRT != features.Unsafe {
		t.Fatalf("ExtMetaScriptLinkRT = %v, stylesheet hrefs still count there", cf.ExtMetaScriptLinkRT)
	}
}

func TestExternalFavicon(t *testing.T) {
	cf := analyze(t, `<link rel="icon" href="https://other.org/favicon.ico">`, "https://example.com/")
	if !cf.ExtFavicon {
		t.Fatal("favicon from other.org should be external")
	}
	cf = analyze(t, `<link rel="icon">`, "https://example.com/")
	if cf.ExtFavicon {
		t.Fatal("icon link without href is treated as absent")
	}
}

func TestRawMarkupFlags(t *testing.T) {
	markup := `<a onMouseOver="window.status='https://bank.com'">x</a>
<script>document.oncontextmenu = function(){ return false; }; window.open("x"); </script>
<a href="mailto:drop@evil.net">send</a>`
	cf := analyze(t, markup, "https://example.com/")
	if !cf.FakeLinkInStatusBar || !cf.RightClickDisabled || !cf.PopUpWindow || !cf.SubmitInfoToEmail {
		t.Fatalf("raw markup flags not set: %+v", cf)
	}

	clean := analyze(t, `<title>ok</title><p>hello</p>`, "https://example.com/")
	if clean.FakeLinkInStatusBar || clean.RightClickDisabled || clean.PopUpWindow || clean.SubmitInfoToEmail || clean.IframeOrFrame {
		t.Fatalf("unexpected flags on clean page: %+v", clean)
	}
}

func TestIframeAndFrame(t *testing.T) {
	if !analyze(t, `<iframe src="https://evil.net"></iframe>`, "https://example.com/").IframeOrFrame {
		t.Fatal("iframe not detected")
	}
	if !analyze(t, `<body><frame src="x.html"></body>`, "https://example.com/").IframeOrFrame {
		t.Fatal("stray frame not detected")
	}
}

func TestWhitespaceTitleIsMissing(t *testing.T) {
	if !analyze(t, "<title>   \n </title>", "https://example.com/").MissingTitle {
		t.Fatal("whitespace-only title counts as missing")
	}
}

func TestMalformedMarkup(t *testing.T) {
	inputs := []string{"", "<", "<a href", "<form action=", "<<<>>>", "<a href=\"https://x.com\"><div></a></form></table>"}
	for _, in := range inputs {
		cf := analyze(t, in, "not a url")
		if len(cf.Row()) != len(config.ContentColumns) {
			t.Fatalf("%q: incomplete row", in)
		}
	}
}

func TestRefs(t *testing.T) {
	markup := `<a href="https://example.com/index.html#top">top</a>
<a href="about.html">about</a>
<a href="https://evil.net/steal">steal</a>
<a href="style.css">css</a>
<form action="https://evil.net/post"></form>`
	cf := analyze(t, markup, "https://example.com/index.html")

	if len(cf.Refs) != 3 {
		t.Fatalf("got %d refs: %+v", len(cf.Refs), cf.Refs)
	}
	if cf.Refs[0].URL != "https://example.com/about.html" || !cf.Refs[0].IsSameDomain || !cf.Refs[0].IsAnchor {
		t.Fatalf("unexpected first ref %+v", cf.Refs[0])
	}
	if cf.Refs[1].IsSameDomain {
		t.Fatalf("evil.net ref marked same-domain: %+v", cf.Refs[1])
	}
	if !cf.Refs[2].IsForm {
		t.Fatalf("expected form ref, got %+v", cf.Refs[2])
	}
}
