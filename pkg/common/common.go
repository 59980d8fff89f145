package common

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// StripScheme removes every "http://" and "https://" occurrence and the
// quotes that wrap URLs in some exported datasets.
func StripScheme(raw string) string {
	s := strings.Trim(raw, "'")
	s = strings.ReplaceAll(s, "http://", "")
	s = strings.ReplaceAll(s, "https://", "")
	return s
}

// Host extracts the host part of a possibly scheme-less, possibly relative
// URL-ish string. Relative references and fragments have no host and yield "".
func Host(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case schemeRe.MatchString(s):
		s = s[len(schemeRe.FindString(s)):]
	case strings.HasPrefix(s, "//"):
		s = s[2:]
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "#"), strings.HasPrefix(s, "?"), strings.HasPrefix(s, "."):
		return ""
	}
	if i := strings.IndexAny(s, "/?#\\"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = stripPort(s)
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	return s
}

func stripPort(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if end := strings.Index(hostport, "]"); end > 0 {
			return hostport[1:end]
		}
		return strings.TrimPrefix(hostport, "[")
	}
	i := strings.LastIndex(hostport, ":")
	if i < 0 || strings.Count(hostport, ":") > 1 {
		return hostport
	}
	port := hostport[i+1:]
	for _, r := range port {
		if r < '0' || r > '9' {
			return hostport
		}
	}
	return hostport[:i]
}

// RegistrableDomain returns the eTLD+1 of raw ("mail.example.com" ->
// "example.com"). IP literals are returned as-is; hosts that are themselves
// a public suffix or have no dot are returned unchanged; strings without a
// host yield "".
func RegistrableDomain(raw string) string {
	host := Host(raw)
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// SameSite reports whether raw resolves to the registrable domain base.
func SameSite(raw, base string) bool {
	return RegistrableDomain(raw) == base
}

// HasNetloc reports whether raw carries a network location, the way a
// generic URL splitter sees it: "//" directly after the optional scheme.
func HasNetloc(raw string) bool {
	s := raw
	if i := strings.Index(s, ":"); i > 0 && isScheme(s[:i]) {
		s = s[i+1:]
	}
	if !strings.HasPrefix(s, "//") {
		return false
	}
	s = s[2:]
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s != ""
}

func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return s != ""
}

// NormalizeURL ensures a URL has a scheme.
func NormalizeURL(rawURL string) string {
	if rawURL != "" && !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}

// CanonicalizeURL standardizes a URL for consistent graph node representation.
func CanonicalizeURL(u *url.URL) string {
	// Convert scheme and host to lowercase
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	// Remove the fragment
	u.Fragment = ""
	return u.String()
}
