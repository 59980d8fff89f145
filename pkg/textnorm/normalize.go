// Package textnorm turns free-form message text into the normalized token
// string the message classifier was trained on, and projects it through the
// fitted TF-IDF artifact.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonLetterRe = regexp.MustCompile(`[^a-zA-Z\s]`)

	// second pass over the joined string
	bracketRe     = regexp.MustCompile(`\[.*?\]`)
	mentionRe     = regexp.MustCompile(`@\w+\s*`)
	nonWordRe     = regexp.MustCompile(`\W`)
	linkRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	httpRe        = regexp.MustCompile(`http`)
	tagRe         = regexp.MustCompile(`<.*?>+`)
	punctuationRe = regexp.MustCompile(`[` + regexp.QuoteMeta("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~") + `]`)
	digitWordRe   = regexp.MustCompile(`\w*\d\w*`)
	emojiRe       = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}]`)
)

// Corpus artifacts of the training set, removed after stemming.
var domainStoplist = map[string]bool{
	"subject": true, "submiss": true, "note": true, "viru": true,
	"virutotal": true, "submissionid": true, "email": true, "messag": true,
	"file": true, "enron": true, "mail": true, "sender": true,
	"receiv": true, "attach": true, "total": true,
}

// Normalize runs the full pipeline over text. Every stage is total: empty,
// whitespace-only and non-ASCII input all produce a (possibly empty) string.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = StripAccents(s)
	s = nonLetterRe.ReplaceAllString(s, "")
	s = ExpandContractions(s)

	var kept []string
	for _, tok := range strings.Fields(s) {
		if Stopwords[tok] {
			continue
		}
		tok = Lemmatize(porterstemmer.StemString(tok))
		if len(tok) <= 3 {
			continue
		}
		kept = append(kept, tok)
	}

	s = cleanup(strings.Join(kept, " "))

	var out []string
	for _, w := range strings.Fields(s) {
		if !domainStoplist[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// StripAccents decomposes s (NFKD) and drops everything outside ASCII.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return asciiOnly(s)
	}
	return out
}

func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

func cleanup(s string) string {
	s = strings.ToLower(s)
	s = bracketRe.ReplaceAllString(s, "")
	s = mentionRe.ReplaceAllString(s, "")
	s = nonWordRe.ReplaceAllString(s, " ")
	s = linkRe.ReplaceAllString(s, "")
	s = httpRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = punctuationRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", "")
	s = digitWordRe.ReplaceAllString(s, "")
	s = emojiRe.ReplaceAllString(s, "")
	return s
}
