// Package lexical derives the URL classifier's feature row from the URL
// string alone, without any network access.
package lexical

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"

	"phishguard/pkg/common"
	"phishguard/pkg/config"
)

var (
	ipRe        = regexp.MustCompile(`((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`)
	specialRe   = regexp.MustCompile(`[%$&+,:;=?@#|]`)
	portRe      = regexp.MustCompile(`:[0-9]+`)
	digitRe     = regexp.MustCompile(`[0-9]`)
	vowelRe     = regexp.MustCompile(`[aeiou]`)
	consonantRe = regexp.MustCompile(`[b-df-hj-np-tv-z]`)
)

// Analyzer computes URL lexical features against injected reference data.
// It is safe for concurrent use.
type Analyzer struct {
	ref        Reference
	shorteners *ahocorasick.Matcher
	abnormal   map[string]struct{}
}

// New builds an analyzer. The reference maps and lists must not be mutated
// afterwards.
func New(ref Reference) *Analyzer {
	abnormal := make(map[string]struct{}, len(ref.AbnormalLabels))
	for _, l := range ref.AbnormalLabels {
		abnormal[l] = struct{}{}
	}
	return &Analyzer{
		ref:        ref,
		shorteners: ahocorasick.NewStringMatcher(ref.Shorteners),
		abnormal:   abnormal,
	}
}

// Analyze returns the feature row for rawURL. It never fails: malformed or
// empty input degrades to default values.
func (a *Analyzer) Analyze(rawURL string) config.URLFeatures {
	s := common.StripScheme(rawURL)

	relEntropy, _ := RelativeEntropy(s, a.ref.CharProbabilities)

	return config.URLFeatures{
		NGrams:          NGramScore(s, a.ref.NGrams),
		Entropy:         Entropy(s),
		EntropyRelative: relEntropy,
		VowelConsonant:  VowelConsonantRatio(s),
		FirstDigitIndex: FirstDigitIndex(s),
		Length:          utf8.RuneCountInString(s),
		Digits:          len(digitRe.FindAllStringIndex(s, -1)),
		IP:              ipRe.MatchString(s),
		Special:         specialRe.MatchString(s),
		Port:            portRe.MatchString(s),
		Subdomain:       strings.Count(s, ".") + 1,
		Common:          a.commonTerms(s),
		Hyphen:          strings.Contains(s, "-"),
		DoubleHyphen:    strings.Contains(s, "__"), // the doubleHyphen column was fitted on "__"
		Shortening:      a.hasShortener(s),
		Abnormal:        a.hasAbnormalLabel(s),
	}
}

// NGramScore averages the 1-, 2- and 3-gram dictionary scores of s.
func NGramScore(s string, dict map[string]float64) float64 {
	runes := []rune(s)
	var sum float64
	for n := 1; n <= 3; n++ {
		sum += ngramFeature(runes, dict, n)
	}
	return sum / 3
}

// ngramFeature sums the dictionary counts of every n-gram of s and
// normalizes by the number of n-grams. Missing n-grams contribute nothing.
func ngramFeature(runes []rune, dict map[string]float64, n int) float64 {
	denom := len(runes) - n + 1
	if denom <= 0 {
		return 0
	}
	var count float64
	for i := 0; i+n <= len(runes); i++ {
		count += dict[string(runes[i:i+n])]
	}
	return count / float64(denom)
}

// Entropy is the Shannon entropy, in bits, of the character distribution of s.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// RelativeEntropy is the Kullback-Leibler divergence between the character
// distribution of the registrable label of s and expected. The label is the
// part before the first "." and "/", with scheme and leading "www." removed.
// ok is false when the label is empty. Characters missing from expected
// contribute nothing.
func RelativeEntropy(s string, expected map[rune]float64) (value float64, ok bool) {
	label := s
	if i := strings.LastIndex(label, "://"); i >= 0 {
		label = label[i+3:]
	}
	label = strings.TrimPrefix(label, "www.")
	if i := strings.Index(label, "."); i >= 0 {
		label = label[:i]
	}
	if i := strings.Index(label, "/"); i >= 0 {
		label = label[:i]
	}
	label = strings.ToLower(label)
	if label == "" {
		return 0, false
	}

	counts := make(map[rune]int)
	length := 0
	for _, r := range label {
		counts[r]++
		length++
	}
	for r, c := range counts {
		exp, found := expected[r]
		if !found || exp <= 0 {
			continue
		}
		observed := float64(c) / float64(length)
		value += observed * math.Log2(observed/exp)
	}
	return value, true
}

// VowelConsonantRatio is vowels/consonants over the lowercased string, or 0
// when there are no consonants.
func VowelConsonantRatio(s string) float64 {
	s = strings.ToLower(s)
	consonants := len(consonantRe.FindAllStringIndex(s, -1))
	if consonants == 0 {
		return 0
	}
	vowels := len(vowelRe.FindAllStringIndex(s, -1))
	return float64(vowels) / float64(consonants)
}

// FirstDigitIndex is the 1-based character position of the first digit, or 0.
func FirstDigitIndex(s string) int {
	i := 0
	for _, r := range s {
		i++
		if unicode.IsDigit(r) {
			return i
		}
	}
	return 0
}

// commonTerms counts how many of the common terms occur in s.
func (a *Analyzer) commonTerms(s string) int {
	count := 0
	for _, term := range a.ref.CommonTerms {
		if strings.Contains(s, term) {
			count++
		}
	}
	return count
}

func (a *Analyzer) hasShortener(s string) bool {
	if s == "" || len(a.ref.Shorteners) == 0 {
		return false
	}
	return len(a.shorteners.MatchThreadSafe([]byte(s))) > 0
}

func (a *Analyzer) hasAbnormalLabel(s string) bool {
	for _, label := range strings.Split(s, ".") {
		if _, ok := a.abnormal[label]; ok {
			return true
		}
	}
	return false
}
