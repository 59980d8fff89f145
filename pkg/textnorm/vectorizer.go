package textnorm

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"phishguard/pkg/features"
)

var defaultTokenRe = regexp.MustCompile(`\b\w\w+\b`)

// Artifact is the exported state of a fitted TF-IDF vectorizer.
type Artifact struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Norm        string         `json:"norm"`
	SublinearTF bool           `json:"sublinear_tf"`
	Lowercase   *bool          `json:"lowercase,omitempty"`
	NGramRange  [2]int         `json:"ngram_range"`
}

// Vectorizer projects normalized text onto the fitted vocabulary. It is
// read-only after construction.
type Vectorizer struct {
	art     Artifact
	columns []string
}

// LoadVectorizer reads an Artifact from a JSON file.
func LoadVectorizer(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tfidf artifact: %w", err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse tfidf artifact %s: %w", path, err)
	}
	return NewVectorizer(art)
}

// NewVectorizer validates art and builds a Vectorizer over it.
func NewVectorizer(art Artifact) (*Vectorizer, error) {
	if len(art.Vocabulary) == 0 {
		return nil, fmt.Errorf("tfidf artifact has an empty vocabulary")
	}
	if art.IDF != nil && len(art.IDF) != len(art.Vocabulary) {
		return nil, fmt.Errorf("tfidf artifact has %d idf weights for %d terms", len(art.IDF), len(art.Vocabulary))
	}
	switch art.Norm {
	case "", "l1", "l2":
	default:
		return nil, fmt.Errorf("unsupported tfidf norm %q", art.Norm)
	}
	if art.NGramRange == [2]int{} {
		art.NGramRange = [2]int{1, 1}
	}
	if art.NGramRange[0] < 1 || art.NGramRange[1] < art.NGramRange[0] {
		return nil, fmt.Errorf("invalid ngram range %v", art.NGramRange)
	}

	columns := make([]string, len(art.Vocabulary))
	for term, idx := range art.Vocabulary {
		if idx < 0 || idx >= len(columns) || columns[idx] != "" {
			return nil, fmt.Errorf("tfidf vocabulary index %d of %q is out of range or duplicated", idx, term)
		}
		columns[idx] = term
	}
	return &Vectorizer{art: art, columns: columns}, nil
}

// Columns returns the vocabulary in column order.
func (v *Vectorizer) Columns() []string {
	out := make([]string, len(v.columns))
	copy(out, v.columns)
	return out
}

// Transform weights the terms of text and returns one column per
// vocabulary term, rounded to two decimals. Terms outside the vocabulary
// contribute nothing.
func (v *Vectorizer) Transform(text string) features.Row {
	weights := make([]float64, len(v.columns))
	for term, n := range v.counts(text) {
		idx, ok := v.art.Vocabulary[term]
		if !ok {
			continue
		}
		tf := float64(n)
		if v.art.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		if v.art.IDF != nil {
			tf *= v.art.IDF[idx]
		}
		weights[idx] = tf
	}
	normalize(weights, v.art.Norm)

	row := make(features.Row, len(v.columns))
	for i, name := range v.columns {
		row[i] = features.Column{Name: name, Value: round2(weights[i])}
	}
	return row
}

func (v *Vectorizer) counts(text string) map[string]int {
	if v.art.Lowercase == nil || *v.art.Lowercase {
		text = strings.ToLower(text)
	}
	tokens := defaultTokenRe.FindAllString(text, -1)
	counts := make(map[string]int)
	for n := v.art.NGramRange[0]; n <= v.art.NGramRange[1]; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}

func normalize(w []float64, kind string) {
	var total float64
	switch kind {
	case "l1":
		for _, x := range w {
			total += math.Abs(x)
		}
	case "l2":
		for _, x := range w {
			total += x * x
		}
		total = math.Sqrt(total)
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range w {
		w[i] /= total
	}
}

// round2 rounds half to even at two decimals.
func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
