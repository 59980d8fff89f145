package textnorm

import (
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Stopwords is the standard English stopword list of the NLTK corpus.
var Stopwords = toSet(`i me my myself we our ours ourselves you you're you've you'll you'd
your yours yourself yourselves he him his himself she she's her hers herself it it's its
itself they them their theirs themselves what which who whom this that that'll these those
am is are was were be been being have has had having do does did doing a an the and but if
or because as until while of at by for with about against between into through during
before after above below to from up down in out on off over under again further then once
here there when where why how all any both each few more most other some such no nor not
only own same so than too very s t can will just don don't should should've now d ll m o re
ve y ain aren aren't couldn couldn't didn didn't doesn doesn't hadn hadn't hasn hasn't haven
haven't isn isn't ma mightn mightn't mustn mustn't needn needn't shan shan't shouldn
shouldn't wasn wasn't weren weren't won won't wouldn wouldn't`)

// contractions maps a contracted token to its expansion. Apostrophes are
// gone by the time this stage runs, so the bare forms are listed too where
// they do not collide with a real word.
var contractions = map[string]string{
	"ain't": "are not", "aren't": "are not", "arent": "are not",
	"can't": "cannot", "cant": "cannot", "could've": "could have",
	"couldn't": "could not", "couldnt": "could not", "didn't": "did not",
	"didnt": "did not", "doesn't": "does not", "doesnt": "does not",
	"don't": "do not", "dont": "do not", "hadn't": "had not", "hadnt": "had not",
	"hasn't": "has not", "hasnt": "has not", "haven't": "have not",
	"havent": "have not", "he's": "he is", "i'd": "i would", "i'll": "i will",
	"i'm": "i am", "im": "i am", "i've": "i have", "ive": "i have",
	"isn't": "is not", "isnt": "is not", "it's": "it is", "let's": "let us",
	"mustn't": "must not", "shouldn't": "should not", "shouldnt": "should not",
	"should've": "should have", "that's": "that is", "thats": "that is",
	"there's": "there is", "they'd": "they would", "they'll": "they will",
	"they're": "they are", "theyre": "they are", "they've": "they have",
	"wasn't": "was not", "wasnt": "was not", "we'd": "we would",
	"we'll": "we will", "we're": "we are", "we've": "we have",
	"weren't": "were not", "werent": "were not", "what's": "what is",
	"whats": "what is", "won't": "will not", "wont": "will not",
	"would've": "would have", "wouldn't": "would not", "wouldnt": "would not",
	"you'd": "you would", "you'll": "you will", "youll": "you will",
	"you're": "you are", "youre": "you are", "you've": "you have",
	"youve": "you have",
}

// ExpandContractions replaces contracted tokens by their long form.
func ExpandContractions(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if long, ok := contractions[f]; ok {
			fields[i] = long
		}
	}
	return strings.Join(fields, " ")
}

// Noun exceptions consulted before any rule, including plural-only nouns
// whose trailing s is not an inflection.
var nounExceptions = map[string]string{
	"men": "man", "women": "woman", "children": "child", "feet": "foot",
	"teeth": "tooth", "mice": "mouse", "geese": "goose", "data": "datum",
	"news": "news", "series": "series", "species": "species", "means": "means",
	"physics": "physics", "mathematics": "mathematics", "economics": "economics",
	"politics": "politics", "ethics": "ethics", "headquarters": "headquarters",
}

// Noun detachment rules, tried in order.
var nounSuffixes = [][2]string{
	{"s", ""}, {"ses", "s"}, {"xes", "x"}, {"zes", "z"},
	{"ches", "ch"}, {"shes", "sh"}, {"men", "man"}, {"ies", "y"},
}

var lemmaDict = sync.OnceValues(func() (*golem.Lemmatizer, error) {
	return golem.New(en.New())
})

// Lemmatize maps a noun form to its base form. Exceptions win, then tok
// itself when the dictionary knows it as a base form, then the first
// detachment rule whose result is a base form. Anything else comes back
// unchanged, as do all tokens when the dictionary cannot be loaded.
func Lemmatize(tok string) string {
	if base, ok := nounExceptions[tok]; ok {
		return base
	}
	dict, err := lemmaDict()
	if err != nil || tok == "" {
		return tok
	}
	if isBaseForm(dict, tok) {
		return tok
	}
	for _, rule := range nounSuffixes {
		if !strings.HasSuffix(tok, rule[0]) {
			continue
		}
		cand := strings.TrimSuffix(tok, rule[0]) + rule[1]
		if cand != "" && isBaseForm(dict, cand) {
			return cand
		}
	}
	return tok
}

func isBaseForm(dict *golem.Lemmatizer, w string) bool {
	return dict.InDict(w) && dict.Lemma(w) == w
}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
