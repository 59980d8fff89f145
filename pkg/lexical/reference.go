package lexical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reference is the read-only data the analyzer scores against. It is
// loaded once and shared by every goroutine.
type Reference struct {
	// NGrams maps English 1-, 2- and 3-grams to their corpus frequency.
	NGrams map[string]float64
	// CharProbabilities is the expected character distribution of a
	// registrable label, used for relative entropy.
	CharProbabilities map[rune]float64
	Shorteners        []string
	AbnormalLabels    []string
	CommonTerms       []string
}

// DefaultReference returns the built-in tables with the given n-gram dictionary.
func DefaultReference(ngrams map[string]float64) Reference {
	return Reference{
		NGrams:            ngrams,
		CharProbabilities: DomainCharProbabilities,
		Shorteners:        Shorteners,
		AbnormalLabels:    AbnormalLabels,
		CommonTerms:       CommonTerms,
	}
}

// DomainCharProbabilities is the character distribution of the Alexa top
// 1M registrable labels (TLD and "www" removed), September 2017.
var DomainCharProbabilities = map[rune]float64{
	'-': 0.013342298553905901,
	'_': 9.04562613824129e-06,
	'0': 0.0024875471880163543,
	'1': 0.004884638114650296,
	'2': 0.004373560237839663,
	'3': 0.0021136613076357144,
	'4': 0.001625197496170685,
	'5': 0.0013070929769758662,
	'6': 0.0014880054997406921,
	'7': 0.001471421851820583,
	'8': 0.0012663876593537805,
	'9': 0.0010327089841158806,
	'a': 0.07333590631143488,
	'b': 0.04293204925644953,
	'c': 0.027385633133525503,
	'd': 0.02769469202658208,
	'e': 0.07086192756262588,
	'f': 0.01249653250998034,
	'g': 0.038516276096631406,
	'h': 0.024017645001386995,
	'i': 0.060447396668797414,
	'j': 0.007082725266242929,
	'k': 0.01659570875496002,
	'l': 0.05815885325582237,
	'm': 0.033884915513851865,
	'n': 0.04753175014774523,
	'o': 0.09413783122067709,
	'p': 0.042555148167356144,
	'q': 0.0017231917793349655,
	'r': 0.06460084667060655,
	's': 0.07214640647425614,
	't': 0.06447722311338391,
	'u': 0.034792493336388744,
	'v': 0.011637198026847418,
	'w': 0.013318176884203925,
	'x': 0.003170491961453572,
	'y': 0.016381628936354975,
	'z': 0.004715786426736459,
}

var Shorteners = []string{
	"bit.ly", "goo.gl", "tinyurl.com", "ow.ly", "t.co", "tiny.cc", "bit.do",
	"mcaf.ee", "cli.gs", "yfrog.com", "twit.ac", "su.pr", "lnkd.in", "db.tt",
	"qr.ae", "adf.ly", "bitly.com", "cur.lv", "tiny.cl", "po.st", "bc.vc",
	"twitthis.com", "u.to", "j.mp", "buzurl.com", "cutt.us", "u.bb",
	"yourls.org", "x.co", "prettylinkpro.com", "scrnch.me", "filoops.info",
	"vzturl.com", "qr.net", "1url.com", "tweez.me", "v.gd", "tr.im",
	"link.zip.net",
}

var AbnormalLabels = []string{
	"sc", "dc", "oc", "ac", "info", "mail", "home", "corp", "download",
	"product", "support", "payment", "login", "secure", "account", "admin",
	"administrator", "root", "blog", "blogspot", "wordpress", "web", "webs",
	"website", "net", "org", "in", "co", "cc", "biz", "name", "pro", "tel",
	"mobi", "aero", "asia", "cat", "coop", "jobs", "museum", "travel", "arpa",
	"local", "onion", "example", "invalid", "test", "localhost", "localdomain",
}

var CommonTerms = []string{
	"www", "com", "net", "org", "info", "biz", "us", "uk", "ca", "de", "jp",
	"fr", "au", "in", "it", "cn", "gov", "https", "http", "//",
}

// LoadNGrams reads an n-gram frequency dictionary from a CSV file with
// "ngram,count" records. A header row is skipped if its count column is
// not numeric.
func LoadNGrams(filePath string) (map[string]float64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()
	return ReadNGrams(file)
}

// ReadNGrams parses "ngram,count" CSV records.
func ReadNGrams(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	ngrams := make(map[string]float64)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}
		line++
		if len(record) < 2 {
			continue
		}
		count, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: invalid count %q: %w", line, record[1], err)
		}
		ngrams[record[0]] += count
	}
	return ngrams, nil
}
