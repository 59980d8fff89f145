package reputation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Whitelist is a static set of popular domains, read-only once loaded.
type Whitelist struct {
	domains map[string]struct{}
}

// LoadWhitelist reads a rank,domain CSV such as the Tranco/Alexa top-1m list.
func LoadWhitelist(path string) (*Whitelist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open whitelist: %w", err)
	}
	defer file.Close()
	return ReadWhitelist(file)
}

// ReadWhitelist reads rank,domain rows. Rows without a second column are skipped.
func ReadWhitelist(r io.Reader) (*Whitelist, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	w := &Whitelist{domains: make(map[string]struct{})}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading whitelist record: %w", err)
		}
		if len(record) < 2 || record[1] == "" {
			continue
		}
		w.domains[record[1]] = struct{}{}
	}
	return w, nil
}

// Len returns the number of listed domains.
func (w *Whitelist) Len() int { return len(w.domains) }

// Check reports exact membership of url in the list. No normalization is
// applied: "https://google.com" is not "google.com".
func (w *Whitelist) Check(url string) Result {
	if missing(url) {
		return Result{Error: ErrURLNotProvided}
	}
	if _, ok := w.domains[url]; ok {
		return Result{Status: InWhitelist}
	}
	return Result{Status: NotInWhitelist}
}
