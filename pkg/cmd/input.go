package cmd

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"phishguard/pkg/common"
)

// PhishtankURL holds a URL and its ground-truth label.
type PhishtankURL struct {
	URL   string
	Label bool
}

// ReadURLsFromFile reads one URL per line, adding https:// where the
// scheme is missing.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		rawURL := strings.TrimSpace(scanner.Text())
		if rawURL != "" && !strings.HasPrefix(rawURL, "#") {
			urls = append(urls, common.NormalizeURL(rawURL))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("file contained no valid URLs")
	}
	return urls, nil
}

// ReadMessagesFromFile reads one message per line. Blank lines are skipped;
// a literal "\n" inside a line stands for a line break.
func ReadMessagesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	var msgs []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			msgs = append(msgs, strings.ReplaceAll(line, `\n`, "\n"))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("file contained no messages")
	}
	return msgs, nil
}

// ReadphishtankURLsFromFile reads a PhishTank CSV export and keeps the
// verified, online entries.
func ReadphishtankURLsFromFile(filePath string) ([]PhishtankURL, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()
	return readPhishtank(file)
}

func readPhishtank(r io.Reader) ([]PhishtankURL, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header row: %w", err)
	}
	colIndex := make(map[string]int)
	for i, colName := range header {
		colIndex[strings.TrimSpace(colName)] = i
	}
	for _, col := range []string{"url", "verified", "online"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("required column '%s' not found in CSV header", col)
		}
	}

	var urls []PhishtankURL
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}
		isVerified := record[colIndex["verified"]] == "yes"
		isOnline := record[colIndex["online"]] == "yes"
		if isVerified && isOnline {
			if url := record[colIndex["url"]]; url != "" {
				urls = append(urls, PhishtankURL{URL: common.NormalizeURL(url), Label: true})
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("file contained no valid (verified and online) phishing URLs")
	}
	return urls, nil
}
