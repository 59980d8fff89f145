package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"

	"phishguard/pkg/config"
)

// CSVWriter appends rows to a CSV file, writing the header only when the
// file is new.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens filePath in append mode, creating it if needed.
func NewCSVWriter(filePath string, header []string) (*CSVWriter, error) {
	_, err := os.Stat(filePath)
	isNewFile := os.IsNotExist(err)

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open or create CSV file: %w", err)
	}

	cw := &CSVWriter{file: file, writer: csv.NewWriter(file)}
	if isNewFile && header != nil {
		if err := cw.WriteRow(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return cw, nil
}

// WriteRow writes a single data row.
func (cw *CSVWriter) WriteRow(row []string) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.writer.Write(row)
}

// Close flushes buffered rows and closes the file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.writer.Flush()
	flushErr := cw.writer.Error()
	closeErr := cw.file.Close()

	if flushErr != nil {
		return fmt.Errorf("error flushing CSV writer: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("error closing CSV file: %w", closeErr)
	}
	return nil
}

// CSVSink writes verdicts to one file and their outgoing references to an
// edge file.
type CSVSink struct {
	verdicts *CSVWriter
	edges    *CSVWriter
}

func NewCSVSink(verdictPath, edgePath string) (*CSVSink, error) {
	verdicts, err := NewCSVWriter(verdictPath, config.Verdict{}.GetCSVHeader())
	if err != nil {
		return nil, fmt.Errorf("verdict csv: %w", err)
	}
	edges, err := NewCSVWriter(edgePath, config.EdgeCSVHeader)
	if err != nil {
		verdicts.Close()
		return nil, fmt.Errorf("edge csv: %w", err)
	}
	return &CSVSink{verdicts: verdicts, edges: edges}, nil
}

func (s *CSVSink) Write(_ context.Context, v config.Verdict) error {
	if err := s.verdicts.WriteRow(v.ToCSVRow()); err != nil {
		return err
	}
	for _, ref := range v.Refs {
		if err := s.edges.WriteRow(ref.ToEdgeCSVRow(v.Input)); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVSink) Close() error {
	return errors.Join(s.verdicts.Close(), s.edges.Close())
}
