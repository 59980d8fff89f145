// Package sink persists verdicts: CSV files, JSON lines on a stream, and a
// Neo4j link graph.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"phishguard/pkg/config"
)

// Sink receives every finished verdict.
type Sink interface {
	Write(ctx context.Context, v config.Verdict) error
	Close() error
}

// Multi fans a verdict out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, v config.Verdict) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Write(ctx, v))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// JSONSink writes one indented JSON document per verdict.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONSink{enc: enc}
}

func (s *JSONSink) Write(_ context.Context, v config.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(v)
}

func (s *JSONSink) Close() error { return nil }
