// Package detect is the boundary the callers see: it runs an analyzer,
// assembles the feature vector, asks the classifier, and turns every
// recoverable failure into an AnalysisError.
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"phishguard/pkg/classifier"
	"phishguard/pkg/config"
	"phishguard/pkg/features"
	"phishguard/pkg/fetch"
	"phishguard/pkg/lexical"
	"phishguard/pkg/structural"
	"phishguard/pkg/textnorm"
)

const (
	MsgURLError     = "Error while analyzing the URL"
	MsgMessageError = "Error while analyzing the message"
	MsgContentError = "Error while analyzing the HTML content"
)

// AnalysisError is the single opaque failure reported to a caller. Cause is
// kept for logs and never serialized.
type AnalysisError struct {
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

// Result is either a label with the row that produced it, or an error.
// Err != nil tells them apart.
type Result struct {
	Label classifier.Label
	Row   features.Row
	Err   *AnalysisError

	URL     *config.URLFeatures
	Content *config.ContentFeatures
	Page    *fetch.Page
}

func (r Result) OK() bool { return r.Err == nil }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Err.Message})
	}
	return json.Marshal(struct {
		Prediction int    `json:"prediction"`
		Label      string `json:"label"`
	}{int(r.Label), r.Label.String()})
}

// Fetcher retrieves page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Options carries the immutable reference data and collaborators. Any
// model left nil makes its analysis fail with an AnalysisError.
type Options struct {
	Lexical      *lexical.Analyzer
	Structural   *structural.Analyzer
	Vectorizer   *textnorm.Vectorizer
	URLModel     classifier.Predictor
	MessageModel classifier.Predictor
	ContentModel classifier.Predictor
	Fetcher      Fetcher
}

// Detector is safe for concurrent use.
type Detector struct {
	opts          Options
	urlSchema     features.Schema
	contentSchema features.Schema
	messageSchema features.Schema
}

func New(opts Options) *Detector {
	if opts.Structural == nil {
		opts.Structural = structural.New()
	}
	d := &Detector{
		opts:          opts,
		urlSchema:     features.NewSchema("url", config.URLColumns),
		contentSchema: features.NewSchema("content", config.ContentColumns),
	}
	if opts.Vectorizer != nil {
		d.messageSchema = features.NewSchema("message", opts.Vectorizer.Columns())
	}
	return d
}

// URLSchema, ContentSchema and MessageSchema report the column lists the
// models must have been fitted on.
func (d *Detector) URLSchema() features.Schema     { return d.urlSchema }
func (d *Detector) ContentSchema() features.Schema { return d.contentSchema }
func (d *Detector) MessageSchema() features.Schema { return d.messageSchema }

// AnalyzeURL classifies a URL by its lexical features.
func (d *Detector) AnalyzeURL(ctx context.Context, rawURL string) (res Result) {
	defer d.recoverInto(&res, MsgURLError, rawURL)
	if d.opts.Lexical == nil {
		return failure(MsgURLError, errors.New("lexical analyzer not configured"))
	}
	uf := d.opts.Lexical.Analyze(rawURL)
	res = d.classify(ctx, MsgURLError, d.urlSchema, uf.Row(), d.opts.URLModel)
	res.URL = &uf
	return res
}

// AnalyzeMessage classifies free text.
func (d *Detector) AnalyzeMessage(ctx context.Context, text string) (res Result) {
	defer d.recoverInto(&res, MsgMessageError, "message")
	if d.opts.Vectorizer == nil {
		return failure(MsgMessageError, errors.New("tfidf vectorizer not configured"))
	}
	row := d.opts.Vectorizer.Transform(textnorm.Normalize(text))
	return d.classify(ctx, MsgMessageError, d.messageSchema, row, d.opts.MessageModel)
}

// AnalyzeHTML classifies already fetched markup served at pageURL.
func (d *Detector) AnalyzeHTML(ctx context.Context, markup, pageURL string) (res Result) {
	defer d.recoverInto(&res, MsgContentError, pageURL)
	cf, err := d.opts.Structural.Analyze(markup, pageURL)
	if err != nil {
		return failure(MsgContentError, err)
	}
	res = d.classify(ctx, MsgContentError, d.contentSchema, cf.Row(), d.opts.ContentModel)
	res.Content = &cf
	return res
}

// AnalyzeContent fetches pageURL and classifies the markup. Features are
// computed against the final URL after redirects.
func (d *Detector) AnalyzeContent(ctx context.Context, pageURL string) (res Result) {
	defer d.recoverInto(&res, MsgContentError, pageURL)
	if d.opts.Fetcher == nil {
		return failure(MsgContentError, errors.New("fetcher not configured"))
	}
	page, err := d.opts.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		res = failure(MsgContentError, err)
		log.Warn().Err(err).Str("url", pageURL).Msg("fetch failed")
		return res
	}
	res = d.AnalyzeHTML(ctx, page.Body, page.URL)
	res.Page = page
	return res
}

func (d *Detector) classify(ctx context.Context, msg string, schema features.Schema, row features.Row, model classifier.Predictor) Result {
	vec, err := schema.Assemble(row)
	if err != nil {
		// column drift between analyzer and model is a build defect
		panic(err)
	}
	if model == nil {
		return failure(msg, fmt.Errorf("%s model not loaded", schema.Name))
	}
	label, err := model.Predict(ctx, vec)
	if err != nil {
		log.Error().Err(err).Str("model", schema.Name).Msg("prediction failed")
		return failure(msg, err)
	}
	return Result{Label: label, Row: row}
}

func failure(msg string, cause error) Result {
	return Result{Err: &AnalysisError{Message: msg, Cause: cause}}
}

// recoverInto converts a panic in an analysis stage into an AnalysisError.
// Schema mismatches are re-raised.
func (d *Detector) recoverInto(res *Result, msg, subject string) {
	r := recover()
	if r == nil {
		return
	}
	var se *features.SchemaError
	if err, ok := r.(error); ok && errors.As(err, &se) {
		panic(r)
	}
	log.Error().Interface("panic", r).Str("subject", subject).Msg("analysis stage panicked")
	*res = failure(msg, fmt.Errorf("panic: %v", r))
}
