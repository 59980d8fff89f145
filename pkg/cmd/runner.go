// Package cmd holds the pieces of the command line tool: input readers and
// the per-job runner that turns a URL or message into verdicts.
package cmd

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"phishguard/pkg/config"
	"phishguard/pkg/detect"
	"phishguard/pkg/reputation"
)

const (
	KindURL     = "url"
	KindContent = "content"
	KindMessage = "message"
)

// Job is one unit of work for a worker.
type Job struct {
	Kind     string // KindURL or KindMessage
	Input    string
	Depth    int
	Expected *int
}

// Runner processes jobs. It is shared by all workers.
type Runner struct {
	detector *detect.Detector
	checker  *reputation.Checker
	content  bool
	visited  *visitedMap
}

// visitedMap is a thread-safe map to track visited URLs.
type visitedMap struct {
	m  map[string]bool
	mu sync.Mutex
}

// checkAndAdd atomically checks if a URL has been visited and adds it if not.
func (v *visitedMap) checkAndAdd(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m[url] {
		return false
	}
	v.m[url] = true
	return true
}

// NewRunner builds a Runner. checker may be nil to skip reputation lookups;
// content enables fetching and classifying the page behind each URL.
func NewRunner(d *detect.Detector, checker *reputation.Checker, content bool) *Runner {
	return &Runner{
		detector: d,
		checker:  checker,
		content:  content,
		visited:  &visitedMap{m: make(map[string]bool)},
	}
}

// CheckAndAdd reports whether url is new, marking it visited.
func (r *Runner) CheckAndAdd(url string) bool {
	return r.visited.checkAndAdd(url)
}

// Process runs a job. A URL job yields a url verdict and, with content
// analysis on, a content verdict carrying the page's outgoing references.
func (r *Runner) Process(ctx context.Context, job Job) []config.Verdict {
	if job.Kind == KindMessage {
		res := r.detector.AnalyzeMessage(ctx, job.Input)
		return []config.Verdict{verdict(KindMessage, job, res)}
	}

	urlVerdict := verdict(KindURL, job, r.detector.AnalyzeURL(ctx, job.Input))
	if r.checker != nil {
		rep := r.checker.Check(ctx, job.Input)
		urlVerdict.Reputation = &rep.Features
		urlVerdict.ExtractionErrors = append(urlVerdict.ExtractionErrors, rep.Errors...)
	}
	out := []config.Verdict{urlVerdict}

	if r.content {
		res := r.detector.AnalyzeContent(ctx, job.Input)
		cv := verdict(KindContent, job, res)
		if res.Page != nil && res.Page.URL != job.Input {
			log.Debug().Str("from", job.Input).Str("to", res.Page.URL).Msg("followed redirect")
		}
		out = append(out, cv)
	}
	return out
}

func verdict(kind string, job Job, res detect.Result) config.Verdict {
	v := config.Verdict{
		Kind:     kind,
		Input:    job.Input,
		Depth:    job.Depth,
		Expected: job.Expected,
		URL:      res.URL,
		Content:  res.Content,
	}
	if res.Content != nil {
		v.Refs = res.Content.Refs
	}
	if res.Err != nil {
		v.Error = res.Err.Message
		if res.Err.Cause != nil {
			v.ExtractionErrors = append(v.ExtractionErrors, kind+"_analysis_failed:"+res.Err.Cause.Error())
		}
		return v
	}
	label := int(res.Label)
	v.Label = &label
	return v
}
