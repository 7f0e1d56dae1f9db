package domain

import (
	"fmt"
	"time"
)

// EnrichmentKind names a post-discovery operation over the selection.
type EnrichmentKind string

const (
	EnrichmentCitations EnrichmentKind = "citations"
	EnrichmentBibTeX    EnrichmentKind = "bibtex"
	EnrichmentCompare   EnrichmentKind = "compare"
	EnrichmentSummarize EnrichmentKind = "summarize"
	EnrichmentReview    EnrichmentKind = "review"
	EnrichmentPDFs      EnrichmentKind = "pdfs"
	EnrichmentFulltext  EnrichmentKind = "fulltext"
)

// AllEnrichmentKinds lists every supported kind in display order.
var AllEnrichmentKinds = []EnrichmentKind{
	EnrichmentCitations,
	EnrichmentBibTeX,
	EnrichmentCompare,
	EnrichmentSummarize,
	EnrichmentReview,
	EnrichmentPDFs,
	EnrichmentFulltext,
}

// ParseEnrichmentKind validates a kind name.
func ParseEnrichmentKind(s string) (EnrichmentKind, error) {
	for _, k := range AllEnrichmentKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", NewValidationError("kind", fmt.Sprintf("unknown enrichment kind %q", s))
}

// EnrichmentStatus is the state of one enrichment run.
type EnrichmentStatus string

const (
	StatusIdle            EnrichmentStatus = "idle"
	StatusRunning         EnrichmentStatus = "running"
	StatusSucceeded       EnrichmentStatus = "succeeded"
	StatusPartiallyFailed EnrichmentStatus = "partially_failed"
	StatusFailed          EnrichmentStatus = "failed"
)

// IsTerminal returns true if no further transition is possible.
func (s EnrichmentStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusPartiallyFailed, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is a valid successor of s.
func (s EnrichmentStatus) CanTransitionTo(next EnrichmentStatus) bool {
	switch s {
	case StatusIdle:
		return next == StatusRunning
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// Citation is one citing work returned by the citation-lookup provider.
type Citation struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Contexts []string `json:"contexts"`
}

// EnrichmentBlock is the result for one paper, or for the whole batch when
// the operation produces a single document (compare, summarize).
type EnrichmentBlock struct {
	PaperID   string     `json:"paper_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Error     string     `json:"error,omitempty"`
	Source    string     `json:"source,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Fulltext  *Fulltext  `json:"fulltext,omitempty"`
}

// Failed reports whether the block carries an error.
func (b *EnrichmentBlock) Failed() bool {
	return b.Error != ""
}

// EnrichmentResult is the presentation-agnostic output of an enrichment run.
type EnrichmentResult struct {
	Kind        EnrichmentKind    `json:"kind"`
	Status      EnrichmentStatus  `json:"status"`
	Blocks      []EnrichmentBlock `json:"blocks"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// NewEnrichmentResult returns an idle result for kind.
func NewEnrichmentResult(kind EnrichmentKind) *EnrichmentResult {
	return &EnrichmentResult{
		Kind:   kind,
		Status: StatusIdle,
		Blocks: []EnrichmentBlock{},
	}
}

// Begin moves the result from idle to running.
func (r *EnrichmentResult) Begin() {
	if r.Status.CanTransitionTo(StatusRunning) {
		r.Status = StatusRunning
		r.StartedAt = time.Now()
	}
}

// Fail records an operation-level failure. Any idle result is moved through
// running first so the state machine holds.
func (r *EnrichmentResult) Fail(err error) {
	r.Begin()
	r.Error = err.Error()
	r.finish(StatusFailed)
}

// Complete derives the terminal status from the blocks.
func (r *EnrichmentResult) Complete() {
	r.Begin()
	r.finish(ComputeStatus(r))
}

func (r *EnrichmentResult) finish(status EnrichmentStatus) {
	if r.Status.CanTransitionTo(status) {
		r.Status = status
		r.CompletedAt = time.Now()
	}
}

// ComputeStatus classifies a result. Failed when an operation-level error is
// set or every block errored, PartiallyFailed when some blocks errored,
// Succeeded otherwise.
func ComputeStatus(r *EnrichmentResult) EnrichmentStatus {
	if r.Error != "" {
		return StatusFailed
	}
	failed := 0
	for i := range r.Blocks {
		if r.Blocks[i].Failed() {
			failed++
		}
	}
	switch {
	case len(r.Blocks) > 0 && failed == len(r.Blocks):
		return StatusFailed
	case failed > 0:
		return StatusPartiallyFailed
	default:
		return StatusSucceeded
	}
}
