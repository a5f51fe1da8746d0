// Package pipefix analyzes CI pipeline definitions and produces a validated,
// non-conflicting set of textual fixes: syntax cleanup, cache-strategy
// corrections, step reordering, and dependency-graph optimizations.
//
// The top-level entry points mirror the stages of the engine: Parse and
// BuildPipeline produce the immutable inputs, Analyze runs the detection
// passes, PlanPatch merges the proposed edits, and Apply rewrites the text.
// Run chains all five for the common case.
package pipefix

import (
	"github.com/pipefix/pipefix/pkg/analyzer"
	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/patch"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Re-exported core types, so most callers only import this package.
type (
	Issue       = types.Issue
	Edit        = types.Edit
	Span        = types.Span
	Category    = types.Category
	Severity    = types.Severity
	ParseError  = types.ParseError
	SchemaError = types.SchemaError
	Document    = document.Document
	Pipeline    = pipeline.Pipeline
	Plan        = patch.Plan
	Rejection   = patch.Rejection
)

const (
	SeverityError   = types.SeverityError
	SeverityWarning = types.SeverityWarning
	SeverityInfo    = types.SeverityInfo

	CategorySyntax          = types.CategorySyntax
	CategorySchema          = types.CategorySchema
	CategoryCaching         = types.CategoryCaching
	CategoryOrdering        = types.CategoryOrdering
	CategoryParallelization = types.CategoryParallelization
	CategoryInternal        = types.CategoryInternal
)

// Categories lists every analyzer category, in priority order.
func Categories() []Category {
	return []Category{
		CategorySyntax,
		CategorySchema,
		CategoryCaching,
		CategoryOrdering,
		CategoryParallelization,
	}
}

type options struct {
	analyzers []analyzer.Analyzer
	enabled   map[Category]bool
}

// Option configures an analysis run.
type Option func(*options)

// WithCategories restricts the run to the given analyzer categories.
// Default: all categories enabled.
func WithCategories(cats ...Category) Option {
	return func(o *options) {
		o.enabled = make(map[Category]bool, len(cats))
		for _, c := range cats {
			o.enabled[c] = true
		}
	}
}

// WithAnalyzers replaces the default analyzer registry.
func WithAnalyzers(as ...analyzer.Analyzer) Option {
	return func(o *options) {
		o.analyzers = as
	}
}

func buildOptions(opts []Option) *options {
	o := &options{analyzers: analyzer.Registry()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Parse turns raw text into a positioned document, or a *ParseError.
func Parse(text []byte) (*Document, error) {
	return document.Parse(text)
}

// BuildPipeline normalizes a document into the job model, or a *SchemaError.
func BuildPipeline(doc *Document) (*Pipeline, error) {
	return pipeline.Build(doc)
}

// Analyze runs every enabled analyzer concurrently over the shared inputs and
// returns the merged findings, stable-sorted by span start then category.
func Analyze(doc *Document, p *Pipeline, opts ...Option) []Issue {
	o := buildOptions(opts)
	return analyzer.Run(o.analyzers, doc, p, o.enabled)
}

// PlanPatch merges the issues' proposed edits into one deterministic,
// non-overlapping plan. text must be the buffer the issues were computed
// against.
func PlanPatch(text []byte, issues []Issue) *Plan {
	return patch.Build(text, issues)
}

// Apply rewrites text with the plan's accepted edits.
func Apply(text []byte, plan *Plan) []byte {
	return plan.Apply(text)
}

// Result is the outcome of one full analysis pass over a single document.
type Result struct {
	Document *Document
	Pipeline *Pipeline
	Issues   []Issue
	Plan     *Plan
	Fixed    []byte
}

// Run chains parse, model build, analysis, patch planning, and application.
// It fails only on parse or schema errors; analyzer failures surface as
// internal-category issues in the result.
func Run(text []byte, opts ...Option) (*Result, error) {
	doc, err := Parse(text)
	if err != nil {
		return nil, err
	}
	p, err := BuildPipeline(doc)
	if err != nil {
		return nil, err
	}
	issues := Analyze(doc, p, opts...)
	plan := PlanPatch(text, issues)
	return &Result{
		Document: doc,
		Pipeline: p,
		Issues:   issues,
		Plan:     plan,
		Fixed:    plan.Apply(text),
	}, nil
}
