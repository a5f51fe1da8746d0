// Package analyzer holds the issue-detection passes. Every analyzer is a
// pure function over the immutable document and pipeline model, so the whole
// set runs concurrently with no shared state.
package analyzer

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Analyzer is the fixed capability interface every detection pass implements.
type Analyzer interface {
	// Name identifies the analyzer in diagnostics.
	Name() string
	// Category is the issue category this analyzer emits; it gates the
	// analyzer on the caller's enabled-category set.
	Category() types.Category
	// Scan inspects the inputs and returns findings. Inputs are shared and
	// read-only; Scan must not retain or mutate them.
	Scan(doc *document.Document, p *pipeline.Pipeline) ([]types.Issue, error)
}

// Registry returns the default analyzers in registration order.
func Registry() []Analyzer {
	return []Analyzer{
		&Syntax{},
		&Caching{},
		&Ordering{},
		&Deps{},
	}
}

// Run executes the given analyzers concurrently over the shared inputs and
// merges their findings. A failing or panicking analyzer is isolated: its
// findings are dropped and replaced by one internal-category issue, and every
// other analyzer's results are still returned. The merged list is
// stable-sorted by span start offset, then category priority, so output is
// deterministic regardless of completion order.
func Run(analyzers []Analyzer, doc *document.Document, p *pipeline.Pipeline, enabled map[types.Category]bool) []types.Issue {
	results := make([][]types.Issue, len(analyzers))

	var g errgroup.Group
	for i, a := range analyzers {
		if enabled != nil && !enabled[a.Category()] {
			continue
		}
		i, a := i, a
		g.Go(func() error {
			results[i] = scanIsolated(a, doc, p)
			return nil
		})
	}
	g.Wait()

	var issues []types.Issue
	for _, r := range results {
		issues = append(issues, r...)
	}
	Sort(issues)
	return issues
}

// scanIsolated invokes one analyzer, converting an error or panic into a
// single internal issue.
func scanIsolated(a Analyzer, doc *document.Document, p *pipeline.Pipeline) (issues []types.Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []types.Issue{internalIssue(a, fmt.Sprintf("panic: %v", r))}
		}
	}()

	found, err := a.Scan(doc, p)
	if err != nil {
		return []types.Issue{internalIssue(a, err.Error())}
	}
	return found
}

func internalIssue(a Analyzer, detail string) types.Issue {
	span := types.Span{}
	return types.Issue{
		ID:       types.ComputeIssueID(types.CategoryInternal, a.Name(), span),
		Severity: types.SeverityError,
		Category: types.CategoryInternal,
		Span:     span,
		Message:  fmt.Sprintf("analyzer %s failed: %s", a.Name(), detail),
	}
}

// Sort orders issues by span start offset, then category priority, then ID.
func Sort(issues []types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Span.Offset.Start != b.Span.Offset.Start {
			return a.Span.Offset.Start < b.Span.Offset.Start
		}
		if a.Category.Priority() != b.Category.Priority() {
			return a.Category.Priority() < b.Category.Priority()
		}
		return a.ID < b.ID
	})
}
