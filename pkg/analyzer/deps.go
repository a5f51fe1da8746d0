package analyzer

import (
	"fmt"
	"strings"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/graph"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Deps reports dependency-graph findings: self-needs, needs naming unknown
// jobs, cycles, transitively redundant edges, and safely parallelizable
// groups. A cyclic graph cannot be scheduled, so cycles suppress both the
// redundancy and parallelization findings. Parallelization never proposes new
// needs entries; inventing a dependency could serialize jobs the author meant
// to run concurrently.
type Deps struct{}

func (Deps) Name() string             { return "deps" }
func (Deps) Category() types.Category { return types.CategoryParallelization }

func (Deps) Scan(doc *document.Document, p *pipeline.Pipeline) ([]types.Issue, error) {
	var issues []types.Issue

	for _, job := range p.Jobs {
		for _, need := range job.Needs {
			switch {
			case need.Name == job.Name:
				issues = append(issues, types.Issue{
					ID:       types.ComputeIssueID(types.CategoryParallelization, "self-needs", need.Span),
					Severity: types.SeverityError,
					Category: types.CategoryParallelization,
					Span:     need.Span,
					Message:  fmt.Sprintf("job %q needs itself", job.Name),
					Edit:     removeNeedEdit(doc, job, need.Name),
				})
			case p.Job(need.Name) == nil:
				issues = append(issues, types.Issue{
					ID:       types.ComputeIssueID(types.CategoryParallelization, "unknown-needs", need.Span),
					Severity: types.SeverityError,
					Category: types.CategoryParallelization,
					Span:     need.Span,
					Message:  fmt.Sprintf("job %q needs unknown job %q", job.Name, need.Name),
				})
			}
		}
	}

	g := graph.New(p)
	cycles := g.Cycles()
	for _, cycle := range cycles {
		span := cycleSpan(p, cycle)
		issues = append(issues, types.Issue{
			ID:       types.ComputeIssueID(types.CategoryParallelization, "dependency-cycle", span),
			Severity: types.SeverityError,
			Category: types.CategoryParallelization,
			Span:     span,
			Message:  "dependency cycle: " + strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> "),
		})
	}
	if len(cycles) > 0 {
		return issues, nil
	}

	for _, edge := range g.RedundantEdges() {
		job := p.Job(edge.From)
		span := needSpan(job, edge.To)
		issues = append(issues, types.Issue{
			ID:       types.ComputeIssueID(types.CategoryParallelization, "redundant-needs", span),
			Severity: types.SeverityWarning,
			Category: types.CategoryParallelization,
			Span:     span,
			Message: fmt.Sprintf("job %q needs %q, which is already implied transitively",
				edge.From, edge.To),
			Edit: removeNeedEdit(doc, job, edge.To),
		})
	}

	for _, group := range g.ParallelGroups() {
		first := p.Job(group[0])
		issues = append(issues, types.Issue{
			ID:       types.ComputeIssueID(types.CategoryParallelization, "parallel-group", first.NameSpan),
			Severity: types.SeverityInfo,
			Category: types.CategoryParallelization,
			Span:     first.NameSpan,
			Message: fmt.Sprintf("jobs %s share no dependencies and run in parallel; leave their needs unchanged",
				strings.Join(group, ", ")),
		})
	}
	return issues, nil
}

func cycleSpan(p *pipeline.Pipeline, cycle []string) types.Span {
	job := p.Job(cycle[0])
	if entry := job.NeedsEntry(); entry != nil {
		return entry.Value.Span
	}
	return job.NameSpan
}

func needSpan(job *pipeline.Job, name string) types.Span {
	for _, need := range job.Needs {
		if need.Name == name {
			return need.Span
		}
	}
	return job.NameSpan
}

// removeNeedEdit rewrites the job's needs value without the named entry. The
// whole needs line goes away when nothing remains; otherwise the value is
// regenerated as a flow list.
func removeNeedEdit(doc *document.Document, job *pipeline.Job, name string) *types.Edit {
	entry := job.NeedsEntry()
	if entry == nil {
		return nil
	}

	var remaining []string
	removed := false
	for _, need := range job.Needs {
		if need.Name == name && !removed {
			removed = true
			continue
		}
		remaining = append(remaining, need.Name)
	}
	if !removed {
		return nil
	}

	if len(remaining) == 0 {
		entrySpan := types.Span{
			Offset: types.OffsetSpan{
				Start: entry.Key.Span.Offset.Start,
				End:   entry.Value.Span.Offset.End,
			},
		}
		return types.Replace(doc.LineExtent(entrySpan), "")
	}
	return types.Replace(entry.Value.Span, "["+strings.Join(remaining, ", ")+"]")
}
