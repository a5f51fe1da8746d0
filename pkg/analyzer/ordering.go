package analyzer

import (
	"fmt"
	"strings"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Ordering flags steps scheduled after the steps that consume their output:
// checkout not first, dependency installation after a build or test step, and
// cache restoration after the work it should have primed. The first two get
// step-move edits; the cache case is report-only.
type Ordering struct{}

func (Ordering) Name() string             { return "ordering" }
func (Ordering) Category() types.Category { return types.CategoryOrdering }

func (Ordering) Scan(doc *document.Document, p *pipeline.Pipeline) ([]types.Issue, error) {
	var issues []types.Issue
	for _, job := range p.Jobs {
		issues = append(issues, scanJobOrder(doc, job)...)
	}
	return issues, nil
}

func scanJobOrder(doc *document.Document, job *pipeline.Job) []types.Issue {
	if len(job.Steps) < 2 {
		return nil
	}

	phases := make([]StepPhase, len(job.Steps))
	for i, step := range job.Steps {
		phases[i] = stepPhase(step)
	}

	var issues []types.Issue

	// Checkout belongs at the front.
	if phases[0] != PhaseCheckout {
		for i, step := range job.Steps[1:] {
			if phases[i+1] != PhaseCheckout {
				continue
			}
			ext := doc.LineExtent(step.Span)
			front := doc.LineExtent(job.Steps[0].Span).Offset.Start
			issues = append(issues, types.Issue{
				ID:       types.ComputeIssueID(types.CategoryOrdering, "checkout-not-first", ext),
				Severity: types.SeverityWarning,
				Category: types.CategoryOrdering,
				Span:     step.Span,
				Message:  fmt.Sprintf("job %q: checkout step should run first", job.Name),
				Edit:     types.Move(ext, front),
			})
			break
		}
	}

	// Install steps belong before their first consumer.
	firstConsumer := -1
	for i, ph := range phases {
		if ph >= PhaseBuild {
			firstConsumer = i
			break
		}
	}
	if firstConsumer >= 0 {
		for i := firstConsumer + 1; i < len(job.Steps); i++ {
			if phases[i] != PhaseInstall {
				continue
			}
			step := job.Steps[i]
			ext := doc.LineExtent(step.Span)
			target := doc.LineExtent(job.Steps[firstConsumer].Span).Offset.Start
			issues = append(issues, types.Issue{
				ID:       types.ComputeIssueID(types.CategoryOrdering, "install-after-consumer", ext),
				Severity: types.SeverityWarning,
				Category: types.CategoryOrdering,
				Span:     step.Span,
				Message: fmt.Sprintf("job %q: dependency install step runs after the %s step it benefits",
					job.Name, phases[firstConsumer]),
				Edit: types.Move(ext, target),
			})
		}

		// A cache restore after the build/test it should prime is
		// pointless this run; moving it is not safe to automate because
		// post-job cache saves depend on step position.
		for i := firstConsumer + 1; i < len(job.Steps); i++ {
			step := job.Steps[i]
			if step.Kind != pipeline.StepCache {
				continue
			}
			issues = append(issues, types.Issue{
				ID:       types.ComputeIssueID(types.CategoryOrdering, "cache-after-work", step.Span),
				Severity: types.SeverityInfo,
				Category: types.CategoryOrdering,
				Span:     step.Span,
				Message: fmt.Sprintf("job %q: cache step runs after the %s step it should prime",
					job.Name, phases[firstConsumer]),
			})
		}
	}
	return issues
}

// stepPhase maps a step onto the canonical phase order.
func stepPhase(step *pipeline.Step) StepPhase {
	switch step.Kind {
	case pipeline.StepRun:
		return commands().Phase(step.Run())
	case pipeline.StepUses:
		uses := strings.ToLower(step.Uses())
		if strings.Contains(uses, "checkout") {
			return PhaseCheckout
		}
		if strings.Contains(uses, "setup-") {
			return PhaseSetup
		}
	}
	return PhaseOther
}
