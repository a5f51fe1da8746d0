// Package pipeline normalizes a parsed document into the job/step model the
// analyzers work on. Model elements keep span copies back into the document;
// the model is rebuilt, never mutated, when the text changes.
package pipeline

import (
	"strings"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/types"
)

// StepKind classifies what a step does, as far as the analyzers care.
type StepKind int

const (
	StepUnknown StepKind = iota
	StepRun              // executes a shell command
	StepUses             // invokes a reusable action
	StepCache            // invokes a cache action
)

func (k StepKind) String() string {
	switch k {
	case StepRun:
		return "run"
	case StepUses:
		return "uses"
	case StepCache:
		return "cache"
	default:
		return "unknown"
	}
}

// Need is one declared dependency with the span of its name token.
type Need struct {
	Name string
	Span types.Span
}

// Step is one entry of a job's steps sequence.
// Fields holds every field's value node, known or not, so analyzers can
// address the spans of fields the model does not interpret.
type Step struct {
	Index  int
	Kind   StepKind
	Span   types.Span
	Node   *document.Node
	Fields map[string]*document.Node
}

// Field returns the named field's value node, or nil.
func (s *Step) Field(name string) *document.Node {
	return s.Fields[name]
}

// Run returns the step's run command, or "" for non-run steps.
func (s *Step) Run() string {
	if n := s.Fields["run"]; n != nil && n.Kind == document.KindScalar {
		return n.Value
	}
	return ""
}

// Uses returns the step's action reference, or "".
func (s *Step) Uses() string {
	if n := s.Fields["uses"]; n != nil && n.Kind == document.KindScalar {
		return n.Value
	}
	return ""
}

// Job is one named job: its declared dependencies, its steps in declaration
// order, and every raw field for analyzers that look past the model.
type Job struct {
	Name     string
	NameSpan types.Span
	Span     types.Span
	Node     *document.Node
	Needs    []Need
	Steps    []*Step
	Fields   map[string]*document.Node
}

// NeedsEntry returns the job's needs key/value entry, or nil when the job
// declares no dependencies. Edits that rewrite or remove the whole needs
// field address this entry's spans.
func (j *Job) NeedsEntry() *document.MapEntry {
	if j.Node == nil {
		return nil
	}
	return j.Node.Entry("needs")
}

// Pipeline is the normalized model. Jobs keeps declaration order; that order
// is the deterministic tie-break for all downstream output.
type Pipeline struct {
	Name string
	Jobs []*Job

	byName map[string]*Job
}

// Job returns the named job, or nil.
func (p *Pipeline) Job(name string) *Job {
	return p.byName[name]
}

// classifyStep decides a step's kind from its fields. A cache action is any
// uses reference naming a cache action (actions/cache and forks).
func classifyStep(fields map[string]*document.Node) StepKind {
	if n := fields["uses"]; n != nil && n.Kind == document.KindScalar {
		if strings.Contains(strings.ToLower(n.Value), "cache") {
			return StepCache
		}
		return StepUses
	}
	if n := fields["run"]; n != nil && n.Kind == document.KindScalar {
		return StepRun
	}
	return StepUnknown
}
