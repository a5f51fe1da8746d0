package pipeline

import (
	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/types"
)

// Build maps a parsed document onto the Pipeline model. It fails with a
// SchemaError when a required field is missing or mis-shaped; unknown fields
// are carried through untouched so analyzers can still address their spans.
func Build(doc *document.Document) (*Pipeline, error) {
	root := doc.Root
	if root == nil {
		return nil, &types.SchemaError{
			Expected: "pipeline mapping",
			Found:    "empty document",
		}
	}
	if root.Kind != document.KindMapping {
		return nil, &types.SchemaError{
			Span:     root.Span,
			Expected: "pipeline mapping",
			Found:    root.Kind.String(),
		}
	}

	p := &Pipeline{byName: make(map[string]*Job)}
	if n := root.Get("name"); n != nil && n.Kind == document.KindScalar {
		p.Name = n.Value
	}

	jobsNode := root.Get("jobs")
	if jobsNode == nil {
		return nil, &types.SchemaError{
			Span:     root.Span,
			Expected: `"jobs" mapping`,
			Found:    "no jobs field",
		}
	}
	if jobsNode.Kind != document.KindMapping {
		return nil, &types.SchemaError{
			Span:     jobsNode.Span,
			Expected: `"jobs" mapping`,
			Found:    jobsNode.Kind.String(),
		}
	}

	for _, entry := range jobsNode.Entries {
		job, err := buildJob(entry)
		if err != nil {
			return nil, err
		}
		p.Jobs = append(p.Jobs, job)
		p.byName[job.Name] = job
	}
	return p, nil
}

func buildJob(entry document.MapEntry) (*Job, error) {
	name := entry.Key.Value
	body := entry.Value
	if body.Kind != document.KindMapping {
		return nil, &types.SchemaError{
			Span:     body.Span,
			Expected: "job mapping for " + name,
			Found:    body.Kind.String(),
		}
	}

	job := &Job{
		Name:     name,
		NameSpan: entry.Key.Span,
		Span:     body.Span,
		Node:     body,
		Fields:   make(map[string]*document.Node, len(body.Entries)),
	}
	for _, e := range body.Entries {
		job.Fields[e.Key.Value] = e.Value
	}

	if needsNode := body.Get("needs"); needsNode != nil {
		needs, err := buildNeeds(needsNode)
		if err != nil {
			return nil, err
		}
		job.Needs = needs
	}

	if stepsNode := body.Get("steps"); stepsNode != nil {
		steps, err := buildSteps(stepsNode)
		if err != nil {
			return nil, err
		}
		job.Steps = steps
	}
	return job, nil
}

// buildNeeds accepts the two declared-dependency shapes: a single job name or
// a sequence of job names. Each entry keeps the span of its own name token.
func buildNeeds(node *document.Node) ([]Need, error) {
	switch node.Kind {
	case document.KindScalar:
		return []Need{{Name: node.Value, Span: node.Span}}, nil
	case document.KindSequence:
		needs := make([]Need, 0, len(node.Items))
		for _, item := range node.Items {
			if item.Kind != document.KindScalar {
				return nil, &types.SchemaError{
					Span:     item.Span,
					Expected: "job name",
					Found:    item.Kind.String(),
				}
			}
			needs = append(needs, Need{Name: item.Value, Span: item.Span})
		}
		return needs, nil
	default:
		return nil, &types.SchemaError{
			Span:     node.Span,
			Expected: "job name or list of job names",
			Found:    node.Kind.String(),
		}
	}
}

func buildSteps(node *document.Node) ([]*Step, error) {
	if node.Kind != document.KindSequence {
		return nil, &types.SchemaError{
			Span:     node.Span,
			Expected: "list of steps",
			Found:    node.Kind.String(),
		}
	}

	steps := make([]*Step, 0, len(node.Items))
	for i, item := range node.Items {
		if item.Kind != document.KindMapping {
			return nil, &types.SchemaError{
				Span:     item.Span,
				Expected: "step mapping",
				Found:    item.Kind.String(),
			}
		}
		fields := make(map[string]*document.Node, len(item.Entries))
		for _, e := range item.Entries {
			fields[e.Key.Value] = e.Value
		}
		steps = append(steps, &Step{
			Index:  i,
			Kind:   classifyStep(fields),
			Span:   item.Span,
			Node:   item,
			Fields: fields,
		})
	}
	return steps, nil
}
