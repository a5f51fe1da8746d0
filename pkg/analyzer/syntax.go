package analyzer

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Known schema keys per position. Typo detection only fires on a key that is
// a single edit away from a key valid at that position; anything else is an
// unknown field and stays untouched.
var (
	rootKeys = []string{"name", "on", "jobs", "env", "permissions", "concurrency", "defaults"}
	jobKeys  = []string{
		"name", "needs", "steps", "runs-on", "env", "if", "strategy",
		"timeout-minutes", "container", "services", "outputs",
		"permissions", "uses", "with", "secrets", "continue-on-error",
	}
	stepKeys = []string{
		"name", "run", "uses", "with", "env", "if", "id", "shell",
		"working-directory", "continue-on-error", "timeout-minutes",
	}
	cacheWithKeys = []string{"key", "path", "restore-keys"}
)

// Syntax flags tab indentation, trailing whitespace, and near-miss key typos.
// Every edit covers only the offending token or whitespace run, never the
// whole line.
type Syntax struct{}

func (Syntax) Name() string             { return "syntax" }
func (Syntax) Category() types.Category { return types.CategorySyntax }

func (Syntax) Scan(doc *document.Document, p *pipeline.Pipeline) ([]types.Issue, error) {
	var issues []types.Issue
	issues = append(issues, scanWhitespace(doc)...)
	issues = append(issues, scanKeyTypos(doc)...)
	return issues, nil
}

func scanWhitespace(doc *document.Document) []types.Issue {
	var issues []types.Issue
	for line := 1; line <= doc.Lines.LineCount(); line++ {
		ls := doc.Lines.Offset(line, 1)
		text := string(types.LineText(doc.Text, doc.Lines, line))

		indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
		blank := indent == text

		if !blank && strings.ContainsRune(indent, '\t') {
			span := doc.Lines.SpanBetween(ls, ls+int64(len(indent)))
			issues = append(issues, types.Issue{
				ID:       types.ComputeIssueID(types.CategorySyntax, "tab-indent", span),
				Severity: types.SeverityError,
				Category: types.CategorySyntax,
				Span:     span,
				Message:  fmt.Sprintf("line %d: indentation uses tabs", line),
				Edit:     types.Replace(span, strings.ReplaceAll(indent, "\t", "  ")),
			})
		}

		trailing := text[len(strings.TrimRight(text, " \t")):]
		if blank {
			trailing = text
		}
		if trailing != "" {
			start := ls + int64(len(text)-len(trailing))
			span := doc.Lines.SpanBetween(start, start+int64(len(trailing)))
			issues = append(issues, types.Issue{
				ID:       types.ComputeIssueID(types.CategorySyntax, "trailing-whitespace", span),
				Severity: types.SeverityWarning,
				Category: types.CategorySyntax,
				Span:     span,
				Message:  fmt.Sprintf("line %d: trailing whitespace", line),
				Edit:     types.Replace(span, ""),
			})
		}
	}
	return issues
}

func scanKeyTypos(doc *document.Document) []types.Issue {
	root := doc.Root
	if root == nil || root.Kind != document.KindMapping {
		return nil
	}

	var issues []types.Issue
	check := func(node *document.Node, known []string) {
		if node == nil || node.Kind != document.KindMapping {
			return
		}
		for _, e := range node.Entries {
			if issue := keyTypoIssue(e.Key, known); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}

	check(root, rootKeys)
	jobs := root.Get("jobs")
	if jobs == nil || jobs.Kind != document.KindMapping {
		return issues
	}
	for _, jobEntry := range jobs.Entries {
		body := jobEntry.Value
		check(body, jobKeys)
		steps := body.Get("steps")
		if steps == nil || steps.Kind != document.KindSequence {
			continue
		}
		for _, step := range steps.Items {
			check(step, stepKeys)
			if uses := step.Get("uses"); uses != nil && strings.Contains(strings.ToLower(uses.Value), "cache") {
				check(step.Get("with"), cacheWithKeys)
			}
		}
	}
	return issues
}

func keyTypoIssue(key *document.Node, known []string) *types.Issue {
	for _, k := range known {
		if key.Value == k {
			return nil
		}
	}
	for _, k := range known {
		if len(key.Value) < 3 || levenshtein.Distance(key.Value, k, nil) != 1 {
			continue
		}
		return &types.Issue{
			ID:       types.ComputeIssueID(types.CategorySyntax, "key-typo", key.Span),
			Severity: types.SeverityError,
			Category: types.CategorySyntax,
			Span:     key.Span,
			Message:  fmt.Sprintf("unknown key %q, did you mean %q", key.Value, k),
			Edit:     types.Replace(key.Span, k),
		}
	}
	return nil
}
