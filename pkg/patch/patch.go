// Package patch consolidates edits from every analyzer into one ordered,
// non-overlapping plan and applies it to the original text. Conflict
// resolution is deterministic: a fixed sort order decides which of two
// overlapping edits wins, and the loser is reported, never silently dropped.
package patch

import (
	"sort"

	"github.com/pipefix/pipefix/pkg/types"
)

// part is one concrete span rewrite. A Replace edit is one part; a Move edit
// expands to a deletion part and an insertion part that are accepted or
// rejected together.
type part struct {
	issueID     string
	category    types.Category
	span        types.OffsetSpan
	replacement string
	partner     int // index of the paired move part, -1 for replace parts
}

// Rejection is an edit that lost conflict resolution. The issue is still
// reported to the caller; it just is not auto-applied.
type Rejection struct {
	Issue  types.Issue
	Reason string
}

// Plan is the deterministic outcome of merging all proposed edits: the
// accepted parts in ascending span order, the issues they came from, and the
// rejected remainder. A Plan is built once per analysis run and consumed once.
type Plan struct {
	Accepted []types.Issue
	Rejected []Rejection

	parts []part
}

// Build expands, orders, and conflict-resolves the edits carried by issues.
// text must be the exact buffer the issues were computed against; move edits
// materialize their insertion text from it.
func Build(text []byte, issues []types.Issue) *Plan {
	var parts []part
	partIssue := make([]types.Issue, 0)

	add := func(is types.Issue, p part) {
		p.issueID = is.ID
		p.category = is.Category
		parts = append(parts, p)
		partIssue = append(partIssue, is)
	}

	for _, is := range issues {
		if is.Edit == nil {
			continue
		}
		switch is.Edit.Kind {
		case types.EditReplace:
			add(is, part{span: is.Edit.Span.Offset, replacement: is.Edit.Replacement, partner: -1})
		case types.EditMove:
			src := is.Edit.Span.Offset
			moved := string(text[src.Start:src.End])
			del := len(parts)
			ins := del + 1
			add(is, part{span: src, replacement: "", partner: ins})
			add(is, part{
				span:        types.OffsetSpan{Start: is.Edit.ToOffset, End: is.Edit.ToOffset},
				replacement: moved,
				partner:     del,
			})
		}
	}

	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := parts[order[a]], parts[order[b]]
		if pa.span.Start != pb.span.Start {
			return pa.span.Start < pb.span.Start
		}
		if pa.span.End != pb.span.End {
			return pa.span.End < pb.span.End
		}
		if pa.category.Priority() != pb.category.Priority() {
			return pa.category.Priority() < pb.category.Priority()
		}
		return pa.issueID < pb.issueID
	})

	plan := &Plan{}
	accepted := make([]bool, len(parts))
	decided := make([]bool, len(parts))
	acceptedIssue := make(map[string]bool)
	rejectedIssue := make(map[string]bool)

	overlapsAccepted := func(span types.OffsetSpan) (string, bool) {
		for i, p := range parts {
			if accepted[i] && p.span.Overlaps(span) {
				return p.issueID, true
			}
		}
		return "", false
	}

	for _, i := range order {
		if decided[i] {
			continue
		}
		p := parts[i]

		blocker, blocked := overlapsAccepted(p.span)
		if !blocked && p.partner >= 0 {
			blocker, blocked = overlapsAccepted(parts[p.partner].span)
		}

		if blocked {
			decided[i] = true
			if p.partner >= 0 {
				decided[p.partner] = true
			}
			if !rejectedIssue[p.issueID] {
				rejectedIssue[p.issueID] = true
				plan.Rejected = append(plan.Rejected, Rejection{
					Issue:  partIssue[i],
					Reason: "overlaps " + blocker,
				})
			}
			continue
		}

		accepted[i] = true
		decided[i] = true
		if p.partner >= 0 {
			accepted[p.partner] = true
			decided[p.partner] = true
		}
		if !acceptedIssue[p.issueID] {
			acceptedIssue[p.issueID] = true
			plan.Accepted = append(plan.Accepted, partIssue[i])
		}
	}

	for _, i := range order {
		if accepted[i] {
			plan.parts = append(plan.parts, parts[i])
		}
	}
	return plan
}

// Edits returns the accepted parts as concrete span/replacement pairs in
// ascending span order.
func (p *Plan) Edits() []types.Edit {
	out := make([]types.Edit, 0, len(p.parts))
	for _, part := range p.parts {
		out = append(out, types.Edit{
			Kind:        types.EditReplace,
			Span:        types.Span{Offset: part.span},
			Replacement: part.replacement,
		})
	}
	return out
}

// Apply rewrites text with the accepted edits in one right-to-left pass, so
// each replacement leaves the offsets of the edits before it untouched.
func (p *Plan) Apply(text []byte) []byte {
	out := append([]byte(nil), text...)
	for i := len(p.parts) - 1; i >= 0; i-- {
		part := p.parts[i]
		rewritten := make([]byte, 0, len(out)+len(part.replacement))
		rewritten = append(rewritten, out[:part.span.Start]...)
		rewritten = append(rewritten, part.replacement...)
		rewritten = append(rewritten, out[part.span.End:]...)
		out = rewritten
	}
	return out
}
