// Package document turns raw pipeline configuration text into a positioned
// tree: every node keeps the exact byte/line/column span it came from, so
// analyzers can propose edits that address the original buffer directly.
package document

import (
	"github.com/pipefix/pipefix/pkg/types"
)

// NodeKind is the closed set of node shapes analyzers pattern-match on.
type NodeKind int

const (
	KindScalar NodeKind = iota
	KindMapping
	KindSequence
)

func (k NodeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// MapEntry is one key/value pair of a mapping node. Entry order matches
// declaration order; keys are unique within a mapping.
type MapEntry struct {
	Key   *Node
	Value *Node
}

// Node is one element of the parsed tree.
// Invariants: sibling spans are non-overlapping and strictly increasing in
// document order; a parent's span contains all children's spans.
type Node struct {
	Kind    NodeKind
	Value   string     // scalar value (decoded)
	Entries []MapEntry // mapping children
	Items   []*Node    // sequence children
	Span    types.Span

	// Trivia attached to this node. The Document never re-serializes, so
	// comments survive by construction; these are kept for analyzers that
	// want to read them.
	HeadComment string
	LineComment string
}

// Get returns the value node for key, or nil. Mapping nodes only.
func (n *Node) Get(key string) *Node {
	for _, e := range n.Entries {
		if e.Key.Value == key {
			return e.Value
		}
	}
	return nil
}

// Entry returns the full entry for key (key and value nodes), or nil.
func (n *Node) Entry(key string) *MapEntry {
	for i := range n.Entries {
		if n.Entries[i].Key.Value == key {
			return &n.Entries[i]
		}
	}
	return nil
}

// Document is the parsed tree plus the buffer it was derived from.
// It is the single source of truth for spans: model objects built from it
// hold span copies and must be rebuilt, never patched, if the text changes.
type Document struct {
	Text  []byte
	Root  *Node // nil for an empty document
	Lines *types.LineIndex
}

// Slice returns the original text covered by span.
func (d *Document) Slice(span types.Span) string {
	start, end := span.Offset.Start, span.Offset.End
	if start < 0 {
		start = 0
	}
	if end > int64(len(d.Text)) {
		end = int64(len(d.Text))
	}
	if start >= end {
		return ""
	}
	return string(d.Text[start:end])
}

// LineExtent widens span to whole lines: from the start of its first line to
// just past the newline of its last line. Used for edits that remove or move
// entire entries.
func (d *Document) LineExtent(span types.Span) types.Span {
	start := d.Lines.LineStart(span.Offset.Start)
	end := span.Offset.End
	if end > 0 {
		end = d.Lines.LineEnd(end - 1)
	}
	return d.Lines.SpanBetween(start, end)
}
