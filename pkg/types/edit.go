package types

// EditKind distinguishes plain replacements from step moves.
type EditKind int

const (
	// EditReplace substitutes Replacement for the text at Span.
	EditReplace EditKind = iota

	// EditMove relocates the text at Span to ToOffset. The two halves
	// (deletion at Span, insertion at ToOffset) are accepted or rejected
	// together by the patch engine.
	EditMove
)

// Edit is a proposed textual change addressing one source span.
// A Replace edit is a pure function of its own span; a Move edit additionally
// names the destination offset for the removed text.
type Edit struct {
	Kind        EditKind   `json:"kind"`
	Span        Span       `json:"span"`
	Replacement string     `json:"replacement,omitempty"`
	ToOffset    int64      `json:"to_offset,omitempty"`
}

// Replace builds a replacement edit.
func Replace(span Span, replacement string) *Edit {
	return &Edit{Kind: EditReplace, Span: span, Replacement: replacement}
}

// Move builds a move edit relocating the text at span to toOffset.
func Move(span Span, toOffset int64) *Edit {
	return &Edit{Kind: EditMove, Span: span, ToOffset: toOffset}
}
