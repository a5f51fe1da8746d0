package types

// OffsetSpan is byte range [Start, End) - half-open interval.
type OffsetSpan struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the span.
func (o OffsetSpan) Len() int64 {
	return o.End - o.Start
}

// Overlaps reports whether two half-open spans intersect.
// Adjacent spans (one ending where the other starts) do not overlap.
func (o OffsetSpan) Overlaps(other OffsetSpan) bool {
	return o.Start < other.End && other.Start < o.End
}

// Contains reports whether other lies entirely within o.
func (o OffsetSpan) Contains(other OffsetSpan) bool {
	return o.Start <= other.Start && other.End <= o.End
}

// SourcePoint is line:column position (1-based).
type SourcePoint struct {
	Line   int
	Column int
}

// SourceSpan is start-end line:column range.
type SourceSpan struct {
	Start SourcePoint
	End   SourcePoint
}

// Span combines byte offsets and source positions.
// It identifies exactly where a piece of text came from in one document.
type Span struct {
	Offset OffsetSpan
	Source SourceSpan
}
