package types

import "testing"

func TestComputeLineColumn(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		byteOffset int64
		wantLine   int
		wantColumn int
	}{
		{
			name:       "empty content at offset 0",
			content:    []byte{},
			byteOffset: 0,
			wantLine:   1,
			wantColumn: 1,
		},
		{
			name:       "single line at offset 2",
			content:    []byte("jobs:"),
			byteOffset: 2,
			wantLine:   1,
			wantColumn: 3,
		},
		{
			name:       "multi-line at offset 7",
			content:    []byte("jobs:\n  build:"),
			byteOffset: 7,
			wantLine:   2,
			wantColumn: 2,
		},
		{
			name:       "offset at newline",
			content:    []byte("jobs:\n  build:"),
			byteOffset: 5,
			wantLine:   1,
			wantColumn: 6,
		},
		{
			name:       "offset beyond content length",
			content:    []byte("jobs:"),
			byteOffset: 100,
			wantLine:   1,
			wantColumn: 6,
		},
		{
			name:       "offset at start of second line",
			content:    []byte("jobs:\n  build:"),
			byteOffset: 6,
			wantLine:   2,
			wantColumn: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLine, gotColumn := ComputeLineColumn(tt.content, tt.byteOffset)
			if gotLine != tt.wantLine {
				t.Errorf("ComputeLineColumn() line = %v, want %v", gotLine, tt.wantLine)
			}
			if gotColumn != tt.wantColumn {
				t.Errorf("ComputeLineColumn() column = %v, want %v", gotColumn, tt.wantColumn)
			}
		})
	}
}

func TestLineIndexRoundTrip(t *testing.T) {
	content := []byte("jobs:\n  build:\n    steps: []\n")
	li := NewLineIndex(content)

	for off := int64(0); off <= int64(len(content)); off++ {
		pos := li.Position(off)
		wantLine, wantCol := ComputeLineColumn(content, off)
		if pos.Line != wantLine || pos.Column != wantCol {
			t.Fatalf("Position(%d) = %d:%d, want %d:%d", off, pos.Line, pos.Column, wantLine, wantCol)
		}
		if back := li.Offset(pos.Line, pos.Column); back != off {
			t.Fatalf("Offset(%d, %d) = %d, want %d", pos.Line, pos.Column, back, off)
		}
	}
}

func TestLineIndexLineBounds(t *testing.T) {
	content := []byte("a: 1\nbb: 2\nccc: 3")
	li := NewLineIndex(content)

	if got := li.LineStart(7); got != 5 {
		t.Errorf("LineStart(7) = %d, want 5", got)
	}
	if got := li.LineEnd(7); got != 11 {
		t.Errorf("LineEnd(7) = %d, want 11", got)
	}
	// Last line has no trailing newline.
	if got := li.LineEnd(12); got != int64(len(content)) {
		t.Errorf("LineEnd(12) = %d, want %d", got, len(content))
	}
	if got := string(LineText(content, li, 2)); got != "bb: 2" {
		t.Errorf("LineText(2) = %q, want %q", got, "bb: 2")
	}
}

func TestOffsetSpanOverlaps(t *testing.T) {
	a := OffsetSpan{Start: 0, End: 5}
	b := OffsetSpan{Start: 5, End: 10}
	c := OffsetSpan{Start: 4, End: 6}

	if a.Overlaps(b) {
		t.Error("adjacent spans must not overlap")
	}
	if !a.Overlaps(c) || !b.Overlaps(c) {
		t.Error("intersecting spans must overlap")
	}
	empty := OffsetSpan{Start: 5, End: 5}
	if a.Overlaps(empty) || b.Overlaps(empty) {
		t.Error("empty span at boundary must not overlap")
	}
}

func TestComputeIssueIDStable(t *testing.T) {
	span := Span{Offset: OffsetSpan{Start: 10, End: 20}}
	a := ComputeIssueID(CategorySyntax, "tab-indent", span)
	b := ComputeIssueID(CategorySyntax, "tab-indent", span)
	if a != b {
		t.Error("issue ID must be deterministic")
	}
	if a == ComputeIssueID(CategoryCaching, "tab-indent", span) {
		t.Error("issue ID must vary by category")
	}
	if a == ComputeIssueID(CategorySyntax, "trailing-whitespace", span) {
		t.Error("issue ID must vary by code")
	}
}
