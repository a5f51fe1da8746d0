package types

import "bytes"

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed (first line is 1, first column is 1).
func ComputeLineColumn(content []byte, byteOffset int64) (line, column int) {
	line = 1
	column = 1
	for i := int64(0); i < byteOffset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// LineIndex precomputes line start offsets for repeated offset<->position
// conversion over one fixed buffer.
type LineIndex struct {
	starts []int64 // starts[i] = byte offset of line i+1
	size   int64
}

// NewLineIndex builds a line index for content.
func NewLineIndex(content []byte) *LineIndex {
	starts := []int64{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, int64(i)+1)
		}
	}
	return &LineIndex{starts: starts, size: int64(len(content))}
}

// LineCount returns the number of lines (a trailing newline does not start a
// new counted line unless followed by content; an empty buffer has one line).
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// Offset converts a 1-based line:column to a byte offset, clamped to the buffer.
func (li *LineIndex) Offset(line, column int) int64 {
	if line < 1 {
		line = 1
	}
	if line > len(li.starts) {
		return li.size
	}
	off := li.starts[line-1] + int64(column-1)
	if off > li.size {
		off = li.size
	}
	return off
}

// Position converts a byte offset to a 1-based line:column.
func (li *LineIndex) Position(offset int64) SourcePoint {
	if offset < 0 {
		offset = 0
	}
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return SourcePoint{Line: lo + 1, Column: int(offset-li.starts[lo]) + 1}
}

// LineStart returns the offset of the first byte of the line containing offset.
func (li *LineIndex) LineStart(offset int64) int64 {
	return li.starts[li.Position(offset).Line-1]
}

// LineEnd returns the offset just past the line containing offset, including
// its newline when present.
func (li *LineIndex) LineEnd(offset int64) int64 {
	line := li.Position(offset).Line
	if line < len(li.starts) {
		return li.starts[line]
	}
	return li.size
}

// SpanBetween builds a Span from two byte offsets against this index.
func (li *LineIndex) SpanBetween(start, end int64) Span {
	return Span{
		Offset: OffsetSpan{Start: start, End: end},
		Source: SourceSpan{Start: li.Position(start), End: li.Position(end)},
	}
}

// LineText returns the text of the 1-based line without its newline.
func LineText(content []byte, li *LineIndex, line int) []byte {
	if line < 1 || line > len(li.starts) {
		return nil
	}
	start := li.starts[line-1]
	end := li.size
	if line < len(li.starts) {
		end = li.starts[line]
	}
	return bytes.TrimSuffix(content[start:end], []byte("\n"))
}
