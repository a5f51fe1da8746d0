package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/pipefix/pipefix/pkg/types"
)

// Parse turns raw text into a positioned Document.
// Tabs inside indentation are tolerated here (a shadow buffer with tabs
// swapped 1:1 for spaces is handed to the YAML parser, so offsets and columns
// in the original buffer stay valid); flagging them is the syntax analyzer's
// job. Duplicate mapping keys are a hard error.
func Parse(text []byte) (*Document, error) {
	lines := types.NewLineIndex(text)

	var root yaml.Node
	if err := yaml.Unmarshal(normalizeIndentTabs(text), &root); err != nil {
		return nil, yamlToParseError(err)
	}

	doc := &Document{Text: text, Lines: lines}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	c := &converter{text: text, lines: lines}
	node, err := c.node(root.Content[0])
	if err != nil {
		return nil, err
	}
	doc.Root = node
	return doc, nil
}

// normalizeIndentTabs replaces tab characters in each line's leading
// whitespace run with single spaces. One byte per byte, so every offset and
// column in the result matches the original buffer.
func normalizeIndentTabs(text []byte) []byte {
	out := make([]byte, len(text))
	copy(out, text)
	atIndent := true
	for i, b := range out {
		switch b {
		case '\n':
			atIndent = true
		case ' ':
			// still in the indentation run
		case '\t':
			if atIndent {
				out[i] = ' '
			}
		default:
			atIndent = false
		}
	}
	return out
}

var yamlLineRe = regexp.MustCompile(`line (\d+): (.+)`)

// yamlToParseError maps a yaml.v3 error onto ParseError, recovering the line
// number from the error text when present.
func yamlToParseError(err error) *types.ParseError {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &types.ParseError{Line: line, Column: 1, Reason: m[2]}
	}
	return &types.ParseError{Line: 1, Column: 1, Reason: msg}
}

// converter walks a yaml.Node tree and computes spans against the original
// buffer. yaml.v3 only reports start positions; end offsets are recovered by
// scanning the source according to each node's style.
type converter struct {
	text  []byte
	lines *types.LineIndex
}

// start converts a node's position into a byte offset. yaml.v3 columns count
// runes, so the column is walked rune by rune against the line's bytes; a
// multibyte rune earlier on the line advances the offset by its full width.
func (c *converter) start(y *yaml.Node) int64 {
	off := c.lines.Offset(y.Line, 1)
	for col := 1; col < y.Column && off < int64(len(c.text)); col++ {
		_, size := utf8.DecodeRune(c.text[off:])
		off += int64(size)
	}
	return off
}

func (c *converter) span(start, end int64) types.Span {
	return c.lines.SpanBetween(start, end)
}

func (c *converter) node(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.MappingNode:
		return c.mapping(y)
	case yaml.SequenceNode:
		return c.sequence(y)
	case yaml.ScalarNode:
		return c.scalar(y), nil
	case yaml.AliasNode:
		start := c.start(y)
		return &Node{
			Kind:  KindScalar,
			Value: y.Value,
			Span:  c.span(start, start+int64(len(y.Value))+1), // "*name"
		}, nil
	default:
		return nil, &types.ParseError{
			Line:   y.Line,
			Column: y.Column,
			Reason: fmt.Sprintf("unsupported node kind %d", y.Kind),
		}
	}
}

func (c *converter) mapping(y *yaml.Node) (*Node, error) {
	n := &Node{
		Kind:        KindMapping,
		HeadComment: y.HeadComment,
		LineComment: y.LineComment,
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(y.Content); i += 2 {
		ky, vy := y.Content[i], y.Content[i+1]
		if ky.Kind == yaml.ScalarNode {
			if seen[ky.Value] {
				return nil, &types.ParseError{
					Line:   ky.Line,
					Column: ky.Column,
					Reason: fmt.Sprintf("duplicate mapping key %q", ky.Value),
				}
			}
			seen[ky.Value] = true
		}

		key, err := c.node(ky)
		if err != nil {
			return nil, err
		}
		val, err := c.node(vy)
		if err != nil {
			return nil, err
		}
		n.Entries = append(n.Entries, MapEntry{Key: key, Value: val})
	}

	start := c.start(y)
	var end int64
	if y.Style&yaml.FlowStyle != 0 {
		end = c.scanDelimited(start, '{', '}')
	} else if len(n.Entries) > 0 {
		start = n.Entries[0].Key.Span.Offset.Start
		for _, e := range n.Entries {
			if e.Key.Span.Offset.End > end {
				end = e.Key.Span.Offset.End
			}
			if e.Value.Span.Offset.End > end {
				end = e.Value.Span.Offset.End
			}
		}
	} else {
		end = start
	}
	n.Span = c.span(start, end)
	return n, nil
}

func (c *converter) sequence(y *yaml.Node) (*Node, error) {
	n := &Node{
		Kind:        KindSequence,
		HeadComment: y.HeadComment,
		LineComment: y.LineComment,
	}

	for _, item := range y.Content {
		child, err := c.node(item)
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, child)
	}

	start := c.start(y)
	var end int64
	if y.Style&yaml.FlowStyle != 0 {
		end = c.scanDelimited(start, '[', ']')
	} else if len(n.Items) > 0 {
		start = c.dashStart(n.Items[0].Span.Offset.Start)
		for _, item := range n.Items {
			if item.Span.Offset.End > end {
				end = item.Span.Offset.End
			}
		}
	} else {
		end = start
	}
	n.Span = c.span(start, end)
	return n, nil
}

// dashStart walks back from a block-sequence item to its "-" marker so the
// sequence span covers the markers.
func (c *converter) dashStart(itemStart int64) int64 {
	ls := c.lines.LineStart(itemStart)
	for j := itemStart - 1; j >= ls; j-- {
		switch c.text[j] {
		case ' ', '\t':
			continue
		case '-':
			return j
		default:
			return itemStart
		}
	}
	return itemStart
}

func (c *converter) scalar(y *yaml.Node) *Node {
	start := c.start(y)
	var end int64
	switch y.Style {
	case yaml.SingleQuotedStyle:
		end = c.scanSingleQuoted(start)
	case yaml.DoubleQuotedStyle:
		end = c.scanDoubleQuoted(start)
	case yaml.LiteralStyle, yaml.FoldedStyle:
		end = c.scanBlockScalar(start)
	default:
		end = c.scanPlain(y, start)
	}
	return &Node{
		Kind:        KindScalar,
		Value:       y.Value,
		Span:        c.span(start, end),
		HeadComment: y.HeadComment,
		LineComment: y.LineComment,
	}
}

// scanPlain finds the end of a plain scalar. Single-line plain scalars appear
// verbatim in the source, so a prefix match settles the common case; the
// fallback consumes indented continuation lines.
func (c *converter) scanPlain(y *yaml.Node, start int64) int64 {
	if y.Value == "" {
		return start
	}
	if !strings.ContainsRune(y.Value, '\n') && bytes.HasPrefix(c.text[start:], []byte(y.Value)) {
		return start + int64(len(y.Value))
	}

	end := c.trimmedLineEnd(start)
	baseIndent := c.lineIndent(c.lines.LineStart(start))
	line := c.lines.Position(start).Line + 1
	for line <= c.lines.LineCount() {
		ls := c.lines.Offset(line, 1)
		lineText := types.LineText(c.text, c.lines, line)
		if len(bytes.TrimSpace(lineText)) == 0 {
			line++
			continue
		}
		if c.lineIndent(ls) <= baseIndent {
			break
		}
		end = c.trimmedLineEnd(ls)
		line++
	}
	return end
}

// trimmedLineEnd returns the offset just past the last content byte of the
// line containing off, excluding trailing whitespace and a trailing comment.
func (c *converter) trimmedLineEnd(off int64) int64 {
	ls := c.lines.LineStart(off)
	le := c.lines.LineEnd(off)
	lineText := c.text[ls:le]
	lineText = bytes.TrimSuffix(lineText, []byte("\n"))

	// A comment starts at "#" preceded by whitespace (or line start).
	if idx := bytes.Index(lineText[off-ls:], []byte(" #")); idx >= 0 {
		lineText = lineText[:int(off-ls)+idx]
	}
	trimmed := bytes.TrimRight(lineText, " \t")
	return ls + int64(len(trimmed))
}

// lineIndent counts the leading whitespace bytes of the line starting at ls.
func (c *converter) lineIndent(ls int64) int {
	n := 0
	for i := ls; i < int64(len(c.text)); i++ {
		if c.text[i] == ' ' || c.text[i] == '\t' {
			n++
			continue
		}
		break
	}
	return n
}

func (c *converter) scanSingleQuoted(start int64) int64 {
	i := start + 1 // opening quote
	for i < int64(len(c.text)) {
		if c.text[i] == '\'' {
			if i+1 < int64(len(c.text)) && c.text[i+1] == '\'' {
				i += 2 // escaped quote
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func (c *converter) scanDoubleQuoted(start int64) int64 {
	i := start + 1
	for i < int64(len(c.text)) {
		switch c.text[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

// scanBlockScalar consumes a literal/folded block: the header line ("|", ">")
// plus every following line indented deeper than the header's line.
func (c *converter) scanBlockScalar(start int64) int64 {
	headerStart := c.lines.LineStart(start)
	baseIndent := c.lineIndent(headerStart)
	end := c.trimmedLineEnd(start)

	line := c.lines.Position(start).Line + 1
	for line <= c.lines.LineCount() {
		ls := c.lines.Offset(line, 1)
		lineText := types.LineText(c.text, c.lines, line)
		if len(bytes.TrimSpace(lineText)) == 0 {
			line++
			continue
		}
		if c.lineIndent(ls) <= baseIndent {
			break
		}
		end = ls + int64(len(bytes.TrimRight(lineText, " \t")))
		line++
	}
	return end
}

// scanDelimited finds the end of a flow collection by matching brackets,
// skipping quoted strings.
func (c *converter) scanDelimited(start int64, open, close byte) int64 {
	depth := 0
	i := start
	for i < int64(len(c.text)) {
		switch c.text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\'':
			i = c.scanSingleQuoted(i) - 1
		case '"':
			i = c.scanDoubleQuoted(i) - 1
		}
		i++
	}
	return i
}
