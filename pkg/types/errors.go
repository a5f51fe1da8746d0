package types

import "fmt"

// ParseError reports malformed input the parser could not structure.
// Fatal for the file: analysis cannot proceed past it.
type ParseError struct {
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Reason)
}

// SchemaError reports structurally valid input that is not a valid pipeline.
type SchemaError struct {
	Span     Span
	Expected string
	Found    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %d:%d: expected %s, found %s",
		e.Span.Source.Start.Line, e.Span.Source.Start.Column, e.Expected, e.Found)
}
