package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Severity classifies how serious an issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category identifies which detection pass produced an issue.
type Category string

const (
	CategorySyntax          Category = "syntax"
	CategorySchema          Category = "schema"
	CategoryCaching         Category = "caching"
	CategoryOrdering        Category = "ordering"
	CategoryParallelization Category = "parallelization"

	// CategoryInternal marks a synthesized diagnostic for an analyzer that
	// failed; never produced by a healthy pass.
	CategoryInternal Category = "internal"
)

// Priority returns the fixed apply-precedence of a category: more foundational
// fixes win conflicts. Lower is stronger.
func (c Category) Priority() int {
	switch c {
	case CategorySyntax:
		return 0
	case CategorySchema:
		return 1
	case CategoryCaching:
		return 2
	case CategoryOrdering:
		return 3
	case CategoryParallelization:
		return 4
	default:
		return 5
	}
}

// Issue is one detected defect or optimization opportunity.
type Issue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Span     Span     `json:"span"`
	Message  string   `json:"message"`
	Edit     *Edit    `json:"edit,omitempty"`
}

// ComputeIssueID computes a stable content-based ID for an issue.
// Format: SHA-1(category + '\0' + code + '\0' + start + '\0' + end)
func ComputeIssueID(category Category, code string, span Span) string {
	h := sha1.New()
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write([]byte(code))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", span.Offset.Start)
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", span.Offset.End)
	return hex.EncodeToString(h.Sum(nil))
}
