// Package redact masks secrets in pipeline text before it is shown or
// persisted. Masking is length-preserving so every span computed against the
// original buffer stays valid for the redacted copy. The analysis core never
// calls this package; the CLI layer applies it to output.
package redact

import (
	"regexp"

	"github.com/pipefix/pipefix/pkg/types"
)

// Finding is one masked secret: which pattern hit and where.
type Finding struct {
	Rule string     `json:"rule"`
	Span types.Span `json:"span"`
}

type pattern struct {
	name string
	re   *regexp.Regexp
	// group selects the submatch to mask; 0 masks the whole match.
	group int
}

var patterns = []pattern{
	{name: "github-token", re: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,255}`)},
	{name: "aws-access-key", re: regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{name: "slack-token", re: regexp.MustCompile(`xox[baprs]-[0-9A-Za-z-]{10,48}`)},
	{name: "jwt", re: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)},
	{name: "url-credentials", re: regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^/\s:@]+:([^@\s]+)@`), group: 1},
	{name: "private-key", re: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{
		name:  "credential-assignment",
		re:    regexp.MustCompile(`(?i)(?:password|passwd|secret|api[_-]?key|access[_-]?token)["']?\s*[:=]\s*["']?([^\s"']{8,})`),
		group: 1,
	},
}

// Redact masks every secret found in text and reports where each was. The
// returned buffer has the same length as the input.
func Redact(text []byte) ([]byte, []Finding) {
	out := append([]byte(nil), text...)
	var findings []Finding

	for _, p := range patterns {
		for _, loc := range p.re.FindAllSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if p.group > 0 && loc[2*p.group] >= 0 {
				start, end = loc[2*p.group], loc[2*p.group+1]
			}
			if alreadyMasked(out[start:end]) {
				continue
			}
			for i := start; i < end; i++ {
				out[i] = '*'
			}
			line, col := types.ComputeLineColumn(text, int64(start))
			endLine, endCol := types.ComputeLineColumn(text, int64(end))
			findings = append(findings, Finding{
				Rule: p.name,
				Span: types.Span{
					Offset: types.OffsetSpan{Start: int64(start), End: int64(end)},
					Source: types.SourceSpan{
						Start: types.SourcePoint{Line: line, Column: col},
						End:   types.SourcePoint{Line: endLine, Column: endCol},
					},
				},
			})
		}
	}
	return out, findings
}

func alreadyMasked(b []byte) bool {
	for _, c := range b {
		if c != '*' {
			return false
		}
	}
	return len(b) > 0
}
