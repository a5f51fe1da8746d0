// Package report renders analysis results for terminals and machines. The
// human format groups issues by file in line order with a severity summary;
// the json format emits the full structured result.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/pipefix/pipefix/pkg/patch"
	"github.com/pipefix/pipefix/pkg/types"
)

// FileReport is everything reported for one analyzed file.
type FileReport struct {
	Path     string            `json:"path"`
	Issues   []types.Issue     `json:"issues"`
	Rejected []patch.Rejection `json:"rejected,omitempty"`
	Applied  int               `json:"applied"`
	Error    string            `json:"error,omitempty"`
}

// Summary counts issues by severity across all files.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Applied  int `json:"applied"`
	Files    int `json:"files"`
}

// styles holds the color formatters for human output.
type styles struct {
	path     *color.Color
	err      *color.Color
	warning  *color.Color
	info     *color.Color
	location *color.Color
	summary  *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		path:     color.New(color.Bold, color.FgHiWhite),
		err:      color.New(color.Bold, color.FgHiRed),
		warning:  color.New(color.FgYellow),
		info:     color.New(color.FgHiBlue),
		location: color.New(color.FgHiBlack),
		summary:  color.New(color.Bold),
	}
	if !enabled {
		s.path.DisableColor()
		s.err.DisableColor()
		s.warning.DisableColor()
		s.info.DisableColor()
		s.location.DisableColor()
		s.summary.DisableColor()
	}
	return s
}

// SetupColor resolves a --color flag value: always, never, or auto (TTY on
// stdout and NO_COLOR unset).
func SetupColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != ""
	}
}

// Reporter writes file reports in one format.
type Reporter struct {
	w      io.Writer
	format string
	styles *styles
}

// New creates a reporter for format "human" or "json".
func New(w io.Writer, format string) *Reporter {
	return &Reporter{
		w:      w,
		format: format,
		styles: newStyles(!color.NoColor),
	}
}

// Write renders all file reports followed by a summary.
func (r *Reporter) Write(reports []FileReport) error {
	if r.format == "json" {
		return r.writeJSON(reports)
	}
	return r.writeHuman(reports)
}

func (r *Reporter) writeJSON(reports []FileReport) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Files   []FileReport `json:"files"`
		Summary Summary      `json:"summary"`
	}{Files: reports, Summary: summarize(reports)})
}

func (r *Reporter) writeHuman(reports []FileReport) error {
	for _, fr := range reports {
		if fr.Error == "" && len(fr.Issues) == 0 {
			continue
		}
		r.styles.path.Fprintln(r.w, fr.Path)
		if fr.Error != "" {
			fmt.Fprintf(r.w, "  %s %s\n", r.styles.err.Sprint("error:"), fr.Error)
			continue
		}

		issues := append([]types.Issue(nil), fr.Issues...)
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].Span.Offset.Start < issues[j].Span.Offset.Start
		})
		rejected := make(map[string]string, len(fr.Rejected))
		for _, rej := range fr.Rejected {
			rejected[rej.Issue.ID] = rej.Reason
		}

		for _, is := range issues {
			loc := r.styles.location.Sprintf("%d:%d",
				is.Span.Source.Start.Line, is.Span.Source.Start.Column)
			fmt.Fprintf(r.w, "  %s %s [%s] %s\n",
				loc, r.severity(is.Severity), is.Category, is.Message)
			if reason, ok := rejected[is.ID]; ok {
				fmt.Fprintf(r.w, "      not auto-fixed, needs manual attention (%s)\n", reason)
			}
		}
		fmt.Fprintln(r.w)
	}

	s := summarize(reports)
	r.styles.summary.Fprintf(r.w, "%d file(s): %d error(s), %d warning(s), %d info(s), %d fix(es) applied\n",
		s.Files, s.Errors, s.Warnings, s.Infos, s.Applied)
	return nil
}

func (r *Reporter) severity(s types.Severity) string {
	switch s {
	case types.SeverityError:
		return r.styles.err.Sprint("error")
	case types.SeverityWarning:
		return r.styles.warning.Sprint("warning")
	default:
		return r.styles.info.Sprint("info")
	}
}

func summarize(reports []FileReport) Summary {
	s := Summary{Files: len(reports)}
	for _, fr := range reports {
		s.Applied += fr.Applied
		for _, is := range fr.Issues {
			switch is.Severity {
			case types.SeverityError:
				s.Errors++
			case types.SeverityWarning:
				s.Warnings++
			default:
				s.Infos++
			}
		}
	}
	return s
}
