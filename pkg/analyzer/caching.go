package analyzer

import (
	"fmt"
	"strings"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

// Caching checks cache steps for a restore-fallback key list, for key
// hygiene (static keys, keys not varying by OS), and for cache paths that
// match the package managers the job actually uses; jobs that install
// dependencies without any cache step are reported too. Missing restore keys
// get a derived fallback edit; everything else is reported only (guessing a
// path or synthesizing a step risks caching the wrong thing).
type Caching struct{}

func (Caching) Name() string             { return "caching" }
func (Caching) Category() types.Category { return types.CategoryCaching }

func (Caching) Scan(doc *document.Document, p *pipeline.Pipeline) ([]types.Issue, error) {
	var issues []types.Issue
	for _, job := range p.Jobs {
		managers := jobManagers(job)
		hasCache := false
		for _, step := range job.Steps {
			if step.Kind != pipeline.StepCache {
				continue
			}
			hasCache = true
			issues = append(issues, checkCacheStep(doc, job, step, managers)...)
		}
		if !hasCache && len(managers) > 0 {
			issues = append(issues, *uncachedJob(job, managers))
		}
	}
	return issues, nil
}

// jobManagers collects the package managers invoked by the job's run steps.
func jobManagers(job *pipeline.Job) []*PackageManager {
	seen := make(map[string]bool)
	var out []*PackageManager
	for _, step := range job.Steps {
		cmd := step.Run()
		if cmd == "" {
			continue
		}
		for _, pm := range commands().Managers(cmd) {
			if !seen[pm.Name] {
				seen[pm.Name] = true
				out = append(out, pm)
			}
		}
	}
	return out
}

func checkCacheStep(doc *document.Document, job *pipeline.Job, step *pipeline.Step, managers []*PackageManager) []types.Issue {
	with := step.Field("with")
	if with == nil || with.Kind != document.KindMapping {
		return nil
	}

	var issues []types.Issue
	keyEntry := with.Entry("key")
	if keyEntry != nil && keyEntry.Value.Kind == document.KindScalar {
		if with.Get("restore-keys") == nil {
			if issue := missingRestoreKeys(doc, keyEntry); issue != nil {
				issues = append(issues, *issue)
			}
		}
		if issue := keyQuality(keyEntry); issue != nil {
			issues = append(issues, *issue)
		}
	}
	if pathNode := with.Get("path"); pathNode != nil && len(managers) > 0 {
		if issue := pathConvention(job, pathNode, managers); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

// missingRestoreKeys derives a fallback list by progressively stripping the
// primary key's most specific segment, then proposes inserting it after the
// key entry. Keys with nothing to strip are left alone.
func missingRestoreKeys(doc *document.Document, keyEntry *document.MapEntry) *types.Issue {
	fallbacks := deriveRestoreKeys(keyEntry.Value.Value)
	if len(fallbacks) == 0 {
		return nil
	}

	entrySpan := types.Span{
		Offset: types.OffsetSpan{
			Start: keyEntry.Key.Span.Offset.Start,
			End:   keyEntry.Value.Span.Offset.End,
		},
	}
	ext := doc.LineExtent(entrySpan)
	orig := doc.Slice(ext)
	if !strings.HasSuffix(orig, "\n") {
		orig += "\n"
	}

	indent := indentOf(doc, keyEntry.Key.Span.Offset.Start)
	var b strings.Builder
	b.WriteString(orig)
	b.WriteString(indent + "restore-keys: |\n")
	for _, fb := range fallbacks {
		b.WriteString(indent + "  " + fb + "\n")
	}

	return &types.Issue{
		ID:       types.ComputeIssueID(types.CategoryCaching, "missing-restore-keys", keyEntry.Value.Span),
		Severity: types.SeverityWarning,
		Category: types.CategoryCaching,
		Span:     keyEntry.Value.Span,
		Message:  fmt.Sprintf("cache key %q has no restore-keys fallback", keyEntry.Value.Value),
		Edit:     types.Replace(ext, b.String()),
	}
}

// deriveRestoreKeys strips '-'-separated segments from the right, most
// specific first: "deps-v1-abc" yields ["deps-v1-", "deps-"].
func deriveRestoreKeys(key string) []string {
	segs := strings.Split(key, "-")
	var out []string
	for i := len(segs) - 1; i >= 1; i-- {
		out = append(out, strings.Join(segs[:i], "-")+"-")
	}
	return out
}

// keyQuality flags keys that defeat cache invalidation: a fully static key
// never changes when dependencies do, and a key without runner.os shares
// archives across incompatible operating systems.
func keyQuality(keyEntry *document.MapEntry) *types.Issue {
	key := keyEntry.Value.Value
	issue := types.Issue{
		Severity: types.SeverityInfo,
		Category: types.CategoryCaching,
		Span:     keyEntry.Value.Span,
	}
	switch {
	case !strings.Contains(key, "${{"):
		issue.ID = types.ComputeIssueID(types.CategoryCaching, "static-cache-key", keyEntry.Value.Span)
		issue.Message = fmt.Sprintf("cache key %q is static and never invalidates; include a dependency hash such as ${{ hashFiles('**/lockfile') }}", key)
	case !strings.Contains(key, "runner.os"):
		issue.ID = types.ComputeIssueID(types.CategoryCaching, "cache-key-no-os", keyEntry.Value.Span)
		issue.Message = fmt.Sprintf("cache key %q does not include ${{ runner.os }}; caches are shared across operating systems", key)
	default:
		return nil
	}
	return &issue
}

// uncachedJob reports a job that installs dependencies every run with no
// cache step to reuse them. Report-only: synthesizing a whole step is a
// bigger decision than an autofix should make.
func uncachedJob(job *pipeline.Job, managers []*PackageManager) *types.Issue {
	var names, examples []string
	for _, pm := range managers {
		names = append(names, pm.Name)
		examples = append(examples, pm.CachePaths[0])
	}
	return &types.Issue{
		ID:       types.ComputeIssueID(types.CategoryCaching, "missing-cache-step", job.NameSpan),
		Severity: types.SeverityInfo,
		Category: types.CategoryCaching,
		Span:     job.NameSpan,
		Message: fmt.Sprintf("job %q uses %s but has no cache step (consider caching %s)",
			job.Name, strings.Join(names, ", "), strings.Join(examples, ", ")),
	}
}

func pathConvention(job *pipeline.Job, pathNode *document.Node, managers []*PackageManager) *types.Issue {
	var paths []string
	switch pathNode.Kind {
	case document.KindScalar:
		paths = strings.Fields(pathNode.Value)
	case document.KindSequence:
		for _, item := range pathNode.Items {
			if item.Kind == document.KindScalar {
				paths = append(paths, item.Value)
			}
		}
	}
	if len(paths) == 0 {
		return nil
	}

	for _, pm := range managers {
		for _, conv := range pm.CachePaths {
			for _, p := range paths {
				if strings.Contains(p, conv) {
					return nil
				}
			}
		}
	}

	var names, examples []string
	for _, pm := range managers {
		names = append(names, pm.Name)
		examples = append(examples, pm.CachePaths[0])
	}
	return &types.Issue{
		ID:       types.ComputeIssueID(types.CategoryCaching, "cache-path-convention", pathNode.Span),
		Severity: types.SeverityInfo,
		Category: types.CategoryCaching,
		Span:     pathNode.Span,
		Message: fmt.Sprintf("job %q uses %s but cache path %q matches no %s convention (e.g. %s)",
			job.Name, strings.Join(names, ", "), strings.Join(paths, " "),
			strings.Join(names, "/"), strings.Join(examples, ", ")),
	}
}

// indentOf returns the leading whitespace of the line containing off.
func indentOf(doc *document.Document, off int64) string {
	ls := doc.Lines.LineStart(off)
	end := ls
	for end < int64(len(doc.Text)) && (doc.Text[end] == ' ' || doc.Text[end] == '\t') {
		end++
	}
	return string(doc.Text[ls:end])
}
