package analyzer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/pipeline"
	"github.com/pipefix/pipefix/pkg/types"
)

func analyze(t *testing.T, src string) (*document.Document, *pipeline.Pipeline) {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	p, err := pipeline.Build(doc)
	require.NoError(t, err)
	return doc, p
}

type stubAnalyzer struct {
	name   string
	cat    types.Category
	issues []types.Issue
	err    error
	panics bool
}

func (s *stubAnalyzer) Name() string             { return s.name }
func (s *stubAnalyzer) Category() types.Category { return s.cat }

func (s *stubAnalyzer) Scan(*document.Document, *pipeline.Pipeline) ([]types.Issue, error) {
	if s.panics {
		panic("boom")
	}
	return s.issues, s.err
}

func TestRunIsolatesPanic(t *testing.T) {
	doc, p := analyze(t, "jobs:\n  a:\n    steps: []\n")

	good := types.Issue{
		ID:       "good",
		Severity: types.SeverityInfo,
		Category: types.CategoryCaching,
		Span:     types.Span{Offset: types.OffsetSpan{Start: 5, End: 6}},
		Message:  "fine",
	}
	analyzers := []Analyzer{
		&stubAnalyzer{name: "bad", cat: types.CategorySyntax, panics: true},
		&stubAnalyzer{name: "ok", cat: types.CategoryCaching, issues: []types.Issue{good}},
	}

	issues := Run(analyzers, doc, p, nil)
	require.Len(t, issues, 2)

	var internal, kept bool
	for _, is := range issues {
		if is.Category == types.CategoryInternal {
			internal = true
			assert.Contains(t, is.Message, "bad")
			assert.Contains(t, is.Message, "panic")
		}
		if is.ID == "good" {
			kept = true
		}
	}
	assert.True(t, internal, "panicking analyzer must surface an internal issue")
	assert.True(t, kept, "other analyzers' findings must survive")
}

func TestRunIsolatesError(t *testing.T) {
	doc, p := analyze(t, "jobs:\n  a:\n    steps: []\n")
	analyzers := []Analyzer{
		&stubAnalyzer{name: "fails", cat: types.CategorySyntax, err: errors.New("broken pass")},
	}

	issues := Run(analyzers, doc, p, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, types.CategoryInternal, issues[0].Category)
	assert.Contains(t, issues[0].Message, "broken pass")
}

func TestRunCategoryFilter(t *testing.T) {
	doc, p := analyze(t, "jobs:\n  a:\n    steps: []\n")
	issue := types.Issue{ID: "x", Category: types.CategorySyntax, Message: "x"}
	analyzers := []Analyzer{
		&stubAnalyzer{name: "syntax", cat: types.CategorySyntax, issues: []types.Issue{issue}},
		&stubAnalyzer{name: "caching", cat: types.CategoryCaching, issues: []types.Issue{issue}},
	}

	enabled := map[types.Category]bool{types.CategoryCaching: true}
	issues := Run(analyzers, doc, p, enabled)
	require.Len(t, issues, 1)
}

func TestRunSortedBySpanThenCategory(t *testing.T) {
	doc, p := analyze(t, "jobs:\n  a:\n    steps: []\n")

	at := func(start int64, cat types.Category, id string) types.Issue {
		return types.Issue{
			ID:       id,
			Category: cat,
			Span:     types.Span{Offset: types.OffsetSpan{Start: start, End: start + 1}},
		}
	}
	analyzers := []Analyzer{
		&stubAnalyzer{name: "a", cat: types.CategoryOrdering, issues: []types.Issue{
			at(10, types.CategoryOrdering, "ord-10"),
			at(5, types.CategoryOrdering, "ord-5"),
		}},
		&stubAnalyzer{name: "b", cat: types.CategorySyntax, issues: []types.Issue{
			at(10, types.CategorySyntax, "syn-10"),
		}},
	}

	issues := Run(analyzers, doc, p, nil)
	require.Len(t, issues, 3)
	assert.Equal(t, "ord-5", issues[0].ID)
	assert.Equal(t, "syn-10", issues[1].ID, "syntax outranks ordering at the same offset")
	assert.Equal(t, "ord-10", issues[2].ID)
}

// Exercises the shared command matcher from many goroutines at once; run
// with -race. Both the registry fan-out and direct classification calls hit
// the one process-wide Aho-Corasick index.
func TestRunConcurrentCommandClassification(t *testing.T) {
	doc, p := analyze(t, `jobs:
  build:
    steps:
      - run: npm ci
      - run: pip install -r requirements.txt
      - run: npm run build
      - run: go test ./...
`)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				for _, is := range Run(Registry(), doc, p, nil) {
					assert.NotEqual(t, types.CategoryInternal, is.Category, is.Message)
				}
				assert.Equal(t, PhaseInstall, commands().Phase("npm ci"))
				assert.Len(t, commands().Managers("pip install -r requirements.txt"), 1)
			}
		}()
	}
	wg.Wait()
}

func TestRegistryCoversAllCategories(t *testing.T) {
	cats := make(map[types.Category]bool)
	for _, a := range Registry() {
		cats[a.Category()] = true
	}
	assert.True(t, cats[types.CategorySyntax])
	assert.True(t, cats[types.CategoryCaching])
	assert.True(t, cats[types.CategoryOrdering])
	assert.True(t, cats[types.CategoryParallelization])
}
