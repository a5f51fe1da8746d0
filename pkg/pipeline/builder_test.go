package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipefix/pipefix/pkg/document"
	"github.com/pipefix/pipefix/pkg/types"
)

func mustParse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestBuildBasic(t *testing.T) {
	doc := mustParse(t, `name: ci
jobs:
  build:
    steps:
      - name: checkout
        uses: actions/checkout@v4
      - run: make build
  test:
    needs: build
    steps:
      - uses: actions/cache@v4
        with:
          path: ~/.cache
          key: deps-v1
      - run: make test
`)
	p, err := Build(doc)
	require.NoError(t, err)

	assert.Equal(t, "ci", p.Name)
	require.Len(t, p.Jobs, 2)
	assert.Equal(t, "build", p.Jobs[0].Name)
	assert.Equal(t, "test", p.Jobs[1].Name)
	assert.Same(t, p.Jobs[1], p.Job("test"))

	build := p.Job("build")
	require.Len(t, build.Steps, 2)
	assert.Equal(t, StepUses, build.Steps[0].Kind)
	assert.Equal(t, StepRun, build.Steps[1].Kind)
	assert.Equal(t, "make build", build.Steps[1].Run())
	assert.Equal(t, 1, build.Steps[1].Index)

	test := p.Job("test")
	require.Len(t, test.Needs, 1)
	assert.Equal(t, "build", test.Needs[0].Name)
	assert.Equal(t, "build", doc.Slice(test.Needs[0].Span))
	assert.Equal(t, StepCache, test.Steps[0].Kind)
}

func TestBuildNeedsList(t *testing.T) {
	doc := mustParse(t, `jobs:
  a:
    steps: []
  b:
    steps: []
  c:
    needs: [a, b]
    steps: []
`)
	p, err := Build(doc)
	require.NoError(t, err)

	c := p.Job("c")
	require.Len(t, c.Needs, 2)
	assert.Equal(t, "a", c.Needs[0].Name)
	assert.Equal(t, "b", c.Needs[1].Name)
	assert.Equal(t, "a", doc.Slice(c.Needs[0].Span))
	assert.Equal(t, "b", doc.Slice(c.Needs[1].Span))

	entry := c.NeedsEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "[a, b]", doc.Slice(entry.Value.Span))
}

func TestBuildPreservesUnknownFields(t *testing.T) {
	doc := mustParse(t, `jobs:
  build:
    runs-on: ubuntu-latest
    timeout-minutes: 30
    steps:
      - run: make
        shell: bash
        custom-field: kept
`)
	p, err := Build(doc)
	require.NoError(t, err)

	build := p.Job("build")
	require.NotNil(t, build.Fields["runs-on"])
	assert.Equal(t, "ubuntu-latest", build.Fields["runs-on"].Value)
	require.NotNil(t, build.Fields["timeout-minutes"])

	step := build.Steps[0]
	require.NotNil(t, step.Field("custom-field"))
	assert.Equal(t, "kept", step.Field("custom-field").Value)
	assert.Equal(t, "kept", doc.Slice(step.Field("custom-field").Span))
}

func TestBuildSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			name:     "no jobs field",
			src:      "name: ci\n",
			expected: `"jobs" mapping`,
		},
		{
			name:     "jobs not a mapping",
			src:      "jobs: [a, b]\n",
			expected: `"jobs" mapping`,
		},
		{
			name:     "job body not a mapping",
			src:      "jobs:\n  build: just-a-string\n",
			expected: "job mapping for build",
		},
		{
			name:     "needs wrong shape",
			src:      "jobs:\n  build:\n    needs:\n      lint: true\n    steps: []\n",
			expected: "job name or list of job names",
		},
		{
			name:     "needs list of mappings",
			src:      "jobs:\n  build:\n    needs:\n      - lint: true\n    steps: []\n",
			expected: "job name",
		},
		{
			name:     "steps not a list",
			src:      "jobs:\n  build:\n    steps: make\n",
			expected: "list of steps",
		},
		{
			name:     "step not a mapping",
			src:      "jobs:\n  build:\n    steps:\n      - just-a-string\n",
			expected: "step mapping",
		},
		{
			name:     "root not a mapping",
			src:      "- a\n- b\n",
			expected: "pipeline mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.src)
			_, err := Build(doc)
			require.Error(t, err)

			var serr *types.SchemaError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.expected, serr.Expected)
		})
	}
}

func TestBuildDeclarationOrder(t *testing.T) {
	doc := mustParse(t, `jobs:
  zeta:
    steps: []
  alpha:
    steps: []
  mid:
    steps: []
`)
	p, err := Build(doc)
	require.NoError(t, err)

	var names []string
	for _, j := range p.Jobs {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestClassifyStep(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want StepKind
	}{
		{"run command", "jobs:\n  j:\n    steps:\n      - run: make\n", StepRun},
		{"uses action", "jobs:\n  j:\n    steps:\n      - uses: actions/checkout@v4\n", StepUses},
		{"cache action", "jobs:\n  j:\n    steps:\n      - uses: actions/cache@v4\n", StepCache},
		{"cache fork", "jobs:\n  j:\n    steps:\n      - uses: corca-ai/local-cache@v3\n", StepCache},
		{"neither", "jobs:\n  j:\n    steps:\n      - name: noop\n", StepUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Build(mustParse(t, tt.src))
			require.NoError(t, err)
			require.Len(t, p.Job("j").Steps, 1)
			assert.Equal(t, tt.want, p.Job("j").Steps[0].Kind)
		})
	}
}
