package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipefix/pipefix/pkg/types"
)

func TestOrderingCheckoutNotFirst(t *testing.T) {
	doc, p := analyze(t, `jobs:
  build:
    steps:
      - run: npm ci
      - uses: actions/checkout@v4
      - run: npm run build
`)
	issues, err := (Ordering{}).Scan(doc, p)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	is := issues[0]
	assert.Equal(t, types.SeverityWarning, is.Severity)
	assert.Contains(t, is.Message, "checkout")
	require.NotNil(t, is.Edit)
	require.Equal(t, types.EditMove, is.Edit.Kind)

	assert.Equal(t, "      - uses: actions/checkout@v4\n", doc.Slice(is.Edit.Span))
	// Destination is the start of the first step's line.
	firstStep := doc.LineExtent(p.Job("build").Steps[0].Span)
	assert.Equal(t, firstStep.Offset.Start, is.Edit.ToOffset)
}

func TestOrderingInstallAfterConsumer(t *testing.T) {
	doc, p := analyze(t, `jobs:
  test:
    steps:
      - uses: actions/checkout@v4
      - run: make test
      - run: npm ci
`)
	issues, err := (Ordering{}).Scan(doc, p)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	is := issues[0]
	assert.Contains(t, is.Message, "install")
	require.NotNil(t, is.Edit)
	require.Equal(t, types.EditMove, is.Edit.Kind)
	assert.Equal(t, "      - run: npm ci\n", doc.Slice(is.Edit.Span))

	consumer := doc.LineExtent(p.Job("test").Steps[1].Span)
	assert.Equal(t, consumer.Offset.Start, is.Edit.ToOffset)
}

func TestOrderingCacheAfterWork(t *testing.T) {
	doc, p := analyze(t, `jobs:
  build:
    steps:
      - uses: actions/checkout@v4
      - run: go build ./...
      - uses: actions/cache@v4
        with:
          path: ~/go/pkg/mod
          key: go-v1-abc
          restore-keys: |
            go-v1-
`)
	issues, err := (Ordering{}).Scan(doc, p)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	is := issues[0]
	assert.Equal(t, types.SeverityInfo, is.Severity)
	assert.Contains(t, is.Message, "cache")
	assert.Nil(t, is.Edit, "cache position is reported, never moved")
}

func TestOrderingCleanJob(t *testing.T) {
	doc, p := analyze(t, `jobs:
  build:
    steps:
      - uses: actions/checkout@v4
      - uses: actions/cache@v4
        with:
          path: ~/.npm
          key: deps-v1-abc
          restore-keys: |
            deps-v1-
      - run: npm ci
      - run: npm run build
      - run: npm test
`)
	issues, err := (Ordering{}).Scan(doc, p)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestOrderingCompoundStepNotMoved(t *testing.T) {
	// A step that installs and also tests schedules as a test step; moving
	// it ahead of the build would break it.
	doc, p := analyze(t, `jobs:
  ci:
    steps:
      - uses: actions/checkout@v4
      - run: make build
      - run: npm ci && npm test
`)
	issues, err := (Ordering{}).Scan(doc, p)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestStepPhase(t *testing.T) {
	doc, p := analyze(t, `jobs:
  j:
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-node@v4
      - run: npm ci
      - run: npm run build
      - run: npm test
      - run: echo done
`)
	_ = doc
	steps := p.Job("j").Steps
	want := []StepPhase{PhaseCheckout, PhaseSetup, PhaseInstall, PhaseBuild, PhaseTest, PhaseOther}
	for i, w := range want {
		assert.Equal(t, w, stepPhase(steps[i]), "step %d", i)
	}
}
