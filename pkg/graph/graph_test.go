package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipefix/pipefix/pkg/pipeline"
)

// jobs builds a minimal pipeline: each pair is (name, needs...).
func jobs(spec map[string][]string, order []string) *pipeline.Pipeline {
	p := &pipeline.Pipeline{}
	for _, name := range order {
		job := &pipeline.Job{Name: name}
		for _, dep := range spec[name] {
			job.Needs = append(job.Needs, pipeline.Need{Name: dep})
		}
		p.Jobs = append(p.Jobs, job)
	}
	return p
}

func TestCyclesSimple(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}, []string{"a", "b", "c"}))

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, cycles[0])
}

func TestCyclesCanonicalRotation(t *testing.T) {
	// Same cycle declared from different starting points must canonicalize
	// to one rotation regardless of declaration order.
	g1 := New(jobs(map[string][]string{
		"b": {"c"}, "c": {"a"}, "a": {"b"},
	}, []string{"b", "c", "a"}))
	g2 := New(jobs(map[string][]string{
		"c": {"a"}, "a": {"b"}, "b": {"c"},
	}, []string{"c", "a", "b"}))

	c1, c2 := g1.Cycles(), g2.Cycles()
	require.Len(t, c1, 1)
	require.Len(t, c2, 1)
	assert.Equal(t, c1[0], c2[0])
}

func TestCyclesMultiple(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"b"},
		"b": {"a", "c"},
		"c": {"b"},
	}, []string{"a", "b", "c"}))

	cycles := g.Cycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b"}, cycles[0])
	assert.Equal(t, []string{"b", "c"}, cycles[1])
}

func TestCyclesNone(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": nil,
	}, []string{"a", "b", "c"}))
	assert.Empty(t, g.Cycles())
}

func TestSelfNeedsNeverAnEdge(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"a"},
	}, []string{"a"}))
	assert.Empty(t, g.Cycles())
	assert.Empty(t, g.RedundantEdges())
}

func TestUnknownNeedsNeverAnEdge(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"ghost"},
	}, []string{"a"}))
	assert.Empty(t, g.Cycles())
	assert.Empty(t, g.RedundantEdges())
}

func TestRedundantEdges(t *testing.T) {
	// a needs b, b needs c, a needs c: (a, c) is implied through b.
	g := New(jobs(map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": nil,
	}, []string{"a", "b", "c"}))

	red := g.RedundantEdges()
	require.Len(t, red, 1)
	assert.Equal(t, Edge{From: "a", To: "c"}, red[0])
}

func TestRedundantEdgesLongerChain(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"b", "d"},
		"b": {"c"},
		"c": {"d"},
		"d": nil,
	}, []string{"a", "b", "c", "d"}))

	red := g.RedundantEdges()
	require.Len(t, red, 1)
	assert.Equal(t, Edge{From: "a", To: "d"}, red[0])
}

func TestRedundantEdgesNone(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": {"b", "c"},
		"b": nil,
		"c": nil,
	}, []string{"a", "b", "c"}))
	assert.Empty(t, g.RedundantEdges())
}

func TestParallelGroupsAllIndependent(t *testing.T) {
	g := New(jobs(map[string][]string{
		"a": nil, "b": nil, "c": nil,
	}, []string{"a", "b", "c"}))

	groups := g.ParallelGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b", "c"}, groups[0])
}

func TestParallelGroupsChainSplits(t *testing.T) {
	// b needs a: they can never run together; c joins whichever group it is
	// unrelated to.
	g := New(jobs(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": nil,
	}, []string{"a", "b", "c"}))

	groups := g.ParallelGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "c"}, groups[0])
}

func TestParallelGroupsSingletonSilent(t *testing.T) {
	// One isolated job is already maximally parallel; no group reported.
	g := New(jobs(map[string][]string{
		"a": nil,
		"b": {"a"},
	}, []string{"a", "b"}))
	assert.Empty(t, g.ParallelGroups())
}

func TestParallelGroupsUseReducedGraph(t *testing.T) {
	// The redundant (a, c) edge must not change reachability: a can still
	// reach c through b, so no new pairing appears after reduction.
	g := New(jobs(map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": nil,
		"d": nil,
	}, []string{"a", "b", "c", "d"}))

	groups := g.ParallelGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "d"}, groups[0])
}
