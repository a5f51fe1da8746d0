// Package graph derives a job dependency graph from the pipeline model and
// answers the structural questions the analyzers ask of it: cycles, redundant
// edges, and safely parallelizable groups. The graph is recomputed from the
// model every time, never stored alongside it.
package graph

import (
	"sort"

	"github.com/pipefix/pipefix/pkg/pipeline"
)

// Edge is one declared dependency: From needs To.
type Edge struct {
	From string
	To   string
}

// Graph holds jobs as arena indices in declaration order. Edges follow the
// needs direction (i -> j means job i needs job j). Self-needs and needs
// naming unknown jobs never become edges; reporting those is the dependency
// analyzer's job.
type Graph struct {
	names []string
	index map[string]int
	adj   [][]int
}

// New builds the graph from the pipeline's declared dependencies.
func New(p *pipeline.Pipeline) *Graph {
	g := &Graph{
		names: make([]string, 0, len(p.Jobs)),
		index: make(map[string]int, len(p.Jobs)),
	}
	for _, job := range p.Jobs {
		g.index[job.Name] = len(g.names)
		g.names = append(g.names, job.Name)
	}

	g.adj = make([][]int, len(g.names))
	for i, job := range p.Jobs {
		seen := make(map[int]bool)
		for _, need := range job.Needs {
			j, ok := g.index[need.Name]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			g.adj[i] = append(g.adj[i], j)
		}
	}
	return g
}

// Len returns the number of jobs.
func (g *Graph) Len() int { return len(g.names) }

// Cycles enumerates every distinct elementary cycle, each canonicalized to
// its lexicographically-smallest rotation. Output order is deterministic.
func (g *Graph) Cycles() [][]string {
	var cycles [][]string
	seen := make(map[string]bool)

	for _, scc := range g.sccs() {
		if len(scc) < 2 {
			continue
		}
		inSCC := make(map[int]bool, len(scc))
		for _, v := range scc {
			inSCC[v] = true
		}

		// Every elementary cycle is enumerated exactly once: from its
		// minimal-index node, never revisiting smaller indices.
		var path []int
		onPath := make(map[int]bool)
		var dfs func(v, start int)
		dfs = func(v, start int) {
			path = append(path, v)
			onPath[v] = true
			for _, w := range g.adj[v] {
				if !inSCC[w] || w < start {
					continue
				}
				if w == start {
					names := make([]string, len(path))
					for k, idx := range path {
						names[k] = g.names[idx]
					}
					canon := canonicalRotation(names)
					key := joinKey(canon)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, canon)
					}
					continue
				}
				if !onPath[w] {
					dfs(w, start)
				}
			}
			path = path[:len(path)-1]
			onPath[v] = false
		}
		for _, start := range scc {
			dfs(start, start)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return joinKey(cycles[i]) < joinKey(cycles[j])
	})
	return cycles
}

// RedundantEdges finds declared edges already implied transitively: (a, b) is
// redundant when b is reachable from another direct dependency of a. Result
// order follows job declaration order, then needs order.
func (g *Graph) RedundantEdges() []Edge {
	reach := g.reachability(g.adj)

	var redundant []Edge
	for a, deps := range g.adj {
		for _, b := range deps {
			for _, c := range deps {
				if c != b && reach[c][b] {
					redundant = append(redundant, Edge{From: g.names[a], To: g.names[b]})
					break
				}
			}
		}
	}
	return redundant
}

// ParallelGroups partitions jobs into maximal independent groups: within a
// group, no member can reach any other through the redundancy-reduced graph.
// Groups are built by greedy coloring over declaration order; singleton
// groups are dropped (a lone unrelated job is already maximally parallel and
// reporting it is noise). Meaningless on a cyclic graph; callers gate on
// Cycles first.
func (g *Graph) ParallelGroups() [][]string {
	reduced := g.reduced()
	reach := g.reachability(reduced)

	related := func(i, j int) bool {
		return reach[i][j] || reach[j][i]
	}

	var groups [][]int
	for i := range g.names {
		placed := false
		for gi, members := range groups {
			ok := true
			for _, m := range members {
				if related(i, m) {
					ok = false
					break
				}
			}
			if ok {
				groups[gi] = append(groups[gi], i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}

	var out [][]string
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		names := make([]string, len(members))
		for k, m := range members {
			names[k] = g.names[m]
		}
		out = append(out, names)
	}
	return out
}

// reduced returns the adjacency lists with redundant edges removed.
func (g *Graph) reduced() [][]int {
	reach := g.reachability(g.adj)

	reduced := make([][]int, len(g.adj))
	for a, deps := range g.adj {
		for _, b := range deps {
			redundant := false
			for _, c := range deps {
				if c != b && reach[c][b] {
					redundant = true
					break
				}
			}
			if !redundant {
				reduced[a] = append(reduced[a], b)
			}
		}
	}
	return reduced
}

// reachability computes the transitive closure of adj: reach[i][j] reports a
// path of length >= 1 from i to j.
func (g *Graph) reachability(adj [][]int) [][]bool {
	n := len(g.names)
	reach := make([][]bool, n)
	for i := range reach {
		reach[i] = make([]bool, n)
		stack := append([]int(nil), adj[i]...)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reach[i][v] {
				continue
			}
			reach[i][v] = true
			stack = append(stack, adj[v]...)
		}
	}
	return reach
}

// sccs runs Tarjan's algorithm, returning strongly connected components.
func (g *Graph) sccs() [][]int {
	n := len(g.names)
	const unvisited = -1

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	var (
		counter int
		stack   []int
		out     [][]int
	)
	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.adj[v] {
			if index[w] == unvisited {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Ints(scc)
			out = append(out, scc)
		}
	}
	for v := 0; v < n; v++ {
		if index[v] == unvisited {
			strongconnect(v)
		}
	}
	return out
}

// canonicalRotation rotates names so the sequence is lexicographically
// smallest among all rotations.
func canonicalRotation(names []string) []string {
	best := 0
	for i := 1; i < len(names); i++ {
		if lessRotation(names, i, best) {
			best = i
		}
	}
	out := make([]string, len(names))
	for k := range names {
		out[k] = names[(best+k)%len(names)]
	}
	return out
}

func lessRotation(names []string, i, j int) bool {
	n := len(names)
	for k := 0; k < n; k++ {
		a, b := names[(i+k)%n], names[(j+k)%n]
		if a != b {
			return a < b
		}
	}
	return false
}

func joinKey(names []string) string {
	key := ""
	for _, n := range names {
		key += n + "\x00"
	}
	return key
}
