package idgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ComputeConnectedComponents partitions the graph into connected
// components, O(V+E). Components are sorted by their smallest node index
// and each component's node list is sorted ascending, so the result is
// deterministic for identical input.
func (g *Graph) ComputeConnectedComponents() [][]int {
	ug := simple.NewUndirectedGraph()
	for i := range g.nodes {
		ug.AddNode(simple.Node(i))
	}
	for u, nbs := range g.adj {
		for _, v := range nbs {
			if u < v {
				ug.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
			}
		}
	}

	raw := topo.ConnectedComponents(ug)
	comps := make([][]int, 0, len(raw))
	for _, cc := range raw {
		comp := make([]int, 0, len(cc))
		for _, n := range cc {
			comp = append(comp, int(n.ID()))
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	g.comps = comps
	g.compOf = make([]int, len(g.nodes))
	for ci, comp := range comps {
		for _, n := range comp {
			g.compOf[n] = ci
		}
	}
	return comps
}

// Components returns the connected components computed by
// ComputeConnectedComponents, including nodes added by clustering.
func (g *Graph) Components() [][]int { return g.comps }

// addToComponent registers a node created after partitioning (a group or
// run node) with the component of its members.
func (g *Graph) addToComponent(node, member int) {
	if g.compOf == nil {
		return
	}
	ci := g.compOf[member]
	g.compOf[node] = ci
	g.comps[ci] = append(g.comps[ci], node)
}

// SingleKind reports whether all nodes of a component are of one variant.
// Such a component carries no cross-type evidence and is skipped by
// inference.
func (g *Graph) SingleKind(comp []int) bool {
	if len(comp) == 0 {
		return true
	}
	k := g.nodes[comp[0]].Kind
	for _, n := range comp[1:] {
		if g.nodes[n].Kind != k {
			return false
		}
	}
	return true
}
