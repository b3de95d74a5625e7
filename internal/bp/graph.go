package bp

import "sort"

// Graph is a factor graph: variables connected to the factors that
// mention them. Variables are external integer ids (the evidence-graph
// node indices); each (factor, tuple position) pair is one undirected
// edge carrying two directed messages.
type Graph struct {
	factors []Factor

	vars   []int
	varIdx map[int]int

	edges    []edge
	varEdges [][]int // edge indices per variable (internal index)
	facEdges [][]int // edge indices per factor, ordered by tuple position
}

type edge struct {
	fac int // factor index
	pos int // position in the factor's variable tuple
	v   int // internal variable index
}

// NewGraph creates an empty factor graph.
func NewGraph() *Graph {
	return &Graph{varIdx: make(map[int]int)}
}

// AddFactor inserts a factor and registers its variables.
func (g *Graph) AddFactor(f Factor) {
	fi := len(g.factors)
	g.factors = append(g.factors, f)
	g.facEdges = append(g.facEdges, nil)
	for pos, v := range f.Vars() {
		vi, ok := g.varIdx[v]
		if !ok {
			vi = len(g.vars)
			g.varIdx[v] = vi
			g.vars = append(g.vars, v)
			g.varEdges = append(g.varEdges, nil)
		}
		ei := len(g.edges)
		g.edges = append(g.edges, edge{fac: fi, pos: pos, v: vi})
		g.varEdges[vi] = append(g.varEdges[vi], ei)
		g.facEdges[fi] = append(g.facEdges[fi], ei)
	}
}

// NumFactors returns the number of factors.
func (g *Graph) NumFactors() int { return len(g.factors) }

// NumVars returns the number of distinct variables.
func (g *Graph) NumVars() int { return len(g.vars) }

// NumEdges returns the number of variable-factor edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Variables returns the external variable ids, sorted.
func (g *Graph) Variables() []int {
	vs := make([]int, len(g.vars))
	copy(vs, g.vars)
	sort.Ints(vs)
	return vs
}
