package bp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeGraph is a small tree-structured inference model: one protein
// (var 0) with two peptides (1, 2), each backed by one PSM (3, 4).
func treeGraph() *Graph {
	g := NewGraph()
	g.AddFactor(&PriorFactor{Var: 0, Gamma: 0.9})
	g.AddFactor(NewAdderFactor([]int{0}, 1))
	g.AddFactor(NewAdderFactor([]int{0}, 2))
	g.AddFactor(NewSumEvidenceFactor(1, 3, 1, 0.1, 0.001))
	g.AddFactor(&EvidenceFactor{Var: 3, Score: 0.95})
	g.AddFactor(NewSumEvidenceFactor(2, 4, 1, 0.1, 0.001))
	g.AddFactor(&EvidenceFactor{Var: 4, Score: 0.3})
	return g
}

// loopyGraph has a cycle: two proteins (0, 1) that share both of their
// peptides (2, 3).
func loopyGraph() *Graph {
	g := NewGraph()
	g.AddFactor(&PriorFactor{Var: 0, Gamma: 0.5})
	g.AddFactor(&PriorFactor{Var: 1, Gamma: 0.5})
	g.AddFactor(NewAdderFactor([]int{0, 1}, 2))
	g.AddFactor(NewAdderFactor([]int{0, 1}, 3))
	g.AddFactor(NewSumEvidenceFactor(2, 4, 1, 0.3, 0.001))
	g.AddFactor(&EvidenceFactor{Var: 4, Score: 0.9})
	g.AddFactor(NewSumEvidenceFactor(3, 5, 1, 0.3, 0.001))
	g.AddFactor(&EvidenceFactor{Var: 5, Score: 0.8})
	return g
}

func tightOptions(s SchedulerType) Options {
	return Options{
		Lambda:               0,
		ConvergenceThreshold: 1e-10,
		MaxIterations:        1 << 20,
		Scheduler:            s,
		Seed:                 1,
	}
}

func posteriorMap(posts []Posterior) map[int]float64 {
	m := make(map[int]float64, len(posts))
	for _, p := range posts {
		m[p.Var] = p.PMF.Prob(1)
	}
	return m
}

// On a tree, belief propagation is exact for every scheduler.
func TestEngineExactOnTree(t *testing.T) {
	for _, sched := range []SchedulerType{
		SchedulePriority, ScheduleFIFO, ScheduleRandomSpanningTree,
	} {
		t.Run(string(sched), func(t *testing.T) {
			g := treeGraph()
			want := exactMarginals(g)

			eng := NewEngine(g, tightOptions(sched))
			res, err := eng.Run()
			require.NoError(t, err)
			assert.True(t, res.Converged)

			got := posteriorMap(eng.EstimatePosteriors(g.Variables()))
			for _, v := range g.Variables() {
				assert.InDelta(t, want[v], got[v], 1e-6, "variable %d", v)
			}
		})
	}
}

// All schedulers find the same fixed point on a loopy graph.
func TestEngineSchedulersAgree(t *testing.T) {
	ref := map[int]float64{}
	for i, sched := range []SchedulerType{
		SchedulePriority, ScheduleFIFO, ScheduleRandomSpanningTree,
	} {
		g := loopyGraph()
		eng := NewEngine(g, tightOptions(sched))
		res, err := eng.Run()
		require.NoError(t, err)
		require.True(t, res.Converged, "scheduler %s", sched)

		got := posteriorMap(eng.EstimatePosteriors(g.Variables()))
		if i == 0 {
			ref = got
			continue
		}
		for v, p := range ref {
			assert.InDelta(t, p, got[v], 1e-5, "scheduler %s, variable %d", sched, v)
		}
	}
}

// Two runs with identical options produce bitwise identical posteriors.
func TestEngineDeterministic(t *testing.T) {
	for _, sched := range []SchedulerType{
		SchedulePriority, ScheduleFIFO, ScheduleRandomSpanningTree,
	} {
		opts := tightOptions(sched)
		opts.Lambda = 1e-3

		run := func() map[int]float64 {
			g := loopyGraph()
			eng := NewEngine(g, opts)
			_, err := eng.Run()
			require.NoError(t, err)
			return posteriorMap(eng.EstimatePosteriors(g.Variables()))
		}
		first := run()
		second := run()
		assert.Equal(t, first, second, "scheduler %s", sched)
	}
}

// Hitting the iteration cap is a soft stop with a partial result.
func TestEngineIterationCap(t *testing.T) {
	g := loopyGraph()
	opts := tightOptions(SchedulePriority)
	opts.MaxIterations = 3
	eng := NewEngine(g, opts)
	res, err := eng.Run()
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Iterations)

	// posteriors are still well-formed
	for _, p := range eng.EstimatePosteriors(g.Variables()) {
		sum := p.PMF.Prob(0) + p.PMF.Prob(1)
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestEngineBadScheduler(t *testing.T) {
	g := treeGraph()
	eng := NewEngine(g, Options{Scheduler: "bogus"})
	_, err := eng.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadScheduler))
}

// Dampening slows updates down but not the fixed point.
func TestEngineDampening(t *testing.T) {
	undamped := tightOptions(SchedulePriority)
	damped := undamped
	damped.Lambda = 0.5

	g1 := loopyGraph()
	e1 := NewEngine(g1, undamped)
	_, err := e1.Run()
	require.NoError(t, err)

	g2 := loopyGraph()
	e2 := NewEngine(g2, damped)
	_, err = e2.Run()
	require.NoError(t, err)

	p1 := posteriorMap(e1.EstimatePosteriors(g1.Variables()))
	p2 := posteriorMap(e2.EstimatePosteriors(g2.Variables()))
	for v, p := range p1 {
		assert.InDelta(t, p, p2[v], 1e-5, "variable %d", v)
	}
}

func TestEstimatePosteriorsUnknownVar(t *testing.T) {
	g := treeGraph()
	eng := NewEngine(g, tightOptions(SchedulePriority))
	_, err := eng.Run()
	require.NoError(t, err)
	posts := eng.EstimatePosteriors([]int{0, 999})
	require.Len(t, posts, 1)
	assert.Equal(t, 0, posts[0].Var)
}
