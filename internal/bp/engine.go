package bp

import (
	"errors"
	"fmt"
)

// SchedulerType selects how the next message update is picked.
type SchedulerType string

const (
	// SchedulePriority picks the message whose candidate value differs
	// most from its last sent value (residual belief propagation).
	SchedulePriority SchedulerType = "priority"
	// ScheduleFIFO sweeps all messages in a fixed order.
	ScheduleFIFO SchedulerType = "fifo"
	// ScheduleRandomSpanningTree orders each sweep along a random
	// spanning tree of the factor graph.
	ScheduleRandomSpanningTree SchedulerType = "random_spanning_tree"
)

// Options control one belief propagation run.
type Options struct {
	// Lambda is the dampening factor in [0,1): an update is the convex
	// combination (1-lambda)*computed + lambda*old.
	Lambda float64
	// ConvergenceThreshold is the L1 residual under which a message
	// counts as converged.
	ConvergenceThreshold float64
	// MaxIterations caps the number of message updates; hitting the cap
	// is a soft stop, partially converged results are still returned.
	MaxIterations int
	Scheduler     SchedulerType
	// Seed drives the random spanning tree scheduler. Runs with the
	// same seed are deterministic.
	Seed int64
}

var ErrBadScheduler = errors.New("bp: unknown scheduling type")

// Result reports how a run terminated. Iterations==MaxIterations with
// Converged==false signals the non-convergence warning case.
type Result struct {
	Iterations int
	Converged  bool
}

// Posterior is the estimated marginal of one variable.
type Posterior struct {
	Var int
	PMF PMF
}

// Engine runs loopy sum-product message passing over one factor graph.
// Message updates within one engine are strictly sequential; concurrency
// across components is the caller's business.
type Engine struct {
	g    *Graph
	opts Options

	// two directed messages per edge, all kept normalized
	varToFac []PMF
	facToVar []PMF
}

// NewEngine creates an engine with all messages initialized to
// uninformative uniform PMFs.
func NewEngine(g *Graph, opts Options) *Engine {
	e := &Engine{
		g:        g,
		opts:     opts,
		varToFac: make([]PMF, len(g.edges)),
		facToVar: make([]PMF, len(g.edges)),
	}
	for i := range g.edges {
		e.varToFac[i] = Uniform(0, 2)
		e.facToVar[i] = Uniform(0, 2)
	}
	return e
}

// Run drives message passing to convergence or the iteration cap.
func (e *Engine) Run() (Result, error) {
	switch e.opts.Scheduler {
	case SchedulePriority, "":
		return e.runPriority(), nil
	case ScheduleFIFO:
		return e.runFIFO(), nil
	case ScheduleRandomSpanningTree:
		return e.runSpanningTree(), nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrBadScheduler, e.opts.Scheduler)
}

// Message ids: two directed messages per edge. Even ids are
// variable-to-factor, odd ids factor-to-variable.
func (e *Engine) numMessages() int { return 2 * len(e.g.edges) }

func msgID(edge int, toVar bool) int {
	id := 2 * edge
	if toVar {
		id++
	}
	return id
}

func (e *Engine) current(m int) PMF {
	if m%2 == 0 {
		return e.varToFac[m/2]
	}
	return e.facToVar[m/2]
}

func (e *Engine) store(m int, p PMF) {
	if m%2 == 0 {
		e.varToFac[m/2] = p
	} else {
		e.facToVar[m/2] = p
	}
}

// compute returns the candidate value of message m from the current
// values of the messages it depends on.
func (e *Engine) compute(m int) PMF {
	ei := m / 2
	ed := e.g.edges[ei]
	if m%2 == 1 {
		// factor -> variable
		f := e.g.factors[ed.fac]
		in := make([]PMF, len(e.g.facEdges[ed.fac]))
		for pos, other := range e.g.facEdges[ed.fac] {
			in[pos] = e.varToFac[other]
		}
		return f.Message(ed.pos, in).Normalize()
	}
	// variable -> factor: product of the other incident factor messages
	prod := Uniform(0, 2)
	for _, other := range e.g.varEdges[ed.v] {
		if other == ei {
			continue
		}
		prod = prod.Mul(e.facToVar[other])
	}
	return prod.Normalize()
}

// apply stores the dampened update for message m and returns the
// residual that was still left between candidate and old value.
func (e *Engine) apply(m int, cand PMF) float64 {
	old := e.current(m)
	res := cand.L1(old)
	lam := e.opts.Lambda
	mixed := make([]float64, len(cand.P))
	for i := range mixed {
		mixed[i] = (1-lam)*cand.P[i] + lam*old.Prob(cand.First+i)
	}
	e.store(m, PMF{First: cand.First, P: mixed}.Normalize())
	return res
}

// dependents lists the messages whose candidate values change when
// message m is updated.
func (e *Engine) dependents(m int) []int {
	ei := m / 2
	ed := e.g.edges[ei]
	var deps []int
	if m%2 == 1 {
		// A new factor->variable message changes the variable's
		// outgoing messages to its other factors.
		for _, other := range e.g.varEdges[ed.v] {
			if other != ei {
				deps = append(deps, msgID(other, false))
			}
		}
		return deps
	}
	// A new variable->factor message changes the factor's outgoing
	// messages to its other variables.
	for _, other := range e.g.facEdges[ed.fac] {
		if other != ei {
			deps = append(deps, msgID(other, true))
		}
	}
	return deps
}

// EstimatePosteriors combines all incident factor messages of each
// requested variable into its marginal distribution.
func (e *Engine) EstimatePosteriors(vars []int) []Posterior {
	posts := make([]Posterior, 0, len(vars))
	for _, v := range vars {
		vi, ok := e.g.varIdx[v]
		if !ok {
			continue
		}
		marg := Uniform(0, 2)
		for _, ei := range e.g.varEdges[vi] {
			marg = marg.Mul(e.facToVar[ei])
		}
		posts = append(posts, Posterior{Var: v, PMF: marg.Normalize()})
	}
	return posts
}
