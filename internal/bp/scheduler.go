package bp

import (
	"container/heap"
	"math/rand"
)

// The schedulers below share the same message-update core and reach the
// same fixed point when run to full convergence; they differ only in the
// order of updates and therefore in convergence speed.

// runPriority is residual belief propagation: always update the message
// whose candidate value is farthest (L1) from its last sent value.
// Converged messages leave the schedule and are re-activated when a
// neighboring update changes their inputs. Stale heap entries are
// invalidated lazily via version counters.
func (e *Engine) runPriority() Result {
	n := e.numMessages()
	version := make([]int, n)
	cand := make([]PMF, n)

	h := &msgHeap{}
	heap.Init(h)
	for m := 0; m < n; m++ {
		cand[m] = e.compute(m)
		if res := cand[m].L1(e.current(m)); res > e.opts.ConvergenceThreshold {
			heap.Push(h, heapItem{res: res, msg: m, version: version[m]})
		}
	}

	iter := 0
	for h.Len() > 0 {
		if iter >= e.opts.MaxIterations {
			return Result{Iterations: iter, Converged: false}
		}
		it := heap.Pop(h).(heapItem)
		if it.version != version[it.msg] {
			continue // stale entry
		}
		e.apply(it.msg, cand[it.msg])
		iter++

		version[it.msg]++
		// With dampening the stored value only moves part of the way to
		// the candidate, so the message may need another update.
		if res := cand[it.msg].L1(e.current(it.msg)); res > e.opts.ConvergenceThreshold {
			heap.Push(h, heapItem{res: res, msg: it.msg, version: version[it.msg]})
		}
		for _, d := range e.dependents(it.msg) {
			cand[d] = e.compute(d)
			version[d]++
			if res := cand[d].L1(e.current(d)); res > e.opts.ConvergenceThreshold {
				heap.Push(h, heapItem{res: res, msg: d, version: version[d]})
			}
		}
	}
	return Result{Iterations: iter, Converged: true}
}

type heapItem struct {
	res     float64
	msg     int
	version int
}

// msgHeap is a max-heap on residual, ties broken by lower message id so
// that runs are deterministic.
type msgHeap []heapItem

func (h msgHeap) Len() int { return len(h) }
func (h msgHeap) Less(i, j int) bool {
	if h[i].res != h[j].res {
		return h[i].res > h[j].res
	}
	return h[i].msg < h[j].msg
}
func (h msgHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *msgHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *msgHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// runFIFO sweeps all messages in a fixed order until a full sweep stays
// under the convergence threshold.
func (e *Engine) runFIFO() Result {
	n := e.numMessages()
	iter := 0
	for {
		maxRes := 0.0
		for m := 0; m < n; m++ {
			if iter >= e.opts.MaxIterations {
				return Result{Iterations: iter, Converged: false}
			}
			res := e.apply(m, e.compute(m))
			iter++
			if res > maxRes {
				maxRes = res
			}
		}
		if maxRes <= e.opts.ConvergenceThreshold {
			return Result{Iterations: iter, Converged: true}
		}
	}
}

// runSpanningTree orders each sweep along a random spanning tree of the
// factor graph: one pass from the leaves to the root, one pass back,
// then the remaining (non-tree) messages in fixed order. On a
// tree-structured graph a single sweep is exact.
func (e *Engine) runSpanningTree() Result {
	rng := rand.New(rand.NewSource(e.opts.Seed))
	// bipartite node ids: variables first, then factors
	numNodes := e.g.NumVars() + e.g.NumFactors()
	nodeAdj := make([][]int, numNodes) // edge indices per node
	for ei, ed := range e.g.edges {
		fn := e.g.NumVars() + ed.fac
		nodeAdj[ed.v] = append(nodeAdj[ed.v], ei)
		nodeAdj[fn] = append(nodeAdj[fn], ei)
	}

	iter := 0
	for {
		order := e.treeOrder(rng, nodeAdj, numNodes)
		maxRes := 0.0
		for _, m := range order {
			if iter >= e.opts.MaxIterations {
				return Result{Iterations: iter, Converged: false}
			}
			res := e.apply(m, e.compute(m))
			iter++
			if res > maxRes {
				maxRes = res
			}
		}
		if maxRes <= e.opts.ConvergenceThreshold {
			return Result{Iterations: iter, Converged: true}
		}
	}
}

// treeOrder derives a message ordering for one sweep from a randomly
// rooted, randomly grown spanning tree. All messages appear in the
// ordering; tree messages come first (up, then down).
func (e *Engine) treeOrder(rng *rand.Rand, nodeAdj [][]int, numNodes int) []int {
	if numNodes == 0 {
		return nil
	}
	type step struct {
		edge       int
		childIsVar bool
	}
	visited := make([]bool, numNodes)
	inTree := make([]bool, len(e.g.edges))
	var steps []step

	// BFS over randomly shuffled adjacency, covering all components
	queue := make([]int, 0, numNodes)
	start := rng.Intn(numNodes)
	for off := 0; off < numNodes; off++ {
		root := (start + off) % numNodes
		if visited[root] {
			continue
		}
		visited[root] = true
		queue = append(queue[:0], root)
		for len(queue) > 0 {
			nd := queue[0]
			queue = queue[1:]
			adj := nodeAdj[nd]
			for _, k := range rng.Perm(len(adj)) {
				ei := adj[k]
				ed := e.g.edges[ei]
				other := ed.v
				childIsVar := true
				if nd == ed.v {
					other = e.g.NumVars() + ed.fac
					childIsVar = false
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				inTree[ei] = true
				steps = append(steps, step{edge: ei, childIsVar: childIsVar})
				queue = append(queue, other)
			}
		}
	}

	order := make([]int, 0, e.numMessages())
	// upward pass: child -> parent, deepest first
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		// the message from the child endpoint towards the parent
		order = append(order, msgID(s.edge, !s.childIsVar))
	}
	// downward pass: parent -> child
	for _, s := range steps {
		order = append(order, msgID(s.edge, s.childIsVar))
	}
	// non-tree messages in fixed order
	for ei := range e.g.edges {
		if !inTree[ei] {
			order = append(order, msgID(ei, false), msgID(ei, true))
		}
	}
	return order
}
