package infer

import (
	"log"
	"runtime"
	"sync"

	"github.com/524D/protinfer/internal/bp"
	"github.com/524D/protinfer/internal/ident"
	"github.com/524D/protinfer/internal/idgraph"
)

// Inferrer runs belief propagation over a prepared evidence graph and
// writes protein posteriors back into the identification store.
type Inferrer struct {
	graph  *idgraph.Graph
	params Params
}

// NewInferrer wraps a partitioned (and clustered) evidence graph.
func NewInferrer(g *idgraph.Graph, params Params) *Inferrer {
	return &Inferrer{graph: g, params: params}
}

// RunStats summarizes one inference pass over all components.
type RunStats struct {
	ComponentsSolved  int
	ComponentsSkipped int
	NonConverged      int
	TotalIterations   int
}

type componentResult struct {
	posts      []bp.Posterior
	iterations int
	converged  bool
	skipped    bool
}

// Run solves every component with the given model parameters and writes
// the resulting posteriors onto the graph nodes and protein records.
// Components are independent and solved concurrently; writeback is
// sequential in component order so results are deterministic.
func (inf *Inferrer) Run(model ModelParams) RunStats {
	comps := inf.graph.Components()
	results := make([]componentResult, len(comps))

	workers := inf.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(comps) {
		workers = len(comps)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ci := range work {
				results[ci] = inf.solveComponent(comps[ci], model)
			}
		}()
	}
	for ci := range comps {
		work <- ci
	}
	close(work)
	wg.Wait()

	var stats RunStats
	for ci, r := range results {
		if r.skipped {
			stats.ComponentsSkipped++
			continue
		}
		stats.ComponentsSolved++
		stats.TotalIterations += r.iterations
		if !r.converged {
			stats.NonConverged++
			log.Printf("warning: belief propagation did not converge on component %d after %d iterations; using partial result",
				ci, r.iterations)
		}
		inf.writeback(r.posts)
	}
	if stats.ComponentsSkipped > 0 {
		log.Printf("%d single-type components skipped, their proteins keep an unset posterior",
			stats.ComponentsSkipped)
	}
	return stats
}

// solveComponent compiles and solves one component. Components with
// fewer than two nodes or with only one node type carry no cross-type
// evidence and are skipped; their proteins keep the unset score.
func (inf *Inferrer) solveComponent(comp []int, model ModelParams) componentResult {
	if len(comp) < 2 || inf.graph.SingleKind(comp) {
		return componentResult{skipped: true}
	}
	fg, targets := compileComponent(inf.graph, comp, model)
	eng := bp.NewEngine(fg, inf.params.bpOptions())
	res, err := eng.Run()
	if err != nil {
		// scheduler type is validated in Params.Validate
		panic(err)
	}
	return componentResult{
		posts:      eng.EstimatePosteriors(targets),
		iterations: res.Iterations,
		converged:  res.Converged,
	}
}

// writeback transfers posteriors onto graph nodes and, for plain protein
// nodes, onto the protein records in the store. The presence probability
// is the mass at state 1; a PMF that lost state 1 from its support means
// certain absence.
func (inf *Inferrer) writeback(posts []bp.Posterior) {
	for _, po := range posts {
		p := po.PMF.Prob(1)
		inf.graph.SetPosterior(po.Var, p)
		n := inf.graph.Node(po.Var)
		if n.Kind == idgraph.KindProtein {
			inf.graph.Store.Proteins[n.Prot].Score = p
		}
	}
}

// AnnotateGroups reports each indistinguishable protein group on the
// store. Member accessions are listed in node order; the group
// probability is the score of the last listed member, a
// representative-member approximation rather than a joint probability.
// Without a preceding inference run the members are unscored and the
// group probability stays at the unset value -1.
func (inf *Inferrer) AnnotateGroups() {
	g := inf.graph
	for ni := 0; ni < g.NumNodes(); ni++ {
		if g.Node(ni).Kind != idgraph.KindProteinGroup {
			continue
		}
		var accs []string
		prob := -1.0
		for _, nb := range g.Neighbors(ni) {
			m := g.Node(nb)
			if m.Kind != idgraph.KindProtein {
				continue
			}
			accs = append(accs, g.Store.Proteins[m.Prot].Accession)
			prob = g.Store.Proteins[m.Prot].Score
		}
		if len(accs) == 0 {
			continue
		}
		g.Store.Groups = append(g.Store.Groups, ident.ProteinGroup{
			Accessions:  accs,
			Probability: prob,
		})
	}
}
