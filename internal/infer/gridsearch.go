package infer

import (
	"log"

	"github.com/524D/protinfer/internal/ident"
	"github.com/524D/protinfer/internal/idgraph"
)

// Evaluator scores one grid candidate from the posterior-sorted protein
// list of a trial run. Higher is better.
type Evaluator func(scored []ident.ProteinHit) float64

// Candidate is one point of the parameter grid with its evaluation.
type Candidate struct {
	Model ModelParams
	Value float64
}

// SearchResult is the outcome of a full inference call.
type SearchResult struct {
	Best       ModelParams
	Candidates []Candidate
	Stats      RunStats
}

// Search evaluates every point of the Cartesian parameter grid and
// returns the winner. Candidates are visited in alpha-major order; on
// equal value the first-encountered candidate wins (strict greater-than
// comparison). Protein scores are reset between candidates so a trial
// cannot inherit posteriors from its predecessor.
func (inf *Inferrer) Search(eval Evaluator) (ModelParams, []Candidate) {
	return inf.searchWith(func(m ModelParams) float64 {
		inf.graph.Store.ResetScores()
		inf.Run(m)
		return eval(inf.graph.Store.ScoredProteins())
	})
}

func (inf *Inferrer) searchWith(value func(ModelParams) float64) (ModelParams, []Candidate) {
	grid := inf.params.Grid
	best := inf.params.Model
	bestVal := -1.0
	var cands []Candidate
	for _, a := range grid.Alpha {
		for _, b := range grid.Beta {
			for _, g := range grid.Gamma {
				m := ModelParams{ProtPrior: g, PepEmission: a, PepSpuriousEmission: b}
				v := value(m)
				cands = append(cands, Candidate{Model: m, Value: v})
				log.Printf("grid candidate alpha=%g beta=%g gamma=%g: %g", a, b, g, v)
				if v > bestVal {
					bestVal = v
					best = m
				}
			}
		}
	}
	return best, cands
}

// Infer is the full pipeline on a store: build the evidence graph,
// partition and cluster it, optimize the model parameters on the grid
// and run the authoritative inference pass with the winner. The final
// protein posteriors and group annotations are left on the store.
func Infer(store *ident.Store, params Params, eval Evaluator) (*idgraph.Graph, SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, SearchResult{}, err
	}

	g := idgraph.Build(store, params.TopPSMs)
	g.ComputeConnectedComponents()
	if params.ExtendedModel {
		g.ClusterAndExtend()
	} else {
		g.ClusterIndistinguishable()
	}

	inf := NewInferrer(g, params)
	if params.AnnotateGroupsOnly {
		inf.AnnotateGroups()
		return g, SearchResult{Best: params.Model}, nil
	}

	res := SearchResult{Best: params.Model}
	if gridSize(params.Grid) > 1 {
		res.Best, res.Candidates = inf.Search(eval)
		store.ResetScores()
	} else if gridSize(params.Grid) == 1 {
		res.Best = ModelParams{
			ProtPrior:           params.Grid.Gamma[0],
			PepEmission:         params.Grid.Alpha[0],
			PepSpuriousEmission: params.Grid.Beta[0],
		}
	}

	// Authoritative run: the candidate trials above only produced scores
	// for ranking, the committed posteriors come from this pass.
	res.Stats = inf.Run(res.Best)
	inf.AnnotateGroups()
	return g, res, nil
}

func gridSize(g GridParams) int {
	return len(g.Alpha) * len(g.Beta) * len(g.Gamma)
}
