package infer

import (
	"github.com/524D/protinfer/internal/bp"
	"github.com/524D/protinfer/internal/idgraph"
)

// compileComponent turns one connected component of the evidence graph
// into a factor graph. Variable ids are the evidence-graph node indices.
// The second return value lists the variables whose posteriors must be
// written back (proteins and protein groups).
func compileComponent(g *idgraph.Graph, comp []int, model ModelParams) (*bp.Graph, []int) {
	fg := bp.NewGraph()
	var targets []int

	for _, ni := range comp {
		n := g.Node(ni)
		switch n.Kind {
		case idgraph.KindProtein:
			fg.AddFactor(&bp.PriorFactor{Var: ni, Gamma: model.ProtPrior})
			targets = append(targets, ni)
		case idgraph.KindProteinGroup:
			fg.AddFactor(bp.NewAdderFactor(g.Upstream(ni), ni))
			targets = append(targets, ni)
		case idgraph.KindPeptideGroup, idgraph.KindPeptide, idgraph.KindRun:
			fg.AddFactor(bp.NewAdderFactor(g.Upstream(ni), ni))
		case idgraph.KindPSM:
			hit := &g.Store.Peptides[n.Spec].Hits[n.Hit]
			up := g.Upstream(ni)
			fg.AddFactor(bp.NewSumEvidenceFactor(up[0], ni, len(hit.Evidence),
				model.PepEmission, model.PepSpuriousEmission))
			fg.AddFactor(&bp.EvidenceFactor{Var: ni, Score: hit.Score})
		}
	}
	return fg, targets
}
