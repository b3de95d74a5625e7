// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"

	"github.com/524D/protinfer/internal/idgraph"
)

// debugLogGraph prints the composition of the evidence graph: per-kind
// node counts, the component size distribution and the nodes of each
// non-trivial component with their neighbors and posteriors.
func debugLogGraph(g *idgraph.Graph) {
	kindCount := map[idgraph.Kind]int{}
	for i := 0; i < g.NumNodes(); i++ {
		kindCount[g.Node(i).Kind]++
	}
	fmt.Printf("Evidence graph: %d nodes\n", g.NumNodes())
	for _, k := range []idgraph.Kind{
		idgraph.KindProtein, idgraph.KindProteinGroup, idgraph.KindPeptideGroup,
		idgraph.KindPeptide, idgraph.KindRun, idgraph.KindPSM,
	} {
		if kindCount[k] > 0 {
			fmt.Printf("  %s: %d\n", k, kindCount[k])
		}
	}
	if g.SkippedPSMs() > 0 {
		fmt.Printf("  skipped PSMs: %d\n", g.SkippedPSMs())
	}

	for ci, comp := range g.Components() {
		if len(comp) < 2 || g.SingleKind(comp) {
			continue
		}
		fmt.Printf("Component %d (%d nodes):\n", ci, len(comp))
		for _, ni := range comp {
			n := g.Node(ni)
			fmt.Printf("  %d %s %s nb:%v", ni, n.Kind, debugNodeLabel(g, ni), g.Neighbors(ni))
			if n.Posterior >= 0 {
				fmt.Printf(" p:%f", n.Posterior)
			}
			fmt.Printf("\n")
		}
	}
}

func debugNodeLabel(g *idgraph.Graph, ni int) string {
	n := g.Node(ni)
	switch n.Kind {
	case idgraph.KindProtein:
		return g.Store.Proteins[n.Prot].Accession
	case idgraph.KindPeptide:
		return n.Seq
	case idgraph.KindRun:
		return n.Run
	case idgraph.KindPSM:
		return fmt.Sprintf("%s/%s",
			g.Store.Peptides[n.Spec].SpectrumID,
			g.Store.Peptides[n.Spec].Hits[n.Hit].Sequence)
	}
	return ``
}
