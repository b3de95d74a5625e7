package idgraph

import (
	"sort"
	"strconv"
	"strings"
)

// ClusterIndistinguishable merges indistinguishable proteins and peptides
// into group nodes in every connected component. Proteins are
// indistinguishable when their neighbor-peptide sets are identical; the
// merged ProteinGroup node inherits the union of the peptide edges while
// the member proteins stay connected to the group (they remain reachable
// for group annotation). Peptides with identical parent-protein sets are
// merged into PeptideGroup nodes symmetrically.
//
// Grouping is insertion-order stable and idempotent: re-running it on an
// already-clustered component produces no further merges.
func (g *Graph) ClusterIndistinguishable() {
	for ci := range g.comps {
		g.clusterComponent(ci)
	}
}

// ClusterAndExtend runs the regular clustering and then restructures each
// peptide's evidence per acquisition run, inserting a run node between
// the peptide and the PSMs of that run. This keeps per-run calibration
// signal visible to the model instead of collapsing all PSMs directly
// onto the peptide.
func (g *Graph) ClusterAndExtend() {
	g.ClusterIndistinguishable()
	for ci := range g.comps {
		g.extendComponent(ci)
	}
	for ci := range g.comps {
		sort.Ints(g.comps[ci])
	}
}

func (g *Graph) clusterComponent(ci int) {
	g.mergeByNeighborSet(ci, KindProtein, KindProteinGroup)
	g.mergeByNeighborSet(ci, KindPeptide, KindPeptideGroup)
	sort.Ints(g.comps[ci])
}

// mergeByNeighborSet merges nodes of kind memberKind that share an
// identical relevant-neighbor set into one group node of kind groupKind.
// For proteins the relevant neighbors are the downstream (peptide side)
// nodes, for peptides the upstream (protein side) nodes.
func (g *Graph) mergeByNeighborSet(ci int, memberKind, groupKind Kind) {
	comp := g.comps[ci]

	var keys []string
	members := make(map[string][]int)
	neighborSet := make(map[string][]int)

	for _, n := range comp {
		if g.nodes[n].Kind != memberKind {
			continue
		}
		// A node already attached to a group of the target kind has been
		// clustered before; merging it again would collapse group
		// members into ever deeper groups.
		if g.hasNeighborOfKind(n, groupKind) {
			continue
		}
		rel := g.relevantNeighbors(n, memberKind)
		if len(rel) == 0 {
			continue
		}
		key := setKey(rel)
		if _, ok := members[key]; !ok {
			keys = append(keys, key)
			neighborSet[key] = rel
		}
		members[key] = append(members[key], n)
	}

	for _, key := range keys {
		ms := members[key]
		if len(ms) < 2 {
			continue
		}
		grp := g.AddNode(Node{Kind: groupKind})
		g.addToComponent(grp, ms[0])
		// Retarget the shared edges onto the group node, keep the
		// members attached to the group.
		for _, nb := range neighborSet[key] {
			g.AddEdge(grp, nb)
		}
		for _, m := range ms {
			for _, nb := range neighborSet[key] {
				g.removeEdge(m, nb)
			}
			g.AddEdge(m, grp)
		}
	}
}

// relevantNeighbors returns the neighbors that define indistinguishability
// for the given member kind: the peptide-side neighbors for proteins, the
// protein-side neighbors for peptides. Sorted for set comparison.
func (g *Graph) relevantNeighbors(n int, memberKind Kind) []int {
	var rel []int
	for _, nb := range g.adj[n] {
		k := g.nodes[nb].Kind
		if memberKind == KindProtein && k > KindProtein {
			rel = append(rel, nb)
		}
		if memberKind == KindPeptide && k < KindPeptide {
			rel = append(rel, nb)
		}
	}
	sort.Ints(rel)
	return rel
}

func (g *Graph) hasNeighborOfKind(n int, k Kind) bool {
	for _, nb := range g.adj[n] {
		if g.nodes[nb].Kind == k {
			return true
		}
	}
	return false
}

func setKey(sorted []int) string {
	var b strings.Builder
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// extendComponent inserts per-run nodes between each peptide and its
// directly attached PSMs.
func (g *Graph) extendComponent(ci int) {
	comp := g.comps[ci]
	for _, n := range comp {
		if g.nodes[n].Kind != KindPeptide {
			continue
		}
		var runs []string
		psmsByRun := make(map[string][]int)
		for _, nb := range g.adj[n] {
			if g.nodes[nb].Kind != KindPSM {
				continue
			}
			run := g.Store.Peptides[g.nodes[nb].Spec].Run
			if _, ok := psmsByRun[run]; !ok {
				runs = append(runs, run)
			}
			psmsByRun[run] = append(psmsByRun[run], nb)
		}
		for _, run := range runs {
			rn := g.AddNode(Node{Kind: KindRun, Run: run})
			g.addToComponent(rn, n)
			g.AddEdge(n, rn)
			for _, psm := range psmsByRun[run] {
				g.removeEdge(n, psm)
				g.AddEdge(rn, psm)
			}
		}
	}
}
