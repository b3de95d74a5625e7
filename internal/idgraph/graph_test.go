package idgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/524D/protinfer/internal/ident"
)

func testStore(t *testing.T) *ident.Store {
	t.Helper()
	store, err := ident.NewStore(
		[]ident.ProteinHit{
			{Accession: "P1"},
			{Accession: "P2"},
			{Accession: "P3"},
		},
		[]ident.PeptideIdentification{
			{SpectrumID: "s1", Run: "r1", Hits: []ident.PSM{
				{Sequence: "AAA", Score: 0.9, Evidence: []string{"P1"}},
			}},
			{SpectrumID: "s2", Run: "r1", Hits: []ident.PSM{
				{Sequence: "BBB", Score: 0.8, Evidence: []string{"P1", "P2"}},
			}},
		})
	if err != nil {
		t.Fatalf("NewStore: error return %v", err)
	}
	return store
}

func countKind(g *Graph, k Kind) int {
	n := 0
	for i := 0; i < g.NumNodes(); i++ {
		if g.Node(i).Kind == k {
			n++
		}
	}
	return n
}

func TestBuild(t *testing.T) {
	g := Build(testStore(t), 0)

	if n := countKind(g, KindProtein); n != 3 {
		t.Errorf("protein nodes: %d, should be 3", n)
	}
	if n := countKind(g, KindPeptide); n != 2 {
		t.Errorf("peptide nodes: %d, should be 2", n)
	}
	if n := countKind(g, KindPSM); n != 2 {
		t.Errorf("PSM nodes: %d, should be 2", n)
	}
	if g.SkippedPSMs() != 0 {
		t.Errorf("SkippedPSMs: %d, should be 0", g.SkippedPSMs())
	}

	// each PSM has exactly one upstream peptide
	for i := 0; i < g.NumNodes(); i++ {
		if g.Node(i).Kind != KindPSM {
			continue
		}
		up := g.Upstream(i)
		if len(up) != 1 || g.Node(up[0]).Kind != KindPeptide {
			t.Errorf("PSM %d upstream: %v", i, up)
		}
	}
}

func TestBuildSkipsPSMWithoutEvidence(t *testing.T) {
	store, err := ident.NewStore(
		[]ident.ProteinHit{{Accession: "P1"}},
		[]ident.PeptideIdentification{
			{SpectrumID: "s1", Hits: []ident.PSM{
				{Sequence: "AAA", Score: 0.9},
			}},
		})
	if err != nil {
		t.Fatalf("NewStore: error return %v", err)
	}
	g := Build(store, 0)
	if g.SkippedPSMs() != 1 {
		t.Errorf("SkippedPSMs: %d, should be 1", g.SkippedPSMs())
	}
	if n := countKind(g, KindPSM); n != 0 {
		t.Errorf("PSM nodes: %d, should be 0", n)
	}
	// the protein still appears as an isolated node
	if n := countKind(g, KindProtein); n != 1 {
		t.Errorf("protein nodes: %d, should be 1", n)
	}
}

func TestBuildSkipsPSMWithUnresolvableEvidence(t *testing.T) {
	store, err := ident.NewStore(
		[]ident.ProteinHit{{Accession: "P1"}},
		[]ident.PeptideIdentification{
			{SpectrumID: "s1", Hits: []ident.PSM{
				{Sequence: "AAA", Score: 0.9, Evidence: []string{"UNKNOWN"}},
			}},
			{SpectrumID: "s2", Hits: []ident.PSM{
				{Sequence: "BBB", Score: 0.8, Evidence: []string{"UNKNOWN", "P1"}},
			}},
		})
	if err != nil {
		t.Fatalf("NewStore: error return %v", err)
	}
	g := Build(store, 0)

	// s1 resolves to nothing and is dropped without leaving an orphan
	// peptide; s2 keeps its one resolvable link
	if g.SkippedPSMs() != 1 {
		t.Errorf("SkippedPSMs: %d, should be 1", g.SkippedPSMs())
	}
	if n := countKind(g, KindPSM); n != 1 {
		t.Errorf("PSM nodes: %d, should be 1", n)
	}
	if n := countKind(g, KindPeptide); n != 1 {
		t.Errorf("peptide nodes: %d, should be 1", n)
	}
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(i)
		if n.Kind == KindPeptide {
			if n.Seq != "BBB" {
				t.Errorf("retained peptide: %s, should be BBB", n.Seq)
			}
			up := g.Upstream(i)
			if len(up) != 1 || g.Node(up[0]).Kind != KindProtein {
				t.Errorf("peptide upstream: %v, should be one protein", up)
			}
		}
	}
}

func TestBuildTopPSMs(t *testing.T) {
	store, err := ident.NewStore(
		[]ident.ProteinHit{{Accession: "P1"}, {Accession: "P2"}},
		[]ident.PeptideIdentification{
			{SpectrumID: "s1", Hits: []ident.PSM{
				{Sequence: "AAA", Score: 0.3, Evidence: []string{"P1"}},
				{Sequence: "BBB", Score: 0.9, Evidence: []string{"P2"}},
			}},
		})
	if err != nil {
		t.Fatalf("NewStore: error return %v", err)
	}

	g := Build(store, 1)
	if n := countKind(g, KindPSM); n != 1 {
		t.Errorf("PSM nodes with topPSMs=1: %d, should be 1", n)
	}
	// the retained PSM is the best-scoring one
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(i)
		if n.Kind == KindPSM && store.Peptides[n.Spec].Hits[n.Hit].Sequence != "BBB" {
			t.Errorf("retained PSM: %s, should be BBB", store.Peptides[n.Spec].Hits[n.Hit].Sequence)
		}
	}

	g = Build(store, 0)
	if n := countKind(g, KindPSM); n != 2 {
		t.Errorf("PSM nodes with topPSMs=0: %d, should be 2", n)
	}
}

func TestComputeConnectedComponents(t *testing.T) {
	g := Build(testStore(t), 0)
	comps := g.ComputeConnectedComponents()

	// P1/P2 share evidence, P3 is isolated
	if len(comps) != 2 {
		t.Fatalf("components: %d, should be 2", len(comps))
	}
	if diff := cmp.Diff(comps, g.Components()); diff != "" {
		t.Errorf("Components mismatch (-want +got):\n%s", diff)
	}

	var single, multi int
	for _, comp := range comps {
		if g.SingleKind(comp) {
			single++
		} else {
			multi++
		}
	}
	if single != 1 || multi != 1 {
		t.Errorf("single/multi kind components: %d/%d, should be 1/1", single, multi)
	}
}

func TestComponentsDeterministic(t *testing.T) {
	g1 := Build(testStore(t), 0)
	g2 := Build(testStore(t), 0)
	if diff := cmp.Diff(g1.ComputeConnectedComponents(), g2.ComputeConnectedComponents()); diff != "" {
		t.Errorf("components differ between identical builds (-first +second):\n%s", diff)
	}
}

func TestSetPosterior(t *testing.T) {
	g := Build(testStore(t), 0)
	for i := 0; i < g.NumNodes(); i++ {
		g.SetPosterior(i, 0.5)
		n := g.Node(i)
		switch n.Kind {
		case KindProtein, KindProteinGroup:
			if n.Posterior != 0.5 {
				t.Errorf("node %d (%s): posterior not written", i, n.Kind)
			}
		default:
			if n.Posterior != -1 {
				t.Errorf("node %d (%s): posterior written, should be rejected", i, n.Kind)
			}
		}
	}
}
