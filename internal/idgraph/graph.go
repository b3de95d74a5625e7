// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

// Package idgraph builds the evidence graph over identification entities:
// proteins, protein groups, peptide groups, peptides and PSMs. Edges mean
// "provides evidence for". The graph is partitioned into connected
// components which are inference-independent.
package idgraph

import (
	"log"
	"sort"

	"github.com/524D/protinfer/internal/ident"
)

// Kind discriminates the node variants. The numeric value doubles as the
// type rank: when compiling factors, only neighbors with a strictly lower
// rank count as inputs of a node, which enforces the
// protein -> group -> peptide -> PSM generative order.
type Kind int

const (
	KindProtein Kind = iota
	KindProteinGroup
	KindPeptideGroup
	KindPeptide
	KindRun // extended graph only, groups PSMs per acquisition run

	// KindPSM is deliberately the highest rank so that PSMs are
	// downstream of every other node type.
	KindPSM Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindProtein:
		return "protein"
	case KindProteinGroup:
		return "proteinGroup"
	case KindPeptideGroup:
		return "peptideGroup"
	case KindPeptide:
		return "peptide"
	case KindRun:
		return "run"
	case KindPSM:
		return "psm"
	}
	return "unknown"
}

// Node is one vertex of the evidence graph. It references the underlying
// identification record by arena index into the store; which indices are
// meaningful depends on Kind. The posterior slot is unset (-1) until
// inference writes it.
type Node struct {
	Kind Kind

	Prot      int    // KindProtein: index into store.Proteins
	Spec, Hit int    // KindPSM: indices into store.Peptides[Spec].Hits[Hit]
	Seq       string // KindPeptide: the distinct peptide sequence
	Run       string // KindRun: acquisition run identifier

	Posterior float64
}

// Graph is the evidence graph for one inference call. Node indices are
// assigned at insertion and never reused within one build.
type Graph struct {
	Store *ident.Store

	nodes  []Node
	adj    [][]int
	comps  [][]int // node indices per component, each sorted ascending
	compOf []int   // component id per node, -1 before partitioning

	skippedPSMs int // malformed PSMs (no evidence) dropped during build
}

// Build creates the evidence graph from the identification records.
// Per spectrum only the topPSMs best-scoring PSMs are retained (0 keeps
// all; ties are broken by first-encountered order). A PSM whose evidence
// list is empty or resolves to no known protein is malformed input: it is
// skipped with a warning, never fatal.
func Build(store *ident.Store, topPSMs int) *Graph {
	g := &Graph{Store: store}

	protNode := make(map[int]int, len(store.Proteins))
	pepNode := make(map[string]int)

	for specIdx := range store.Peptides {
		spec := &store.Peptides[specIdx]
		for _, hitIdx := range topHits(spec.Hits, topPSMs) {
			hit := &spec.Hits[hitIdx]
			if len(hit.Evidence) == 0 {
				g.skippedPSMs++
				log.Printf("skipping PSM without protein evidence (spectrum %s, sequence %s)",
					spec.SpectrumID, hit.Sequence)
				continue
			}

			// Resolve the evidence first: a PSM whose accessions all
			// fail to resolve must not leave an orphan peptide behind.
			var protIdxs []int
			for _, acc := range hit.Evidence {
				protIdx, ok := store.ProteinIndex(acc)
				if !ok {
					log.Printf("skipping evidence for unknown protein %s (spectrum %s)",
						acc, spec.SpectrumID)
					continue
				}
				protIdxs = append(protIdxs, protIdx)
			}
			if len(protIdxs) == 0 {
				g.skippedPSMs++
				log.Printf("skipping PSM with no resolvable protein evidence (spectrum %s, sequence %s)",
					spec.SpectrumID, hit.Sequence)
				continue
			}

			pn, ok := pepNode[hit.Sequence]
			if !ok {
				pn = g.AddNode(Node{Kind: KindPeptide, Seq: hit.Sequence})
				pepNode[hit.Sequence] = pn
			}
			psm := g.AddNode(Node{Kind: KindPSM, Spec: specIdx, Hit: hitIdx})
			g.AddEdge(psm, pn)

			for _, protIdx := range protIdxs {
				prn, ok := protNode[protIdx]
				if !ok {
					prn = g.AddNode(Node{Kind: KindProtein, Prot: protIdx})
					protNode[protIdx] = prn
				}
				if !g.hasEdge(pn, prn) {
					g.AddEdge(pn, prn)
				}
			}
		}
	}

	// Proteins without any retained PSM still become (isolated) nodes, so
	// that they are visible as degenerate single-type components.
	for protIdx := range store.Proteins {
		if _, ok := protNode[protIdx]; !ok {
			protNode[protIdx] = g.AddNode(Node{Kind: KindProtein, Prot: protIdx})
		}
	}
	return g
}

// topHits returns the indices of the top-k scoring hits of one spectrum,
// in first-encountered order for equal scores. k=0 means all.
func topHits(hits []ident.PSM, k int) []int {
	idx := make([]int, len(hits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return hits[idx[a]].Score > hits[idx[b]].Score
	})
	if k > 0 && k < len(idx) {
		idx = idx[:k]
	}
	// Insertion order of the retained hits must be stable for
	// reproducible node numbering.
	sort.Ints(idx)
	return idx
}

// AddNode inserts a node and returns its stable index.
func (g *Graph) AddNode(n Node) int {
	n.Posterior = -1
	g.nodes = append(g.nodes, n)
	g.adj = append(g.adj, nil)
	if g.compOf != nil {
		g.compOf = append(g.compOf, -1)
	}
	return len(g.nodes) - 1
}

// AddEdge inserts an undirected edge between two node indices.
func (g *Graph) AddEdge(u, v int) {
	g.adj[u] = append(g.adj[u], v)
	g.adj[v] = append(g.adj[v], u)
}

func (g *Graph) removeEdge(u, v int) {
	g.adj[u] = removeVal(g.adj[u], v)
	g.adj[v] = removeVal(g.adj[v], u)
}

func removeVal(s []int, v int) []int {
	k := 0
	for _, x := range s {
		if x != v {
			s[k] = x
			k++
		}
	}
	return s[:k]
}

func (g *Graph) hasEdge(u, v int) bool {
	for _, x := range g.adj[u] {
		if x == v {
			return true
		}
	}
	return false
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Node gives access to the node at index i.
func (g *Graph) Node(i int) *Node { return &g.nodes[i] }

// Neighbors returns the adjacency list of node i in insertion order.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Upstream returns the neighbors of node i with a strictly lower type
// rank, sorted ascending. These are the inputs of the node's factor.
func (g *Graph) Upstream(i int) []int {
	var in []int
	for _, nb := range g.adj[i] {
		if g.nodes[nb].Kind < g.nodes[i].Kind {
			in = append(in, nb)
		}
	}
	sort.Ints(in)
	return in
}

// SkippedPSMs reports how many malformed PSMs were dropped during build.
func (g *Graph) SkippedPSMs() int { return g.skippedPSMs }

// SetPosterior writes a posterior probability onto a node. Only Protein
// and ProteinGroup nodes accept writes; other variants reject silently.
func (g *Graph) SetPosterior(i int, p float64) {
	switch g.nodes[i].Kind {
	case KindProtein, KindProteinGroup:
		g.nodes[i].Posterior = p
	}
}
