// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

// Package ident holds the in-memory identification records that protein
// inference operates on. The evidence graph references these records by
// index only; the records themselves are mutated when posteriors are
// written back after inference.
package ident

import (
	"errors"
	"sort"
)

// ProteinHit is one protein identification record
type ProteinHit struct {
	Accession string
	Decoy     bool
	// Score carries the posterior probability of presence after
	// inference has run. Before that it is -1 (unset).
	Score float64
}

// PSM is one scored peptide-spectrum match. Evidence lists the accessions
// of the proteins this peptide maps to, as declared in the input file.
type PSM struct {
	Sequence string
	Score    float64 // probability-like score in [0,1], higher is better
	Evidence []string
}

// PeptideIdentification groups the PSMs reported for one spectrum.
type PeptideIdentification struct {
	SpectrumID string
	Run        string // acquisition run the spectrum belongs to
	Hits       []PSM
}

// ProteinGroup is a set of indistinguishable proteins reported as one unit.
// The probability is the score of one representative member protein, not a
// joint probability over the group.
type ProteinGroup struct {
	Accessions  []string
	Probability float64
}

var ErrNoProteins = errors.New("ident: store contains no proteins")

// Store owns all identification records for one inference call.
type Store struct {
	Proteins []ProteinHit
	Peptides []PeptideIdentification
	Groups   []ProteinGroup

	accIdx map[string]int
}

// NewStore creates a store from protein and peptide identification records.
// Protein scores are reset to -1 (unset posterior).
func NewStore(proteins []ProteinHit, peptides []PeptideIdentification) (*Store, error) {
	if len(proteins) == 0 {
		return nil, ErrNoProteins
	}
	s := &Store{
		Proteins: proteins,
		Peptides: peptides,
		accIdx:   make(map[string]int, len(proteins)),
	}
	for i := range s.Proteins {
		s.Proteins[i].Score = -1
		s.accIdx[s.Proteins[i].Accession] = i
	}
	return s, nil
}

// ProteinIndex returns the index of the protein with the given accession.
func (s *Store) ProteinIndex(accession string) (int, bool) {
	i, ok := s.accIdx[accession]
	return i, ok
}

// ResetScores puts all protein scores back to the unset value. Used between
// grid-search candidates so that a candidate cannot inherit posteriors from
// the previous one for components that it skips.
func (s *Store) ResetScores() {
	for i := range s.Proteins {
		s.Proteins[i].Score = -1
	}
	s.Groups = s.Groups[:0]
}

// ScoredProteins returns the proteins that have a posterior assigned,
// sorted by descending score. Proteins in single-type components keep an
// unset score and are not included.
func (s *Store) ScoredProteins() []ProteinHit {
	scored := make([]ProteinHit, 0, len(s.Proteins))
	for _, p := range s.Proteins {
		if p.Score >= 0 {
			scored = append(scored, p)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}
