// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

// Package infer glues the evidence graph to the belief propagation
// engine: it compiles connected components into factor graphs, runs
// inference per component, writes posteriors back onto protein records
// and drives the hyperparameter grid search.
package infer

import (
	"fmt"

	"github.com/524D/protinfer/internal/bp"
)

// Params are all options of one inference run. The struct is immutable
// during a run; the grid search derives a fresh copy per candidate
// instead of mutating shared state.
type Params struct {
	// AnnotateGroupsOnly skips inference completely and just annotates
	// indistinguishable groups.
	AnnotateGroupsOnly bool `yaml:"annotate_groups_only"`
	// TopPSMs considers only the top X PSMs per spectrum, 0 means all.
	TopPSMs int `yaml:"top_PSMs"`
	// ExtendedModel restructures evidence per acquisition run before
	// compiling factors.
	ExtendedModel bool `yaml:"extended_model"`

	Model ModelParams `yaml:"model_parameters"`
	BP    BPParams    `yaml:"loopy_belief_propagation"`
	Grid  GridParams  `yaml:"param_optimize"`

	// Workers bounds the number of components solved concurrently.
	// 0 picks the number of CPUs.
	Workers int `yaml:"workers"`
}

// ModelParams is the generative model parameter triple.
type ModelParams struct {
	// ProtPrior is the protein prior probability, the gamma parameter.
	ProtPrior float64 `yaml:"prot_prior"`
	// PepEmission is the peptide emission probability, the alpha
	// parameter.
	PepEmission float64 `yaml:"pep_emission"`
	// PepSpuriousEmission is the spurious peptide identification
	// probability, the beta parameter. Usually much smaller than
	// emission from proteins.
	PepSpuriousEmission float64 `yaml:"pep_spurious_emission"`
}

// BPParams are the loopy belief propagation settings.
type BPParams struct {
	SchedulingType       string  `yaml:"scheduling_type"`
	ConvergenceThreshold float64 `yaml:"convergence_threshold"`
	DampeningLambda      float64 `yaml:"dampening_lambda"`
	MaxNrIterations      int     `yaml:"max_nr_iterations"`
	Seed                 int64   `yaml:"seed"`
}

// GridParams configure the parameter grid search.
type GridParams struct {
	// AUCWeight balances AUC against calibration in the candidate
	// score: 1 maximizes AUC only, 0 calibration only.
	AUCWeight float64 `yaml:"aucweight"`

	Alpha []float64 `yaml:"alpha"`
	Beta  []float64 `yaml:"beta"`
	Gamma []float64 `yaml:"gamma"`
}

// Default returns the parameter defaults.
func Default() Params {
	return Params{
		TopPSMs: 1,
		Model: ModelParams{
			ProtPrior:           0.9,
			PepEmission:         0.1,
			PepSpuriousEmission: 0.001,
		},
		BP: BPParams{
			SchedulingType:       string(bp.SchedulePriority),
			ConvergenceThreshold: 1e-5,
			DampeningLambda:      1e-3,
			MaxNrIterations:      1 << 20,
			Seed:                 1,
		},
		Grid: GridParams{
			AUCWeight: 0.2,
			Alpha:     []float64{0.1, 0.3, 0.5, 0.7, 0.9},
			Beta:      []float64{0.001},
			Gamma:     []float64{0.5},
		},
	}
}

// Validate checks all options against their allowed ranges. A violation
// is fatal at construction time, before any inference runs.
func (p Params) Validate() error {
	if p.TopPSMs < 0 {
		return fmt.Errorf("top_PSMs must be >= 0, got %d", p.TopPSMs)
	}
	if err := probRange("model_parameters:prot_prior", p.Model.ProtPrior); err != nil {
		return err
	}
	if err := probRange("model_parameters:pep_emission", p.Model.PepEmission); err != nil {
		return err
	}
	if err := probRange("model_parameters:pep_spurious_emission", p.Model.PepSpuriousEmission); err != nil {
		return err
	}
	switch bp.SchedulerType(p.BP.SchedulingType) {
	case bp.SchedulePriority, bp.ScheduleFIFO, bp.ScheduleRandomSpanningTree:
	default:
		return fmt.Errorf("loopy_belief_propagation:scheduling_type must be one of priority, fifo, random_spanning_tree, got %q",
			p.BP.SchedulingType)
	}
	if p.BP.ConvergenceThreshold < 0 {
		return fmt.Errorf("loopy_belief_propagation:convergence_threshold must be >= 0, got %g",
			p.BP.ConvergenceThreshold)
	}
	if p.BP.DampeningLambda < 0 || p.BP.DampeningLambda >= 1 {
		return fmt.Errorf("loopy_belief_propagation:dampening_lambda must be in [0,1), got %g",
			p.BP.DampeningLambda)
	}
	if p.BP.MaxNrIterations < 1 {
		return fmt.Errorf("loopy_belief_propagation:max_nr_iterations must be >= 1, got %d",
			p.BP.MaxNrIterations)
	}
	if p.Grid.AUCWeight < 0 || p.Grid.AUCWeight > 1 {
		return fmt.Errorf("param_optimize:aucweight must be in [0,1], got %g", p.Grid.AUCWeight)
	}
	for _, a := range p.Grid.Alpha {
		if err := probRange("param_optimize:alpha", a); err != nil {
			return err
		}
	}
	for _, b := range p.Grid.Beta {
		if err := probRange("param_optimize:beta", b); err != nil {
			return err
		}
	}
	for _, g := range p.Grid.Gamma {
		if err := probRange("param_optimize:gamma", g); err != nil {
			return err
		}
	}
	return nil
}

func probRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1], got %g", name, v)
	}
	return nil
}

func (p Params) bpOptions() bp.Options {
	return bp.Options{
		Lambda:               p.BP.DampeningLambda,
		ConvergenceThreshold: p.BP.ConvergenceThreshold,
		MaxIterations:        p.BP.MaxNrIterations,
		Scheduler:            bp.SchedulerType(p.BP.SchedulingType),
		Seed:                 p.BP.Seed,
	}
}
