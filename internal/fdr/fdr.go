// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

// Package fdr scores a protein posterior list against its target/decoy
// labels. The combined objective is what the parameter grid search
// maximizes: a weighted sum of target-decoy discrimination (ROC AUC) and
// posterior calibration.
package fdr

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/524D/protinfer/internal/ident"
)

const calibrationBins = 10

// Evaluator returns the grid-search objective for the given AUC weight:
// aucWeight*AUC + (1-aucWeight)*calibration.
func Evaluator(aucWeight float64) func(scored []ident.ProteinHit) float64 {
	return func(scored []ident.ProteinHit) float64 {
		if len(scored) == 0 {
			return 0
		}
		return aucWeight*AUC(scored) + (1-aucWeight)*Calibration(scored)
	}
}

// AUC is the area under the ROC curve of the posterior scores with
// decoys as the negative class. A list with only one class present has
// no discrimination signal and evaluates to the chance level 0.5.
func AUC(scored []ident.ProteinHit) float64 {
	y := make([]float64, len(scored))
	classes := make([]bool, len(scored))
	targets := 0
	for i, p := range scored {
		y[i] = p.Score
		classes[i] = !p.Decoy
		if !p.Decoy {
			targets++
		}
	}
	if targets == 0 || targets == len(scored) {
		return 0.5
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Calibration measures how well the posteriors match the observed target
// fractions: proteins are binned by posterior, and for each occupied bin
// the mean posterior is compared against the fraction of targets in it.
// 1 is perfectly calibrated, 0 the worst case.
func Calibration(scored []ident.ProteinHit) float64 {
	sum := make([]float64, calibrationBins)
	hits := make([]float64, calibrationBins)
	count := make([]int, calibrationBins)
	for _, p := range scored {
		b := int(p.Score * calibrationBins)
		if b >= calibrationBins {
			b = calibrationBins - 1
		}
		if b < 0 {
			b = 0
		}
		sum[b] += p.Score
		if !p.Decoy {
			hits[b]++
		}
		count[b]++
	}

	sq, nbins := 0.0, 0
	for b := 0; b < calibrationBins; b++ {
		if count[b] == 0 {
			continue
		}
		d := sum[b]/float64(count[b]) - hits[b]/float64(count[b])
		sq += d * d
		nbins++
	}
	if nbins == 0 {
		return 0
	}
	return 1 - math.Sqrt(sq/float64(nbins))
}
