package fdr

import (
	"math"
	"testing"

	"github.com/524D/protinfer/internal/ident"
)

func TestAUCPerfectSeparation(t *testing.T) {
	scored := []ident.ProteinHit{
		{Accession: "T1", Score: 0.95},
		{Accession: "T2", Score: 0.9},
		{Accession: "D1", Decoy: true, Score: 0.2},
		{Accession: "D2", Decoy: true, Score: 0.1},
	}
	auc := AUC(scored)
	if math.Abs(auc-1.0) > 1e-12 {
		t.Errorf("AUC: %v, should be 1 for perfectly separated scores", auc)
	}
}

func TestAUCInvertedSeparation(t *testing.T) {
	scored := []ident.ProteinHit{
		{Accession: "D1", Decoy: true, Score: 0.95},
		{Accession: "T1", Score: 0.1},
	}
	auc := AUC(scored)
	if math.Abs(auc) > 1e-12 {
		t.Errorf("AUC: %v, should be 0 for inverted scores", auc)
	}
}

func TestAUCSingleClass(t *testing.T) {
	onlyTargets := []ident.ProteinHit{{Accession: "T1", Score: 0.9}}
	if auc := AUC(onlyTargets); auc != 0.5 {
		t.Errorf("AUC with only targets: %v, should be 0.5", auc)
	}
	onlyDecoys := []ident.ProteinHit{{Accession: "D1", Decoy: true, Score: 0.9}}
	if auc := AUC(onlyDecoys); auc != 0.5 {
		t.Errorf("AUC with only decoys: %v, should be 0.5", auc)
	}
}

func TestCalibration(t *testing.T) {
	// one occupied bin, mean posterior 0.65, target fraction 0.5
	scored := []ident.ProteinHit{
		{Accession: "T1", Score: 0.65},
		{Accession: "T2", Score: 0.65},
		{Accession: "D1", Decoy: true, Score: 0.65},
		{Accession: "D2", Decoy: true, Score: 0.65},
	}
	cal := Calibration(scored)
	if math.Abs(cal-0.85) > 1e-12 {
		t.Errorf("Calibration: %v, should be 0.85", cal)
	}
}

func TestCalibrationPerfect(t *testing.T) {
	// posterior equals the target fraction in every bin
	scored := []ident.ProteinHit{
		{Accession: "T1", Score: 0.5},
		{Accession: "D1", Decoy: true, Score: 0.5},
	}
	cal := Calibration(scored)
	if math.Abs(cal-1.0) > 1e-12 {
		t.Errorf("Calibration: %v, should be 1", cal)
	}
}

func TestEvaluatorWeighting(t *testing.T) {
	scored := []ident.ProteinHit{
		{Accession: "T1", Score: 0.95},
		{Accession: "D1", Decoy: true, Score: 0.1},
	}
	auc := AUC(scored)
	cal := Calibration(scored)

	for _, w := range []float64{0.0, 0.2, 1.0} {
		got := Evaluator(w)(scored)
		want := w*auc + (1-w)*cal
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Evaluator(%v): %v, should be %v", w, got, want)
		}
	}

	if got := Evaluator(0.2)(nil); got != 0 {
		t.Errorf("Evaluator on empty list: %v, should be 0", got)
	}
}
