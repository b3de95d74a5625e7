package bp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPMFProb(t *testing.T) {
	m := PMF{First: 1, P: []float64{0.25, 0.75}}
	if m.Prob(1) != 0.25 {
		t.Errorf("Prob(1): %v, should be 0.25", m.Prob(1))
	}
	if m.Prob(2) != 0.75 {
		t.Errorf("Prob(2): %v, should be 0.75", m.Prob(2))
	}
	if m.Prob(0) != 0 || m.Prob(3) != 0 {
		t.Errorf("Prob outside support should be 0")
	}
	if m.LastSupport() != 2 {
		t.Errorf("LastSupport: %d, should be 2", m.LastSupport())
	}
}

func TestPMFNormalize(t *testing.T) {
	m := PMF{First: 0, P: []float64{1, 3}}.Normalize()
	want := PMF{First: 0, P: []float64{0.25, 0.75}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}

	// vanishing mass falls back to uniform instead of dividing by zero
	z := PMF{First: 0, P: []float64{0, 0}}.Normalize()
	want = PMF{First: 0, P: []float64{0.5, 0.5}}
	if diff := cmp.Diff(want, z); diff != "" {
		t.Errorf("Normalize zero mass mismatch (-want +got):\n%s", diff)
	}
}

func TestPMFNormalizeNaNPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Normalize with NaN should panic")
		}
	}()
	PMF{First: 0, P: []float64{math.NaN(), 1}}.Normalize()
}

func TestPMFMul(t *testing.T) {
	a := PMF{First: 0, P: []float64{0.5, 0.5}}
	b := PMF{First: 0, P: []float64{0.2, 0.8}}
	got := a.Mul(b)
	want := PMF{First: 0, P: []float64{0.1, 0.4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Mul mismatch (-want +got):\n%s", diff)
	}

	// intersection of different supports
	c := PMF{First: 1, P: []float64{1, 1}} // support {1,2}
	got = a.Mul(c)
	if got.First != 1 || len(got.P) != 1 {
		t.Errorf("Mul support: got First=%d len=%d, should be First=1 len=1",
			got.First, len(got.P))
	}
	if got.Prob(1) != 0.5 {
		t.Errorf("Mul value at 1: %v, should be 0.5", got.Prob(1))
	}
}

func TestPMFL1(t *testing.T) {
	a := Binary(0.2)
	b := Binary(0.5)
	if d := a.L1(b); math.Abs(d-0.6) > 1e-12 {
		t.Errorf("L1: %v, should be 0.6", d)
	}
	if d := a.L1(a.Clone()); d != 0 {
		t.Errorf("L1 to clone: %v, should be 0", d)
	}
	c := PMF{First: 1, P: []float64{1}}
	if d := a.L1(c); !math.IsInf(d, 1) {
		t.Errorf("L1 over mismatched support: %v, should be +Inf", d)
	}
}
