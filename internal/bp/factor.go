package bp

import "math"

// Factor is a local probability function over an ordered tuple of
// variables. Factors are immutable once constructed; a new parameter
// triple requires rebuilding the factor graph.
//
// Message computes the sum-product message from the factor to the
// variable at position `to` of Vars(), given the incoming
// variable-to-factor messages `in` (parallel to Vars(); in[to] is
// ignored). Implementations are analytic, so no factor ever materializes
// an exponential table.
type Factor interface {
	Vars() []int
	Message(to int, in []PMF) PMF
}

// PriorFactor is the unary protein-prior factor: P(present) = gamma.
type PriorFactor struct {
	Var   int
	Gamma float64
}

func (f *PriorFactor) Vars() []int { return []int{f.Var} }

func (f *PriorFactor) Message(to int, in []PMF) PMF {
	return Binary(f.Gamma)
}

// EvidenceFactor is the unary peptide-evidence factor on a PSM variable,
// weighted by the PSM's identification score.
type EvidenceFactor struct {
	Var   int
	Score float64
}

func (f *EvidenceFactor) Vars() []int { return []int{f.Var} }

func (f *EvidenceFactor) Message(to int, in []PMF) PMF {
	s := f.Score
	if s < 0 {
		s = 0
	} else if s > 1 {
		s = 1
	}
	return Binary(s)
}

// AdderFactor is the probabilistic-adder (noisy-OR) factor feeding a
// group or peptide variable: the child is active iff at least one of its
// upstream parents is active. Messages are computed in O(parents) by
// exploiting the OR structure.
type AdderFactor struct {
	Parents []int
	Child   int

	vars []int
}

// NewAdderFactor builds an adder over the given parents. Parents must be
// non-empty; the child variable is appended as the last tuple position.
func NewAdderFactor(parents []int, child int) *AdderFactor {
	if len(parents) == 0 {
		panic("bp: adder factor without parents")
	}
	vars := make([]int, 0, len(parents)+1)
	vars = append(vars, parents...)
	vars = append(vars, child)
	return &AdderFactor{Parents: parents, Child: child, vars: vars}
}

func (f *AdderFactor) Vars() []int { return f.vars }

func (f *AdderFactor) Message(to int, in []PMF) PMF {
	childPos := len(f.vars) - 1
	if to == childPos {
		// mu(child=0) = prod_i m_i(0), mu(child=1) = 1 - that
		allOff := 1.0
		for i := 0; i < childPos; i++ {
			allOff *= norm0(in[i])
		}
		return PMF{First: 0, P: []float64{allOff, 1 - allOff}}.Normalize()
	}
	// Message to parent `to`: marginalize the OR over the child and the
	// other parents. Incoming messages are kept normalized by the engine.
	othersOff := 1.0
	for i := 0; i < childPos; i++ {
		if i == to {
			continue
		}
		othersOff *= norm0(in[i])
	}
	c0, c1 := in[childPos].Prob(0), in[childPos].Prob(1)
	// parent=1 forces child=1; parent=0 leaves child = OR(others)
	on := c1
	off := c0*othersOff + c1*(1-othersOff)
	return PMF{First: 0, P: []float64{off, on}}.Normalize()
}

// norm0 returns the probability of state 0 under the normalized message.
func norm0(m PMF) float64 {
	sum := m.Prob(0) + m.Prob(1)
	if sum <= 0 {
		return 0.5
	}
	return m.Prob(0) / sum
}

// SumEvidenceFactor links a PSM variable to its upstream peptide-level
// variable. It aggregates the number of peptide-evidence edges of the
// PSM: a present parent gives the PSM `count` independent chances of true
// emission (probability alpha each) on top of the spurious-emission
// probability beta; an absent parent leaves only spurious emission. Alpha
// and beta encode the two competing generative hypotheses.
type SumEvidenceFactor struct {
	Parent int
	PSM    int
	Count  int
	Alpha  float64
	Beta   float64

	vars []int
	// conditional table t[parent][psm]
	t [2][2]float64
}

// NewSumEvidenceFactor builds the factor for a PSM with the given
// evidence count.
func NewSumEvidenceFactor(parent, psm, count int, alpha, beta float64) *SumEvidenceFactor {
	f := &SumEvidenceFactor{
		Parent: parent, PSM: psm, Count: count, Alpha: alpha, Beta: beta,
		vars: []int{parent, psm},
	}
	if f.Count < 1 {
		f.Count = 1
	}
	silent := math.Pow(1-alpha, float64(f.Count)) * (1 - beta)
	f.t[0][0] = 1 - beta
	f.t[0][1] = beta
	f.t[1][0] = silent
	f.t[1][1] = 1 - silent
	return f
}

func (f *SumEvidenceFactor) Vars() []int { return f.vars }

func (f *SumEvidenceFactor) Message(to int, in []PMF) PMF {
	if to == 1 {
		mp := in[0]
		return PMF{First: 0, P: []float64{
			f.t[0][0]*mp.Prob(0) + f.t[1][0]*mp.Prob(1),
			f.t[0][1]*mp.Prob(0) + f.t[1][1]*mp.Prob(1),
		}}.Normalize()
	}
	me := in[1]
	return PMF{First: 0, P: []float64{
		f.t[0][0]*me.Prob(0) + f.t[0][1]*me.Prob(1),
		f.t[1][0]*me.Prob(0) + f.t[1][1]*me.Prob(1),
	}}.Normalize()
}
