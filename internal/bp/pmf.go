// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

// Package bp implements sum-product loopy belief propagation on small
// discrete factor graphs: probability mass functions, the factor kinds of
// the protein inference model, and schedulers that drive message updates
// to convergence.
package bp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PMF is a probability table over a small contiguous integer support
// [First, First+len(P)-1]. Messages and posteriors are PMFs.
type PMF struct {
	First int
	P     []float64
}

// Uniform returns an uninformative PMF over [first, first+n-1].
func Uniform(first, n int) PMF {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1.0 / float64(n)
	}
	return PMF{First: first, P: p}
}

// Binary returns a PMF over {0,1} with P(1)=p1.
func Binary(p1 float64) PMF {
	return PMF{First: 0, P: []float64{1 - p1, p1}}
}

// Clone returns a deep copy.
func (m PMF) Clone() PMF {
	p := make([]float64, len(m.P))
	copy(p, m.P)
	return PMF{First: m.First, P: p}
}

// LastSupport returns the largest integer of the support range.
func (m PMF) LastSupport() int { return m.First + len(m.P) - 1 }

// Prob returns the probability mass at integer i, 0 outside the support.
func (m PMF) Prob(i int) float64 {
	if i < m.First || i > m.LastSupport() {
		return 0
	}
	return m.P[i-m.First]
}

// Normalize scales the table to sum 1. Vanishing mass is guarded by
// falling back to a uniform table; NaN is a logic bug and panics.
func (m PMF) Normalize() PMF {
	m.assertValid()
	sum := floats.Sum(m.P)
	if sum <= 0 || math.IsInf(sum, 0) {
		for i := range m.P {
			m.P[i] = 1.0 / float64(len(m.P))
		}
		return m
	}
	floats.Scale(1/sum, m.P)
	return m
}

// L1 returns the L1 distance to another PMF over the same support. This is
// the residual used for message priorities and convergence detection.
func (m PMF) L1(o PMF) float64 {
	if m.First != o.First || len(m.P) != len(o.P) {
		// Support mismatch means the messages describe different
		// variables; treat as maximally distant.
		return math.Inf(1)
	}
	return floats.Distance(m.P, o.P, 1)
}

// Mul multiplies two PMFs pointwise over the intersection of their
// supports, without normalizing.
func (m PMF) Mul(o PMF) PMF {
	first := max(m.First, o.First)
	last := min(m.LastSupport(), o.LastSupport())
	if last < first {
		panic("bp: PMF product over disjoint supports")
	}
	p := make([]float64, last-first+1)
	for i := first; i <= last; i++ {
		p[i-first] = m.Prob(i) * o.Prob(i)
	}
	return PMF{First: first, P: p}
}

func (m PMF) assertValid() {
	for _, v := range m.P {
		if math.IsNaN(v) {
			panic(fmt.Sprintf("bp: poisoned PMF %v", m.P))
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
