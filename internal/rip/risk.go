package rip

import (
	"fmt"
	"math"

	pkgerrors "beacon/pkg/errors"
)

// Assessment is the per-record risk derivation. It is ephemeral: computed,
// charged against the ledger, and discarded.
type Assessment struct {
	AlleleFrequency       float64
	PopulationSize        int
	DisclosureProbability float64 // Di = (1-af)^(2N)
	Cost                  float64 // ri = -log10(1 - Di)
}

// Assess derives the disclosure cost of revealing a variant with the given
// allele frequency in a population of n individuals.
//
// 1-Di is computed in log space as -expm1(2N*log1p(-af)). For a rare allele
// the direct pow would give Di rounded to 1 and 1-Di would cancel to zero;
// expm1/log1p keep the small complement exact for N up to the millions.
func Assess(alleleFrequency float64, n int) (Assessment, error) {
	if math.IsNaN(alleleFrequency) || alleleFrequency <= 0 || alleleFrequency >= 1 {
		return Assessment{}, pkgerrors.New(pkgerrors.CodeBadRequest,
			fmt.Sprintf("allele frequency must be in (0,1), got %v", alleleFrequency))
	}
	if n < 1 {
		return Assessment{}, pkgerrors.New(pkgerrors.CodeBadRequest,
			fmt.Sprintf("population size must be >= 1, got %d", n))
	}

	// ln(Di) = ln((1-af)^(2N)), always negative.
	exponent := 2 * float64(n) * math.Log1p(-alleleFrequency)
	oneMinusDi := -math.Expm1(exponent)

	a := Assessment{
		AlleleFrequency:       alleleFrequency,
		PopulationSize:        n,
		DisclosureProbability: math.Exp(exponent),
		Cost:                  -math.Log10(oneMinusDi),
	}

	if math.IsInf(a.Cost, 0) || math.IsNaN(a.Cost) {
		// Di has reached 1 beyond double precision; the disclosure is a
		// certainty and no finite budget can afford it.
		return Assessment{}, pkgerrors.New(pkgerrors.CodeBadRequest,
			"disclosure probability saturated, cost is not representable")
	}
	return a, nil
}

// Cost is the Risk Model contract: record frequency + population size in,
// disclosure cost out. Deterministic, no side effects. The cost shares its
// log base with the initial budget (-log10 of the configured p-value) so the
// two remain directly comparable.
func Cost(alleleFrequency float64, n int) (float64, error) {
	a, err := Assess(alleleFrequency, n)
	if err != nil {
		return 0, err
	}
	return a.Cost, nil
}
