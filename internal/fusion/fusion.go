// v2
// internal/fusion/fusion.go
package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/nksrentas/ecotrace/internal/factor"
)

// PairClass grades the agreement between two sources.
type PairClass string

const (
	ClassMatch     PairClass = "match"
	ClassClose     PairClass = "close"
	ClassDivergent PairClass = "divergent"
	ClassFailed    PairClass = "failed"
)

// rank orders classes worst-last for comparisons.
func (c PairClass) rank() int {
	switch c {
	case ClassMatch:
		return 0
	case ClassClose:
		return 1
	case ClassDivergent:
		return 2
	default:
		return 3
	}
}

// Worse reports whether c is a worse agreement grade than other.
func (c PairClass) Worse(other PairClass) bool { return c.rank() > other.rank() }

// Confidence is the categorical summary attached to every fused estimate.
type Confidence string

const (
	Low      Confidence = "low"
	Medium   Confidence = "medium"
	High     Confidence = "high"
	VeryHigh Confidence = "very_high"
)

// Thresholds holds the deviation cut-offs for pair classification. They are
// configuration, not constants: operators tune them per deployment.
type Thresholds struct {
	Match     float64 // below: match
	Close     float64 // below: close
	Divergent float64 // below: divergent; at or above: failed
}

func DefaultThresholds() Thresholds {
	return Thresholds{Match: 0.05, Close: 0.15, Divergent: 0.40}
}

// Classify grades a relative deviation against the thresholds.
func (t Thresholds) Classify(deviation float64) PairClass {
	switch {
	case deviation < t.Match:
		return ClassMatch
	case deviation < t.Close:
		return ClassClose
	case deviation < t.Divergent:
		return ClassDivergent
	default:
		return ClassFailed
	}
}

// Deviation computes the relative deviation between two values, normalized
// by the smaller magnitude so that 120 vs 200 reads as 67%, not 50%.
func Deviation(a, b float64) float64 {
	lo := math.Min(math.Abs(a), math.Abs(b))
	if lo == 0 {
		if a == b {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(a-b) / lo
}

// Pair records one cross-source comparison.
type Pair struct {
	A         string    `json:"a"`
	B         string    `json:"b"`
	Deviation float64   `json:"deviation"`
	Class     PairClass `json:"class"`
}

// Assessment is the outcome of reconciling 1..N source factors. Derived,
// recomputed on every call; never cached across inputs.
type Assessment struct {
	Valid      bool       `json:"isValid"`
	Fused      float64    `json:"fusedValue"`
	Grade      Confidence `json:"confidence"`
	Score      float64    `json:"score"` // numeric confidence in [0,1]
	WorstClass PairClass  `json:"worstClass,omitempty"`
	Variance   float64    `json:"variance"` // worst pairwise relative deviation
	Pairs      []Pair     `json:"crossReferences,omitempty"`
	Sources    []string   `json:"sources"`
	Warnings   []string   `json:"warnings,omitempty"`
	Errors     []string   `json:"errors,omitempty"`
}

// Reconcile fuses the available factors into one estimate with a confidence
// grade. The fused value is a reliability-weighted average so a
// low-reliability annual table cannot dilute a high-reliability live
// measurement. With zero factors the assessment is invalid and graded Low;
// the caller substitutes the static fallback (availability over strictness).
//
// Confidence lookup, applied top-down:
//
//	0 sources                                        -> low
//	any failed pair                                  -> low
//	any divergent pair                               -> medium at best -> low if mean reliability < 0.6
//	>=2 sources, worst match, mean reliability >=0.9 -> very_high
//	>=2 sources, worst match                         -> high
//	>=2 sources, worst close                         -> medium (high when reliability >=0.9)
//	1 source, reliability >= 0.9                     -> medium
//	1 source                                         -> low
func Reconcile(factors []factor.EmissionFactor, descriptors map[string]factor.SourceDescriptor, th Thresholds) Assessment {
	if len(factors) == 0 {
		return Assessment{
			Valid:    false,
			Grade:    Low,
			Score:    0.2,
			Warnings: []string{"no emission factor sources available; static fallback required"},
			Errors:   []string{"zero sources"},
		}
	}

	var weighted, weightSum, relSum float64
	sources := make([]string, 0, len(factors))
	for _, f := range factors {
		rel := 0.5
		if d, ok := descriptors[f.Source]; ok && d.Reliability > 0 {
			rel = d.Reliability
		}
		weighted += f.Value * rel
		weightSum += rel
		relSum += rel
		sources = append(sources, f.Source)
	}
	fused := weighted / weightSum
	meanRel := relSum / float64(len(factors))

	worst := ClassMatch
	var variance float64
	var pairs []Pair
	for i := 0; i < len(factors); i++ {
		for j := i + 1; j < len(factors); j++ {
			dev := Deviation(factors[i].Value, factors[j].Value)
			cls := th.Classify(dev)
			pairs = append(pairs, Pair{A: factors[i].Source, B: factors[j].Source, Deviation: round4(dev), Class: cls})
			if cls.Worse(worst) {
				worst = cls
			}
			if dev > variance && !math.IsInf(dev, 1) {
				variance = dev
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Deviation < pairs[j].Deviation })

	a := Assessment{
		Valid:      true,
		Fused:      fused,
		WorstClass: worst,
		Variance:   round4(variance),
		Pairs:      pairs,
		Sources:    sources,
	}
	a.Grade = grade(len(factors), worst, meanRel)
	a.Score = score(a.Grade, meanRel)
	for _, p := range pairs {
		if p.Class == ClassDivergent || p.Class == ClassFailed {
			a.Warnings = append(a.Warnings, fmt.Sprintf("sources %s and %s %s: %.1f%% deviation", p.A, p.B, p.Class, p.Deviation*100))
		}
	}
	return a
}

func grade(n int, worst PairClass, meanRel float64) Confidence {
	if n == 1 {
		if meanRel >= 0.9 {
			return Medium
		}
		return Low
	}
	switch worst {
	case ClassMatch:
		if meanRel >= 0.9 {
			return VeryHigh
		}
		return High
	case ClassClose:
		if meanRel >= 0.9 {
			return High
		}
		return Medium
	case ClassDivergent:
		if meanRel >= 0.6 {
			return Medium
		}
		return Low
	default:
		return Low
	}
}

// score maps the grade to a numeric confidence, nudged by reliability so two
// estimates with the same grade still order sensibly.
func score(g Confidence, meanRel float64) float64 {
	base := map[Confidence]float64{Low: 0.3, Medium: 0.55, High: 0.75, VeryHigh: 0.9}[g]
	s := base + 0.1*meanRel
	if s > 1 {
		s = 1
	}
	return round4(s)
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
