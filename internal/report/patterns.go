package report

import (
	"fmt"
	"math"
	"regexp"

	"github.com/seenimoa/nilmpatch/pkg/utils"
)

// Markup emitted by the dynamic threshold report generator.
var (
	// Explained (X%) + Background (Y%) + Unmatched (Z%) = 100%
	breakdownPattern = regexp.MustCompile(
		`<span style="color:[^"]*;">Explained \(([\d.]+)%\)</span> \+\s*` +
			`<span style="color:[^"]*;">Background \(([\d.]+)%\)</span> \+\s*` +
			`<span style="color:[^"]*;">Unmatched \(([\d.]+)%\)</span>\s*= 100%`)

	// Efficiency = A% / B% = <strong>C%</strong>
	equationPattern = regexp.MustCompile(
		`<strong>Efficiency</strong> = ([\d.]+)% / ([\d.]+)% = ` +
			`<strong style="color:[^"]*;">([\d.]+)%</strong>`)

	heroPattern = regexp.MustCompile(
		`(<div style="font-size: 2\.8em; font-weight: bold; color: [^"]*;">)` +
			`([\d.]+)(%</div>\s*<div[^>]*>Detection Efficiency</div>)`)

	narrativePattern = regexp.MustCompile(
		`(Of non-background power \([\d.]+%\), <strong>)([\d.]+)` +
			`(%</strong> matched to devices\.)`)

	donutValuesPattern = regexp.MustCompile(`"values": \[([\d.]+), (-?[\d.]+)\]`)

	donutTextPattern = regexp.MustCompile(`("text": ")(\d+)(%")`)
)

// EfficiencyMarker is present in every per-house report that carries the
// breakdown formula.
const EfficiencyMarker = "Detection Efficiency"

// Breakdown is the Explained / Background / Unmatched percentage triple.
type Breakdown struct {
	Explained  float64
	Background float64
	Unmatched  float64
}

// Total is the sum of the three shares.
func (b Breakdown) Total() float64 {
	return b.Explained + b.Background + b.Unmatched
}

// Consistent reports whether the shares sum to 100 within tol.
func (b Breakdown) Consistent(tol float64) bool {
	return math.Abs(b.Total()-100.0) < tol
}

// Residual is the Unmatched share that makes the triple sum to 100,
// rounded to one decimal and floored at zero.
func (b Breakdown) Residual() float64 {
	u := utils.Round1(100.0 - b.Explained - b.Background)
	if u <= 0 {
		return 0
	}
	return u
}

// Targetable is the non-background share.
func (b Breakdown) Targetable() float64 {
	return 100.0 - b.Background
}

func (b Breakdown) String() string {
	return fmt.Sprintf("Explained %s + Background %s + Unmatched %s",
		utils.FormatPct(b.Explained), utils.FormatPct(b.Background), utils.FormatPct(b.Unmatched))
}

// FindBreakdown reads the breakdown formula. ok is false when the document
// has no formula.
func FindBreakdown(doc string) (b Breakdown, ok bool, err error) {
	frag := find(breakdownPattern, doc)
	if !frag.Found() {
		return Breakdown{}, false, nil
	}
	b, err = breakdownOf(frag)
	if err != nil {
		return Breakdown{}, true, err
	}
	return b, true, nil
}

func breakdownOf(frag Fragment) (Breakdown, error) {
	var vals [3]float64
	for i := range vals {
		v, err := frag.Float(i + 1)
		if err != nil {
			return Breakdown{}, fmt.Errorf("breakdown formula: %w", err)
		}
		vals[i] = v
	}
	return Breakdown{Explained: vals[0], Background: vals[1], Unmatched: vals[2]}, nil
}

// Equation is the "Efficiency = A% / B% = C%" line.
type Equation struct {
	Explained  float64
	Targetable float64
	Result     float64
}

// FindEquation reads the efficiency equation.
func FindEquation(doc string) (Equation, bool, error) {
	frag := find(equationPattern, doc)
	if !frag.Found() {
		return Equation{}, false, nil
	}
	var vals [3]float64
	for i := range vals {
		v, err := frag.Float(i + 1)
		if err != nil {
			return Equation{}, true, fmt.Errorf("efficiency equation: %w", err)
		}
		vals[i] = v
	}
	return Equation{Explained: vals[0], Targetable: vals[1], Result: vals[2]}, true, nil
}

// FindNarrativeEfficiency reads Q from "Of non-background power (P%),
// <strong>Q%</strong> matched to devices."
func FindNarrativeEfficiency(doc string) (float64, bool, error) {
	frag := find(narrativePattern, doc)
	if !frag.Found() {
		return 0, false, nil
	}
	v, err := frag.Float(2)
	if err != nil {
		return 0, true, fmt.Errorf("narrative sentence: %w", err)
	}
	return v, true, nil
}

// DonutValues returns the first element of every "values": [V, R] pair.
func DonutValues(doc string) ([]float64, error) {
	frags := findAll(donutValuesPattern, doc)
	out := make([]float64, 0, len(frags))
	for _, f := range frags {
		v, err := f.Float(1)
		if err != nil {
			return nil, fmt.Errorf("donut values: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DonutAnnotations returns N from every "text": "N%" annotation.
func DonutAnnotations(doc string) ([]int, error) {
	frags := findAll(donutTextPattern, doc)
	out := make([]int, 0, len(frags))
	for _, f := range frags {
		n, err := f.Int(2)
		if err != nil {
			return nil, fmt.Errorf("donut annotation: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
