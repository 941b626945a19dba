package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/nilmpatch/pkg/utils"
)

const (
	// DefaultTolerance is how far from 100 a breakdown may sum and still be
	// treated as already correct.
	DefaultTolerance = 0.5

	// DefaultEfficiencyCap is the ceiling for every efficiency-like figure.
	DefaultEfficiencyCap = 100.0
)

// Corrector rebalances the percentage breakdown of a per-house report and
// caps every rendering of the detection efficiency.
type Corrector struct {
	Tolerance float64
	Cap       float64
}

// DefaultCorrector returns a Corrector with the standard policy.
func DefaultCorrector() Corrector {
	return Corrector{Tolerance: DefaultTolerance, Cap: DefaultEfficiencyCap}
}

// Correct applies DefaultCorrector to doc.
func Correct(doc string) (string, error) {
	return DefaultCorrector().Correct(doc)
}

// Correct returns doc with the breakdown, efficiency equation, hero card,
// narrative sentence and donut charts made consistent. A document without
// the breakdown formula, or whose breakdown already sums to 100 within
// Tolerance, is returned unchanged.
func (c Corrector) Correct(doc string) (string, error) {
	frag := find(breakdownPattern, doc)
	if !frag.Found() {
		return doc, nil
	}
	b, err := breakdownOf(frag)
	if err != nil {
		return "", err
	}
	if b.Consistent(c.Tolerance) {
		return doc, nil
	}

	doc = strings.ReplaceAll(doc, unmatchedLabel(b.Unmatched), unmatchedLabel(b.Residual()))

	steps := []func(string) (string, error){
		func(d string) (string, error) { return c.fixEquation(d, b.Explained) },
		c.fixHero,
		c.fixNarrative,
		c.fixDonutValues,
		c.fixDonutText,
	}
	for _, step := range steps {
		if doc, err = step(doc); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func unmatchedLabel(pct float64) string {
	return fmt.Sprintf("Unmatched (%s)", utils.FormatPct(pct))
}

// fixEquation recomputes C in "Efficiency = A% / B% = C%" from the
// formula's Explained share. Only the result inside the matched span is
// rewritten.
func (c Corrector) fixEquation(doc string, explained float64) (string, error) {
	frag := find(equationPattern, doc)
	if !frag.Found() {
		return doc, nil
	}
	targetable, err := frag.Float(2)
	if err != nil {
		return "", fmt.Errorf("efficiency equation: %w", err)
	}
	old, err := frag.Float(3)
	if err != nil {
		return "", fmt.Errorf("efficiency equation: %w", err)
	}

	eff := 0.0
	if targetable > 0 {
		eff = utils.Clamp(utils.Round1(explained/targetable*100), c.Cap)
	}

	fixed := strings.ReplaceAll(frag.Text,
		utils.FormatPct(old)+"</strong>",
		utils.FormatPct(eff)+"</strong>")
	return frag.Splice(doc, fixed), nil
}

func (c Corrector) fixHero(doc string) (string, error) {
	frag := find(heroPattern, doc)
	if !frag.Found() {
		return doc, nil
	}
	v, err := frag.Float(2)
	if err != nil {
		return "", fmt.Errorf("hero metric: %w", err)
	}
	if v <= c.Cap {
		return doc, nil
	}
	return frag.Splice(doc, frag.Groups[1]+utils.FormatDecimal1(c.Cap)+frag.Groups[3]), nil
}

func (c Corrector) fixNarrative(doc string) (string, error) {
	frag := find(narrativePattern, doc)
	if !frag.Found() {
		return doc, nil
	}
	v, err := frag.Float(2)
	if err != nil {
		return "", fmt.Errorf("narrative sentence: %w", err)
	}
	if v <= c.Cap {
		return doc, nil
	}
	return frag.Splice(doc, frag.Groups[1]+utils.FormatDecimal1(c.Cap)+frag.Groups[3]), nil
}

// fixDonutValues rewrites every "values": [V, R] pair with V above the cap
// to [cap, 0]. Each per-phase chart is handled independently.
func (c Corrector) fixDonutValues(doc string) (string, error) {
	return rewriteAll(donutValuesPattern, doc, func(f Fragment) (string, error) {
		v, err := f.Float(1)
		if err != nil {
			return "", fmt.Errorf("donut values: %w", err)
		}
		if v <= c.Cap {
			return f.Text, nil
		}
		return fmt.Sprintf(`"values": [%s, 0]`, utils.FormatDecimal1(c.Cap)), nil
	})
}

func (c Corrector) fixDonutText(doc string) (string, error) {
	return rewriteAll(donutTextPattern, doc, func(f Fragment) (string, error) {
		n, err := f.Int(2)
		if err != nil {
			return "", fmt.Errorf("donut annotation: %w", err)
		}
		if float64(n) <= c.Cap {
			return f.Text, nil
		}
		return f.Groups[1] + utils.FormatWhole(c.Cap) + f.Groups[3], nil
	})
}
