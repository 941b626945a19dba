// Package audit checks report directories against the post-patch
// invariants without modifying anything.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/nilmpatch/internal/report"
	"github.com/seenimoa/nilmpatch/internal/walker"
	"github.com/seenimoa/nilmpatch/pkg/utils"
)

// titleStem identifies titles written by the dynamic threshold generator.
const titleStem = "Dynamic Threshold"

// Finding is the audit result for one report.
type Finding struct {
	Path    string
	Name    string
	Kind    report.Kind
	Title   string
	Heading string
	Size    int64
	Issues  []string
}

// OK reports whether the report satisfies every invariant.
func (f Finding) OK() bool {
	return len(f.Issues) == 0
}

func (f *Finding) addf(format string, args ...any) {
	f.Issues = append(f.Issues, fmt.Sprintf(format, args...))
}

// Auditor checks reports against a patch policy.
type Auditor struct {
	Tolerance      float64
	Cap            float64
	Relabeler      report.Relabeler
	AggregateFiles []string
	Workers        int
}

// New returns an Auditor using the standard policy.
func New() *Auditor {
	return &Auditor{
		Tolerance:      report.DefaultTolerance,
		Cap:            report.DefaultEfficiencyCap,
		Relabeler:      report.DefaultRelabeler(),
		AggregateFiles: walker.DefaultAggregateFiles,
		Workers:        4,
	}
}

// Directory audits every report in dir. Files are read concurrently; the
// findings keep the walker's order (sorted per-house reports, then
// aggregates).
func (a *Auditor) Directory(ctx context.Context, dir string) ([]Finding, error) {
	perHouse, aggregates, err := walker.Targets(dir, a.AggregateFiles)
	if err != nil {
		return nil, err
	}
	paths := append(perHouse, aggregates...)
	findings := make([]Finding, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			f, err := a.Document(filepath.Base(path), string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			f.Path = path
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return findings, nil
}

// Document audits a single report. name is the report's filename and
// decides whether per-house checks apply.
func (a *Auditor) Document(name, doc string) (Finding, error) {
	f := Finding{Name: name, Kind: report.KindOf(name), Size: int64(len(doc))}

	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return f, fmt.Errorf("parse html: %w", err)
	}
	f.Title = strings.TrimSpace(d.Find("title").First().Text())
	f.Heading = strings.TrimSpace(d.Find("h1").First().Text())

	for _, label := range []string{f.Title, f.Heading} {
		if strings.HasPrefix(label, titleStem) && !a.Relabeler.Labeled(label) {
			f.addf("not relabeled: %q", label)
		}
	}

	if f.Kind == report.KindPerHouse {
		a.checkFigures(&f, d, doc)
	}
	return f, nil
}

// checkFigures flags a breakdown that does not sum to 100 and any
// efficiency rendering above the cap. Malformed numbers are reported as
// issues rather than errors so one bad file does not hide the rest.
func (a *Auditor) checkFigures(f *Finding, d *goquery.Document, doc string) {
	malformed := func(err error) bool {
		if err == nil {
			return false
		}
		if errors.Is(err, report.ErrMalformedNumber) {
			f.addf("%v", err)
		}
		return true
	}

	b, ok, err := report.FindBreakdown(doc)
	if !malformed(err) && ok && !b.Consistent(a.Tolerance) {
		f.addf("breakdown sums to %s (%s)", utils.FormatPct(b.Total()), b)
	}

	eq, ok, err := report.FindEquation(doc)
	if !malformed(err) && ok && eq.Result > a.Cap {
		f.addf("efficiency equation result %s exceeds %s", utils.FormatPct(eq.Result), utils.FormatPct(a.Cap))
	}

	d.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == report.EfficiencyMarker
	}).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Prev().Text())
		if text == "" {
			return
		}
		v, err := utils.ParseDecimal(text)
		if err != nil {
			f.addf("hero metric %q: %v", text, report.ErrMalformedNumber)
			return
		}
		if v > a.Cap {
			f.addf("hero metric %s exceeds %s", utils.FormatPct(v), utils.FormatPct(a.Cap))
		}
	})

	q, ok, err := report.FindNarrativeEfficiency(doc)
	if !malformed(err) && ok && q > a.Cap {
		f.addf("narrative efficiency %s exceeds %s", utils.FormatPct(q), utils.FormatPct(a.Cap))
	}

	values, err := report.DonutValues(doc)
	if !malformed(err) {
		for _, v := range values {
			if v > a.Cap {
				f.addf("donut value %s exceeds %s", utils.FormatDecimal1(v), utils.FormatDecimal1(a.Cap))
			}
		}
	}

	texts, err := report.DonutAnnotations(doc)
	if !malformed(err) {
		for _, n := range texts {
			if float64(n) > a.Cap {
				f.addf("donut annotation %d%% exceeds %s", n, utils.FormatPct(a.Cap))
			}
		}
	}
}

// Totals summarizes a set of findings.
type Totals struct {
	Files  int
	Bytes  int64
	Issues int
	Failed int
}

// Summarize tallies findings.
func Summarize(findings []Finding) Totals {
	var t Totals
	for _, f := range findings {
		t.Files++
		t.Bytes += f.Size
		t.Issues += len(f.Issues)
		if !f.OK() {
			t.Failed++
		}
	}
	return t
}
