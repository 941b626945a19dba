// Package walker applies the report corrections to every report in a
// directory and writes the results back in place.
package walker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/seenimoa/nilmpatch/internal/report"
)

// PerHouseGlob matches per-house report filenames.
const PerHouseGlob = "dynamic_report_*.html"

// DefaultAggregateFiles are the well-known aggregate report names.
var DefaultAggregateFiles = []string{"report.html", "nan_comparison.html"}

// Options controls a Walker.
type Options struct {
	DryRun         bool
	Out            io.Writer // status lines; defaults to os.Stdout
	Corrector      report.Corrector
	Relabeler      report.Relabeler
	AggregateFiles []string
	Logger         zerolog.Logger
}

// Change records one document that was (or, under dry-run, would be)
// rewritten.
type Change struct {
	Path    string
	Name    string
	Kind    report.Kind
	HouseID string // "?" for per-house names without digits
	Size    int    // bytes of the corrected document
}

// Summary is the outcome of processing one directory.
type Summary struct {
	Directory string
	DryRun    bool
	Changes   []Change
}

// Modified is the number of changed documents.
func (s Summary) Modified() int {
	return len(s.Changes)
}

// Walker processes report directories sequentially.
type Walker struct {
	opts Options
}

// New creates a Walker, filling unset options with the standard policy.
func New(opts Options) *Walker {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Corrector == (report.Corrector{}) {
		opts.Corrector = report.DefaultCorrector()
	}
	if opts.Relabeler.Prefix == "" {
		opts.Relabeler = report.DefaultRelabeler()
	}
	if opts.AggregateFiles == nil {
		opts.AggregateFiles = DefaultAggregateFiles
	}
	return &Walker{opts: opts}
}

// Targets lists the per-house reports (sorted) and the aggregate reports
// present in dir.
func Targets(dir string, aggregateFiles []string) (perHouse, aggregates []string, err error) {
	perHouse, err = filepath.Glob(filepath.Join(dir, PerHouseGlob))
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(perHouse)

	for _, name := range aggregateFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		aggregates = append(aggregates, path)
	}
	return perHouse, aggregates, nil
}

// Process corrects every report in dir. Per-house reports get the formula
// correction (when they carry the efficiency marker) and the title relabel;
// aggregate reports get the relabel only. Under DryRun nothing is written
// but changes are still reported and counted.
func (w *Walker) Process(dir string) (Summary, error) {
	sum := Summary{Directory: dir, DryRun: w.opts.DryRun}

	perHouse, aggregates, err := Targets(dir, w.opts.AggregateFiles)
	if err != nil {
		return sum, err
	}
	w.opts.Logger.Debug().
		Str("dir", dir).
		Int("per_house", len(perHouse)).
		Int("aggregate", len(aggregates)).
		Msg("scanning report directory")

	for _, path := range perHouse {
		change, changed, err := w.processHouse(path)
		if err != nil {
			return sum, err
		}
		if changed {
			sum.Changes = append(sum.Changes, change)
		}
	}

	for _, path := range aggregates {
		change, changed, err := w.processAggregate(path)
		if err != nil {
			return sum, err
		}
		if changed {
			sum.Changes = append(sum.Changes, change)
		}
	}

	if sum.Modified() == 0 {
		fmt.Fprintf(w.opts.Out, "  No changes needed in %s\n", dir)
	}
	return sum, nil
}

func (w *Walker) processHouse(path string) (Change, bool, error) {
	name := filepath.Base(path)
	original, err := os.ReadFile(path)
	if err != nil {
		return Change{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	patched := string(original)
	if strings.Contains(patched, report.EfficiencyMarker) {
		patched, err = w.opts.Corrector.Correct(patched)
		if err != nil {
			return Change{}, false, fmt.Errorf("%s: %w", path, err)
		}
	}
	patched = w.opts.Relabeler.Relabel(patched, name)

	if patched == string(original) {
		w.opts.Logger.Debug().Str("file", name).Msg("already patched")
		return Change{}, false, nil
	}

	id, ok := report.HouseID(name)
	if !ok {
		id = "?"
	}
	change := Change{Path: path, Name: name, Kind: report.KindPerHouse, HouseID: id, Size: len(patched)}

	if w.opts.DryRun {
		fmt.Fprintf(w.opts.Out, "  [DRY RUN] house %s: would patch\n", id)
		return change, true, nil
	}
	if err := w.write(path, patched); err != nil {
		return Change{}, false, err
	}
	fmt.Fprintf(w.opts.Out, "  house %s: patched\n", id)
	return change, true, nil
}

func (w *Walker) processAggregate(path string) (Change, bool, error) {
	name := filepath.Base(path)
	original, err := os.ReadFile(path)
	if err != nil {
		return Change{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	patched := w.opts.Relabeler.Relabel(string(original), name)
	if patched == string(original) {
		return Change{}, false, nil
	}

	change := Change{Path: path, Name: name, Kind: report.KindOf(name), Size: len(patched)}

	if w.opts.DryRun {
		fmt.Fprintf(w.opts.Out, "  [DRY RUN] %s: would rename title\n", name)
		return change, true, nil
	}
	if err := w.write(path, patched); err != nil {
		return Change{}, false, err
	}
	fmt.Fprintf(w.opts.Out, "  %s: renamed title\n", name)
	return change, true, nil
}

// write overwrites path, keeping its permission bits.
func (w *Walker) write(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.opts.Logger.Debug().
		Str("file", path).
		Str("size", humanize.Bytes(uint64(len(content)))).
		Msg("wrote report")
	return nil
}
