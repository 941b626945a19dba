package report

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTitlePrefix marks reports patched from a NaN-affected run.
const DefaultTitlePrefix = "Dynamic Threshold NaN Filled"

var houseIDPattern = regexp.MustCompile(`dynamic_report_(\d+)`)

// Kind distinguishes per-house reports from aggregate ones.
type Kind string

const (
	KindPerHouse  Kind = "house"
	KindAggregate Kind = "aggregate"
)

// HouseID extracts the numeric house identifier from a report filename
// such as "dynamic_report_7.html".
func HouseID(filename string) (string, bool) {
	m := houseIDPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// KindOf classifies a report by its filename.
func KindOf(filename string) Kind {
	if _, ok := HouseID(filename); ok {
		return KindPerHouse
	}
	return KindAggregate
}

// Relabeler rewrites report titles and headings to carry Prefix.
type Relabeler struct {
	Prefix string
}

// DefaultRelabeler returns a Relabeler using DefaultTitlePrefix.
func DefaultRelabeler() Relabeler {
	return Relabeler{Prefix: DefaultTitlePrefix}
}

// Relabel applies DefaultRelabeler to doc.
func Relabel(doc, filename string) string {
	return DefaultRelabeler().Relabel(doc, filename)
}

// Relabel replaces the generator's fixed <title> and <h1> strings. Per-house
// documents only have their own house's strings replaced; aggregate strings
// are replaced only when filename carries no house id.
func (r Relabeler) Relabel(doc, filename string) string {
	if id, ok := HouseID(filename); ok {
		label := fmt.Sprintf("%s - House %s", r.Prefix, id)
		return strings.NewReplacer(
			fmt.Sprintf("<title>Dynamic Threshold Report - House %s</title>", id), "<title>"+label+"</title>",
			fmt.Sprintf("<h1>Dynamic Threshold Analysis - House %s</h1>", id), "<h1>"+label+"</h1>",
		).Replace(doc)
	}

	label := r.Prefix + " - Aggregate Report"
	return strings.NewReplacer(
		"<title>Dynamic Threshold - Aggregate Report</title>", "<title>"+label+"</title>",
		"<h1>Dynamic Threshold - Aggregate Report</h1>", "<h1>"+label+"</h1>",
	).Replace(doc)
}

// Labeled reports whether title already carries the prefix.
func (r Relabeler) Labeled(title string) bool {
	return strings.HasPrefix(strings.TrimSpace(title), r.Prefix)
}
