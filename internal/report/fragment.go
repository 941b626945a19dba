// Package report locates and rewrites the figures embedded in dynamic
// threshold NILM reports.
//
// Matching is deliberately narrow: each fragment shape below mirrors one
// piece of markup emitted by the report generator. A document that does not
// contain a shape is simply left alone for that fragment.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/seenimoa/nilmpatch/pkg/utils"
)

// ErrMalformedNumber is returned when a fragment matches structurally but one
// of its captured numbers cannot be parsed.
var ErrMalformedNumber = errors.New("malformed number in report fragment")

// Fragment is a located span of a document together with its captured
// fields. Groups[0] is the whole span.
type Fragment struct {
	Start  int
	End    int
	Text   string
	Groups []string
}

// Found reports whether the fragment was located.
func (f Fragment) Found() bool {
	return f.End > f.Start
}

// Splice returns doc with the fragment's span replaced by repl.
func (f Fragment) Splice(doc, repl string) string {
	return doc[:f.Start] + repl + doc[f.End:]
}

// Float parses capture group i as a decimal.
func (f Fragment) Float(i int) (float64, error) {
	v, err := utils.ParseDecimal(f.Groups[i])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", f.Groups[i], ErrMalformedNumber)
	}
	return v, nil
}

// Int parses capture group i as a base-10 integer.
func (f Fragment) Int(i int) (int, error) {
	v, err := strconv.Atoi(f.Groups[i])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", f.Groups[i], ErrMalformedNumber)
	}
	return v, nil
}

// find returns the first occurrence of re in doc.
func find(re *regexp.Regexp, doc string) Fragment {
	loc := re.FindStringSubmatchIndex(doc)
	if loc == nil {
		return Fragment{}
	}
	return fragmentAt(doc, loc)
}

// findAll returns every non-overlapping occurrence of re in doc, in order.
func findAll(re *regexp.Regexp, doc string) []Fragment {
	locs := re.FindAllStringSubmatchIndex(doc, -1)
	out := make([]Fragment, 0, len(locs))
	for _, loc := range locs {
		out = append(out, fragmentAt(doc, loc))
	}
	return out
}

func fragmentAt(doc string, loc []int) Fragment {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = doc[loc[2*i]:loc[2*i+1]]
		}
	}
	return Fragment{
		Start:  loc[0],
		End:    loc[1],
		Text:   doc[loc[0]:loc[1]],
		Groups: groups,
	}
}

// rewriteAll applies fn to every occurrence of re and splices the results
// back. fn returns the replacement text for the span.
func rewriteAll(re *regexp.Regexp, doc string, fn func(Fragment) (string, error)) (string, error) {
	frags := findAll(re, doc)
	if len(frags) == 0 {
		return doc, nil
	}
	// Splice from the end so earlier offsets stay valid.
	for i := len(frags) - 1; i >= 0; i-- {
		repl, err := fn(frags[i])
		if err != nil {
			return "", err
		}
		if repl != frags[i].Text {
			doc = frags[i].Splice(doc, repl)
		}
	}
	return doc, nil
}
