// Package citation renumbers the [n] markers of a generated answer so that
// references are numbered in order of first use.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
)

// markerRe matches [n] and grouped [n, m, ...] markers.
var markerRe = regexp.MustCompile(`\[(\s*\d+\s*(?:,\s*\d+\s*)*)\]`)

// Result is the outcome of Normalize.
type Result[T any] struct {
	// Text is the answer with markers rewritten to display numbers.
	Text string
	// References holds the cited references in display order.
	References []T
	// Mapping maps an original 1-based index to its display number.
	Mapping map[int]int
	// Unused holds the references the text never cites, in original order.
	Unused []T
	// Unmapped lists out-of-range indices in order of first appearance. They
	// are left as they were in Text.
	Unmapped []int
}

// Err reports unmapped indices as a MalformedCitation fault.
func (r Result[T]) Err() error {
	if len(r.Unmapped) == 0 {
		return nil
	}
	return domain.Wrap(domain.ErrMalformedCitation, fmt.Errorf("indices %v out of range", r.Unmapped))
}

// Normalize rewrites the citation markers of text against refs, where [n]
// refers to refs[n-1]. Cited references are renumbered 1..k by first
// appearance and every group marker is split into one bracket per index,
// sorted by display number. Normalize never fails; markers it cannot map are
// kept verbatim.
func Normalize[T any](text string, refs []T) Result[T] {
	res := Result[T]{
		Text:       text,
		References: []T{},
		Mapping:    make(map[int]int),
	}

	markers := markerRe.FindAllStringSubmatchIndex(text, -1)
	unmapped := make(map[int]bool)
	for _, m := range markers {
		for _, idx := range parseGroup(text[m[2]:m[3]]) {
			n := idx.n
			if inRange(n, len(refs)) {
				if _, ok := res.Mapping[n]; !ok {
					res.Mapping[n] = len(res.References) + 1
					res.References = append(res.References, refs[n-1])
				}
			} else if !unmapped[n] && n >= 0 {
				unmapped[n] = true
				res.Unmapped = append(res.Unmapped, n)
			}
		}
	}

	for i, ref := range refs {
		if _, ok := res.Mapping[i+1]; !ok {
			res.Unused = append(res.Unused, ref)
		}
	}

	if len(res.Mapping) == 0 {
		return res
	}

	var b strings.Builder
	last := 0
	for _, m := range markers {
		b.WriteString(text[last:m[0]])
		b.WriteString(rewrite(text[m[0]:m[1]], parseGroup(text[m[2]:m[3]]), res.Mapping))
		last = m[1]
	}
	b.WriteString(text[last:])
	res.Text = b.String()

	return res
}

// rewrite renders one marker. A marker with no mappable index is returned
// unchanged; otherwise mapped indices come first in display order, followed by
// unmapped ones as they appeared.
func rewrite(marker string, group []index, mapping map[int]int) string {
	var display []int
	var rest []string
	seen := make(map[string]bool)
	for _, idx := range group {
		d, ok := mapping[idx.n]
		key := idx.raw
		if ok {
			key = strconv.Itoa(idx.n)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if ok {
			display = append(display, d)
		} else {
			rest = append(rest, idx.raw)
		}
	}
	if len(display) == 0 {
		return marker
	}
	sort.Ints(display)

	var b strings.Builder
	for _, d := range display {
		b.WriteString("[" + strconv.Itoa(d) + "]")
	}
	for _, raw := range rest {
		b.WriteString("[" + raw + "]")
	}
	return b.String()
}

type index struct {
	raw string
	n   int
}

// parseGroup splits a marker body into its indices. An index too large for
// an int gets n = -1, which is never in range.
func parseGroup(body string) []index {
	parts := strings.Split(body, ",")
	out := make([]index, 0, len(parts))
	for _, p := range parts {
		raw := strings.TrimSpace(p)
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = -1
		}
		out = append(out, index{raw: raw, n: n})
	}
	return out
}

func inRange(n, size int) bool {
	return n >= 1 && n <= size
}
