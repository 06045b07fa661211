// Package pagespec parses human-entered page selections such as "1,3,5-8,10"
// into validated, zero-based page index sets.
//
// Input is 1-based. A segment is either a single page number or an inclusive
// "start-end" range. Under the default lenient policy, segments that are
// malformed or fall outside [1, pageCount] are dropped silently; ranges are
// never clamped, so "1-3" against a two-page document selects nothing.
package pagespec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

// IndexSet is a strictly increasing list of unique zero-based page indices.
type IndexSet []int

// Len returns the number of selected pages.
func (s IndexSet) Len() int { return len(s) }

// Empty reports whether nothing is selected.
func (s IndexSet) Empty() bool { return len(s) == 0 }

// Contains reports whether index i is selected.
func (s IndexSet) Contains(i int) bool {
	n := sort.SearchInts(s, i)
	return n < len(s) && s[n] == i
}

// Covers reports whether the set selects every page of a pageCount-page document.
func (s IndexSet) Covers(pageCount int) bool {
	if pageCount <= 0 || len(s) < pageCount {
		return false
	}
	for i := 0; i < pageCount; i++ {
		if !s.Contains(i) {
			return false
		}
	}
	return true
}

// OneBased returns the selected pages as 1-based page numbers.
func (s IndexSet) OneBased() []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = v + 1
	}
	return out
}

// String renders the set in page-spec form, collapsing consecutive pages
// into ranges ("1-3,5").
func (s IndexSet) String() string {
	var b strings.Builder
	for i := 0; i < len(s); {
		j := i
		for j+1 < len(s) && s[j+1] == s[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if j == i {
			fmt.Fprintf(&b, "%d", s[i]+1)
		} else {
			fmt.Fprintf(&b, "%d-%d", s[i]+1, s[j]+1)
		}
		i = j + 1
	}
	return b.String()
}

// SplitRange is a zero-based inclusive page range.
type SplitRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Policy controls what happens to segments that cannot be accepted.
type Policy int

const (
	// Lenient drops malformed and out-of-range segments.
	Lenient Policy = iota
	// Strict rejects the whole specification with a validation error listing
	// every segment that could not be accepted.
	Strict
)

// ParsePolicy maps "lenient" / "strict" to a Policy. Unknown values are lenient.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return Strict
	}
	return Lenient
}

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// Result is the outcome of a detailed parse.
type Result struct {
	Indices  IndexSet
	Rejected []string
}

// Parser parses page specifications under a Policy. The zero value is lenient.
type Parser struct {
	Policy Policy
}

// NewParser returns a parser with the given policy.
func NewParser(policy Policy) *Parser {
	return &Parser{Policy: policy}
}

// Parse returns the validated index set for spec against a pageCount-page
// document. With the lenient policy the error is always nil.
func (p *Parser) Parse(spec string, pageCount int) (IndexSet, error) {
	res := p.ParseDetailed(spec, pageCount)
	if err := p.check(res.Rejected); err != nil {
		return nil, err
	}
	return res.Indices, nil
}

// ParseRanges returns the ranges in spec, in input order. Only hyphenated
// segments are considered; single pages are ignored.
func (p *Parser) ParseRanges(spec string, pageCount int) ([]SplitRange, error) {
	var (
		ranges   []SplitRange
		rejected []string
	)
	for _, seg := range segments(spec) {
		if !strings.Contains(seg, "-") {
			rejected = append(rejected, seg)
			continue
		}
		start, end, ok := parseRange(seg, pageCount)
		if !ok {
			rejected = append(rejected, seg)
			continue
		}
		ranges = append(ranges, SplitRange{Start: start - 1, End: end - 1})
	}
	if err := p.check(rejected); err != nil {
		return nil, err
	}
	return ranges, nil
}

// ParseDetailed parses spec and reports both the accepted indices and the
// segments that were dropped.
func (p *Parser) ParseDetailed(spec string, pageCount int) Result {
	var (
		pages    []int
		rejected []string
	)
	for _, seg := range segments(spec) {
		if strings.Contains(seg, "-") {
			start, end, ok := parseRange(seg, pageCount)
			if !ok {
				rejected = append(rejected, seg)
				continue
			}
			for i := start; i <= end; i++ {
				pages = append(pages, i-1)
			}
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil || n < 1 || n > pageCount {
			rejected = append(rejected, seg)
			continue
		}
		pages = append(pages, n-1)
	}
	return Result{Indices: normalize(pages), Rejected: rejected}
}

func (p *Parser) check(rejected []string) error {
	if p == nil || p.Policy != Strict || len(rejected) == 0 {
		return nil
	}
	return errors.NewValidationError(
		fmt.Sprintf("invalid page selection: %s", strings.Join(rejected, ", ")),
	).WithDetails(map[string]interface{}{"rejected": rejected})
}

var defaultParser = &Parser{}

// Parse parses spec with the lenient policy.
func Parse(spec string, pageCount int) IndexSet {
	set, _ := defaultParser.Parse(spec, pageCount)
	return set
}

// ParseRanges parses the ranges in spec with the lenient policy.
func ParseRanges(spec string, pageCount int) []SplitRange {
	ranges, _ := defaultParser.ParseRanges(spec, pageCount)
	return ranges
}

// All returns the index set selecting every page.
func All(pageCount int) IndexSet {
	if pageCount <= 0 {
		return IndexSet{}
	}
	set := make(IndexSet, pageCount)
	for i := range set {
		set[i] = i
	}
	return set
}

// FromIndices validates raw zero-based indices against pageCount, dropping
// out-of-range values and duplicates.
func FromIndices(indices []int, pageCount int) IndexSet {
	valid := make([]int, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < pageCount {
			valid = append(valid, i)
		}
	}
	return normalize(valid)
}

// segments splits spec on commas and drops empty segments.
func segments(spec string) []string {
	parts := strings.Split(spec, ",")
	out := parts[:0]
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseRange accepts "start-end" only when 1 <= start <= end <= pageCount.
func parseRange(seg string, pageCount int) (int, int, bool) {
	bounds := strings.Split(seg, "-")
	if len(bounds) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return 0, 0, false
	}
	if start < 1 || end > pageCount || start > end {
		return 0, 0, false
	}
	return start, end, true
}

func normalize(pages []int) IndexSet {
	if len(pages) == 0 {
		return IndexSet{}
	}
	sort.Ints(pages)
	out := IndexSet{pages[0]}
	for _, p := range pages[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
