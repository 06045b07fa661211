package pagespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		pageCount int
		want      IndexSet
	}{
		{"empty spec", "", 5, IndexSet{}},
		{"single page", "1", 1, IndexSet{0}},
		{"single page on empty document", "1", 0, IndexSet{}},
		{"dedupe and sort", "2,1,2", 2, IndexSet{0, 1}},
		{"range", "1-3", 3, IndexSet{0, 1, 2}},
		{"range past end is dropped not clamped", "1-3", 2, IndexSet{}},
		{"reversed range", "5-2", 10, IndexSet{}},
		{"mixed", "1,3,5-8,10", 10, IndexSet{0, 2, 4, 5, 6, 7, 9}},
		{"whitespace", " 1 , 2 - 3 ", 5, IndexSet{0, 1, 2}},
		{"leading and trailing commas", ",1,,2,", 5, IndexSet{0, 1}},
		{"out of range page", "0,6", 5, IndexSet{}},
		{"garbage", "abc,1x,2", 5, IndexSet{1}},
		{"double hyphen", "1-2-3", 5, IndexSet{}},
		{"negative number", "-3", 5, IndexSet{}},
		{"open range", "2-", 5, IndexSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.spec, tt.pageCount))
		})
	}
}

func TestParse_ReversedRangeNeverSelects(t *testing.T) {
	for pageCount := 0; pageCount <= 20; pageCount++ {
		assert.Empty(t, Parse("5-2", pageCount), "pageCount=%d", pageCount)
	}
}

func TestParse_EmptySpecForAnyPageCount(t *testing.T) {
	for pageCount := 1; pageCount <= 20; pageCount++ {
		assert.True(t, Parse("", pageCount).Empty())
	}
}

func TestParser_Strict(t *testing.T) {
	p := NewParser(Strict)

	set, err := p.Parse("1,3-4", 5)
	require.NoError(t, err)
	assert.Equal(t, IndexSet{0, 2, 3}, set)

	_, err = p.Parse("1,9,x", 5)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "9")
	assert.Contains(t, err.Error(), "x")
}

func TestParseDetailed_ReportsRejected(t *testing.T) {
	res := (&Parser{}).ParseDetailed("1, 4-2 ,7", 5)

	assert.Equal(t, IndexSet{0}, res.Indices)
	assert.Equal(t, []string{"4-2", "7"}, res.Rejected)
}

func TestParseRanges(t *testing.T) {
	ranges := ParseRanges("3-4, 1-2, 5, 4-9, 1-2", 5)

	assert.Equal(t, []SplitRange{
		{Start: 2, End: 3},
		{Start: 0, End: 1},
		{Start: 0, End: 1},
	}, ranges)

	_, err := NewParser(Strict).ParseRanges("1-2,3", 5)
	assert.True(t, errors.IsValidation(err))
}

func TestIndexSet(t *testing.T) {
	set := IndexSet{0, 1, 2, 4}

	assert.True(t, set.Contains(4))
	assert.False(t, set.Contains(3))
	assert.Equal(t, "1-3,5", set.String())
	assert.Equal(t, []int{1, 2, 3, 5}, set.OneBased())
	assert.False(t, set.Covers(5))
	assert.True(t, All(5).Covers(5))
	assert.False(t, IndexSet{}.Covers(0))
}

func TestFromIndices(t *testing.T) {
	assert.Equal(t, IndexSet{0, 2}, FromIndices([]int{2, -1, 0, 2, 7}, 3))
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Strict, ParsePolicy(" STRICT "))
	assert.Equal(t, Lenient, ParsePolicy("whatever"))
	assert.Equal(t, "strict", Strict.String())
}
