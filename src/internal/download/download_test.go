package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeRangeCoalescesAdjacent(t *testing.T) {
	got := mergeRange(nil, blockRange{Start: 10, End: 20})
	got = mergeRange(got, blockRange{Start: 21, End: 30})
	got = mergeRange(got, blockRange{Start: 50, End: 60})

	assert.Equal(t, []blockRange{{Start: 10, End: 30}, {Start: 50, End: 60}}, got)
}

func TestMergeRangeOverlap(t *testing.T) {
	got := mergeRange([]blockRange{{Start: 10, End: 20}}, blockRange{Start: 15, End: 40})
	assert.Equal(t, []blockRange{{Start: 10, End: 40}}, got)
}

func TestUncoveredRanges(t *testing.T) {
	tests := []struct {
		name     string
		existing []blockRange
		start    uint64
		end      uint64
		want     []blockRange
	}{
		{
			name:  "no coverage",
			start: 1, end: 100,
			want: []blockRange{{Start: 1, End: 100}},
		},
		{
			name:     "fully covered",
			existing: []blockRange{{Start: 0, End: 200}},
			start:    1, end: 100,
			want: nil,
		},
		{
			name:     "gap in the middle",
			existing: []blockRange{{Start: 1, End: 10}, {Start: 50, End: 100}},
			start:    1, end: 100,
			want: []blockRange{{Start: 11, End: 49}},
		},
		{
			name:     "tail uncovered",
			existing: []blockRange{{Start: 1, End: 60}},
			start:    40, end: 100,
			want: []blockRange{{Start: 61, End: 100}},
		},
		{
			name:     "coverage outside request window ignored",
			existing: []blockRange{{Start: 500, End: 600}},
			start:    1, end: 100,
			want: []blockRange{{Start: 1, End: 100}},
		},
		{
			name:  "inverted request",
			start: 10, end: 5,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uncoveredRanges(tt.existing, tt.start, tt.end)
			assert.Equal(t, tt.want, got)
		})
	}
}
