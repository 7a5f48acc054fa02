package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultYoYLag is the number of monthly periods back a year-over-year comparison reaches.
const DefaultYoYLag = 12

var hundred = decimal.NewFromInt(100)

// PctChange returns (current-previous)/previous*100.
// A zero previous value has no defined percent change and yields an invalid result.
func PctChange(current, previous int64) decimal.NullDecimal {
	if previous == 0 {
		return decimal.NullDecimal{}
	}
	prev := decimal.NewFromInt(previous)
	pct := decimal.NewFromInt(current).Sub(prev).Div(prev).Mul(hundred)
	return decimal.NullDecimal{Decimal: pct, Valid: true}
}

// WithGrowth returns a copy of rows with YoYPct set.
//
// The lag is positional: each key tuple's rows are ordered by date and row i is
// compared with row i-lag of the same tuple. Months missing from a tuple are
// not bridged, so a tuple with gaps compares periods that are not a calendar
// year apart. Rows with no element lag positions back get an invalid YoYPct.
func WithGrowth(rows []MonthlyRow, keyColumns []string, lag int) []MonthlyRow {
	if lag <= 0 {
		lag = DefaultYoYLag
	}

	out := make([]MonthlyRow, len(rows))
	copy(out, rows)

	for _, idx := range groupIndices(out, keyColumns) {
		sort.SliceStable(idx, func(a, b int) bool { return out[idx[a]].Date.Before(out[idx[b]].Date) })
		for pos, i := range idx {
			out[i].YoYPct = decimal.NullDecimal{}
			if pos >= lag {
				out[i].YoYPct = PctChange(out[i].Registrations, out[idx[pos-lag]].Registrations)
			}
		}
	}
	return out
}

// groupIndices partitions row positions by key tuple, preserving first-seen order.
func groupIndices(rows []MonthlyRow, keyColumns []string) [][]int {
	pos := make(map[string]int)
	var groups [][]int
	for i, r := range rows {
		k := tupleKey(r.Dimensions, keyColumns)
		g, ok := pos[k]
		if !ok {
			g = len(groups)
			pos[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
