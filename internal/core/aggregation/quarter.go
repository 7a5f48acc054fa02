package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"
)

type quarterBucket struct {
	quarter int // Quarter.Index
	key     string
}

// Quarterly rolls monthly rows up to calendar quarters per key tuple and
// computes QoQPct against the previous quarter present for the same tuple.
// Quarters missing from a tuple are not bridged.
func Quarterly(rows []MonthlyRow, keyColumns []string) []QuarterlyRow {
	index := make(map[quarterBucket]int)
	out := make([]QuarterlyRow, 0)

	for _, r := range rows {
		q := QuarterOf(r.Date)
		b := quarterBucket{quarter: q.Index(), key: tupleKey(r.Dimensions, keyColumns)}
		if i, ok := index[b]; ok {
			out[i].Registrations += r.Registrations
			continue
		}
		index[b] = len(out)
		out = append(out, QuarterlyRow{
			Quarter:       q,
			Dimensions:    copyDimensions(r.Dimensions),
			Registrations: r.Registrations,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quarter != out[j].Quarter {
			return out[i].Quarter.Before(out[j].Quarter)
		}
		return lessByColumns(out[i].Dimensions, out[j].Dimensions, keyColumns)
	})

	// out is quarter-ordered, so each tuple's previous element is its prior quarter.
	prev := make(map[string]int64)
	seen := make(map[string]bool)
	for i := range out {
		k := tupleKey(out[i].Dimensions, keyColumns)
		if seen[k] {
			out[i].QoQPct = PctChange(out[i].Registrations, prev[k])
		}
		prev[k] = out[i].Registrations
		seen[k] = true
	}
	return out
}

// WithQoQ returns a copy of rows where every month carries the QoQPct of its
// (quarter, key tuple). All months of one quarter receive the same value.
func WithQoQ(rows []MonthlyRow, keyColumns []string) []MonthlyRow {
	change := make(map[quarterBucket]decimal.NullDecimal)
	for _, q := range Quarterly(rows, keyColumns) {
		change[quarterBucket{quarter: q.Quarter.Index(), key: tupleKey(q.Dimensions, keyColumns)}] = q.QoQPct
	}

	out := make([]MonthlyRow, len(rows))
	for i, r := range rows {
		r.QoQPct = change[quarterBucket{quarter: QuarterOf(r.Date).Index(), key: tupleKey(r.Dimensions, keyColumns)}]
		out[i] = r
	}
	return out
}
