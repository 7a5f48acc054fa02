package aggregation

import (
	"sort"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
)

var categoryOnly = []string{v1.ColumnVehicleClass}

// Topline aggregates records per vehicle class with YoY and QoQ growth.
func Topline(records []v1.Registration, lag int) []MonthlyRow {
	return YoYQoQ(records, categoryOnly, lag)
}

// Latest returns the rows dated at the maximum date present, ordered by labelColumn.
// Empty input yields an empty result.
func Latest(rows []MonthlyRow, labelColumn string) []MonthlyRow {
	out := make([]MonthlyRow, 0)
	if len(rows) == 0 {
		return out
	}

	latest := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	for _, r := range rows {
		if r.Date.Equal(latest) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dimensions[labelColumn] < out[j].Dimensions[labelColumn]
	})
	return out
}

// TopByTotal ranks the values of column by registrations summed across rows,
// largest first, and returns at most n of them. Ties break alphabetically.
func TopByTotal(rows []MonthlyRow, column string, n int) []string {
	totals := make(map[string]int64)
	for _, r := range rows {
		totals[r.Dimensions[column]] += r.Registrations
	}
	return topN(totals, n)
}

// KeepValues returns the rows whose column value is one of values.
func KeepValues(rows []MonthlyRow, column string, values []string) []MonthlyRow {
	keep := make(map[string]bool, len(values))
	for _, v := range values {
		keep[v] = true
	}
	out := make([]MonthlyRow, 0, len(rows))
	for _, r := range rows {
		if keep[r.Dimensions[column]] {
			out = append(out, r)
		}
	}
	return out
}

func topN(totals map[string]int64, n int) []string {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}
