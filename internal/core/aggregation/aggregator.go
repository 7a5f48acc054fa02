package aggregation

import (
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
)

type monthBucket struct {
	month time.Time
	key   string
}

// Aggregate sums registrations per (calendar month, key tuple).
// Only months and keys present in the input appear in the output; nothing is zero-filled.
// Rows are ordered by date, then by key columns.
func Aggregate(records []v1.Registration, keyColumns []string) []MonthlyRow {
	index := make(map[monthBucket]int, len(records))
	rows := make([]MonthlyRow, 0)

	for _, rec := range records {
		dims := recordDimensions(rec, keyColumns)
		b := monthBucket{month: MonthStart(rec.Date), key: tupleKey(dims, keyColumns)}

		if i, ok := index[b]; ok {
			rows[i].Registrations += rec.Registrations
			continue
		}
		index[b] = len(rows)
		rows = append(rows, MonthlyRow{
			Date:          b.month,
			Dimensions:    dims,
			Registrations: rec.Registrations,
		})
	}

	sortMonthly(rows, keyColumns)
	return rows
}

// YoYQoQ aggregates records monthly per keyColumns and attaches both growth measures.
// An empty keyColumns falls back to DefaultKeyColumns.
func YoYQoQ(records []v1.Registration, keyColumns []string, lag int) []MonthlyRow {
	if len(keyColumns) == 0 {
		keyColumns = DefaultKeyColumns
	}
	monthly := Aggregate(records, keyColumns)
	return WithQoQ(WithGrowth(monthly, keyColumns, lag), keyColumns)
}
