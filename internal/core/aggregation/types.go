package aggregation

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Derived column names added on top of the registration schema.
const (
	ColumnQuarter = "quarter"
	ColumnYoYPct  = "yoy_pct"
	ColumnQoQPct  = "qoq_pct"
	ColumnTotal   = "total"
	ColumnShare   = "share_pct"
)

// MissingKey is the grouping value of a record whose dimension is absent.
// It forms its own bucket and is never dropped.
const MissingKey = ""

// DefaultKeyColumns is the grouping used by the growth view when the caller names none.
var DefaultKeyColumns = []string{v1.ColumnVehicleClass, v1.ColumnManufacturer}

// Dimensions maps a grouping column to its value for one row.
type Dimensions map[string]string

// MonthlyRow is one (month, key tuple) bucket.
// Rows are derived on every query and never persisted.
type MonthlyRow struct {
	Date          time.Time // first day of the month, UTC
	Dimensions    Dimensions
	Registrations int64
	YoYPct        decimal.NullDecimal
	QoQPct        decimal.NullDecimal
}

// QuarterlyRow is the intermediate (quarter, key tuple) rollup used to derive QoQ change.
type QuarterlyRow struct {
	Quarter       Quarter
	Dimensions    Dimensions
	Registrations int64
	QoQPct        decimal.NullDecimal
}

// ShareRow is one manufacturer's share of a month's registrations.
type ShareRow struct {
	Date          time.Time
	Manufacturer  string
	Registrations int64
	Total         int64
	SharePct      decimal.NullDecimal // invalid when Total is zero
}

// Record returns the row as a column→value mapping.
func (r MonthlyRow) Record() map[string]any {
	out := make(map[string]any, len(r.Dimensions)+4)
	for col, val := range r.Dimensions {
		out[col] = val
	}
	out[v1.ColumnDate] = r.Date.Format(v1.DateLayout)
	out[v1.ColumnRegistrations] = r.Registrations
	out[ColumnYoYPct] = r.YoYPct
	out[ColumnQoQPct] = r.QoQPct
	return out
}

func (r MonthlyRow) MarshalJSON() ([]byte, error) { return json.Marshal(r.Record()) }

// Record returns the row as a column→value mapping.
func (r QuarterlyRow) Record() map[string]any {
	out := make(map[string]any, len(r.Dimensions)+3)
	for col, val := range r.Dimensions {
		out[col] = val
	}
	out[ColumnQuarter] = r.Quarter.String()
	out[v1.ColumnRegistrations] = r.Registrations
	out[ColumnQoQPct] = r.QoQPct
	return out
}

func (r QuarterlyRow) MarshalJSON() ([]byte, error) { return json.Marshal(r.Record()) }

// Record returns the row as a column→value mapping.
func (r ShareRow) Record() map[string]any {
	return map[string]any{
		v1.ColumnDate:          r.Date.Format(v1.DateLayout),
		v1.ColumnManufacturer:  r.Manufacturer,
		v1.ColumnRegistrations: r.Registrations,
		ColumnTotal:            r.Total,
		ColumnShare:            r.SharePct,
	}
}

func (r ShareRow) MarshalJSON() ([]byte, error) { return json.Marshal(r.Record()) }

// keySeparator cannot appear in dimension values read from CSV or SQL text.
const keySeparator = "\x1f"

// tupleKey encodes the key tuple of dims over columns. Two tuples are equal
// only when every component matches, the missing value included.
func tupleKey(dims Dimensions, columns []string) string {
	if len(columns) == 1 {
		return dims[columns[0]]
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = dims[col]
	}
	return strings.Join(parts, keySeparator)
}

func recordDimensions(r v1.Registration, columns []string) Dimensions {
	dims := make(Dimensions, len(columns))
	for _, col := range columns {
		dims[col] = r.Dimension(col)
	}
	return dims
}

func copyDimensions(d Dimensions) Dimensions {
	out := make(Dimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// lessByColumns orders two dimension sets column by column.
func lessByColumns(a, b Dimensions, columns []string) bool {
	for _, col := range columns {
		if a[col] != b[col] {
			return a[col] < b[col]
		}
	}
	return false
}

func sortMonthly(rows []MonthlyRow, columns []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return lessByColumns(rows[i].Dimensions, rows[j].Dimensions, columns)
	})
}
