package aggregation

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

// OthersLabel names the remainder slice of a share breakdown.
const OthersLabel = "Others"

// othersPrecision bounds the decimal noise left after subtracting rounded shares from 100.
const othersPrecision = 10

var manufacturerOnly = []string{v1.ColumnManufacturer}

// Share computes each manufacturer's percentage of its month's total registrations.
// Share is always keyed by manufacturer alone. Months whose total is zero get invalid
// SharePct values rather than infinities.
func Share(records []v1.Registration) []ShareRow {
	monthly := Aggregate(records, manufacturerOnly)

	totals := make(map[time.Time]int64)
	for _, r := range monthly {
		totals[r.Date] += r.Registrations
	}

	out := make([]ShareRow, 0, len(monthly))
	for _, r := range monthly {
		total := totals[r.Date]
		row := ShareRow{
			Date:          r.Date,
			Manufacturer:  r.Dimensions[v1.ColumnManufacturer],
			Registrations: r.Registrations,
			Total:         total,
		}
		if total != 0 {
			row.SharePct = decimal.NullDecimal{
				Decimal: decimal.NewFromInt(r.Registrations).Div(decimal.NewFromInt(total)).Mul(hundred),
				Valid:   true,
			}
		}
		out = append(out, row)
	}
	return out
}

// ShareSlice is one labelled slice of a share breakdown.
type ShareSlice struct {
	Label    string          `json:"label"`
	SharePct decimal.Decimal `json:"share_pct"`
}

// ShareBreakdown is the latest month's market share split into named slices plus a remainder.
type ShareBreakdown struct {
	Date   time.Time    `json:"-"`
	Slices []ShareSlice `json:"slices"`
}

// LatestShare splits the most recent month of rows into a slice per manufacturer in keep,
// ordered by share descending, followed by an Others slice for the positive remainder.
// Rows with an invalid share are left out.
func LatestShare(rows []ShareRow, keep []string) ShareBreakdown {
	if len(rows) == 0 {
		return ShareBreakdown{Slices: []ShareSlice{}}
	}

	latest := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}

	wanted := make(map[string]bool, len(keep))
	for _, m := range keep {
		wanted[m] = true
	}

	slices := make([]ShareSlice, 0, len(keep)+1)
	sum := decimal.Zero
	for _, r := range rows {
		if !r.Date.Equal(latest) || !r.SharePct.Valid || !wanted[r.Manufacturer] {
			continue
		}
		slices = append(slices, ShareSlice{Label: r.Manufacturer, SharePct: r.SharePct.Decimal})
		sum = sum.Add(r.SharePct.Decimal)
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if !slices[i].SharePct.Equal(slices[j].SharePct) {
			return slices[i].SharePct.GreaterThan(slices[j].SharePct)
		}
		return slices[i].Label < slices[j].Label
	})

	if len(slices) > 0 {
		if others := hundred.Sub(sum).Round(othersPrecision); others.IsPositive() {
			slices = append(slices, ShareSlice{Label: OthersLabel, SharePct: others})
		}
	}
	return ShareBreakdown{Date: latest, Slices: slices}
}

// TopShareManufacturers ranks manufacturers by registrations summed over all share rows.
func TopShareManufacturers(rows []ShareRow, n int) []string {
	totals := make(map[string]int64)
	for _, r := range rows {
		totals[r.Manufacturer] += r.Registrations
	}
	return topN(totals, n)
}
