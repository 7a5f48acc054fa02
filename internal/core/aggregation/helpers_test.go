package aggregation

import (
	"testing"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func reg(date time.Time, class, manufacturer string, n int64) v1.Registration {
	return v1.Registration{
		Date:          date,
		State:         "Karnataka",
		VehicleClass:  class,
		Manufacturer:  manufacturer,
		Registrations: n,
	}
}

// series builds one record per consecutive month starting at start.
func series(start time.Time, class, manufacturer string, values ...int64) []v1.Registration {
	out := make([]v1.Registration, 0, len(values))
	for i, v := range values {
		out = append(out, reg(start.AddDate(0, i, 0), class, manufacturer, v))
	}
	return out
}

func requirePct(t *testing.T, want float64, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected a value, got null")
	require.InDelta(t, want, got.Decimal.InexactFloat64(), 1e-9)
}

func findRow(t *testing.T, rows []MonthlyRow, date time.Time, dims Dimensions) MonthlyRow {
	t.Helper()
	for _, r := range rows {
		if !r.Date.Equal(date) {
			continue
		}
		match := true
		for k, v := range dims {
			if r.Dimensions[k] != v {
				match = false
				break
			}
		}
		if match {
			return r
		}
	}
	t.Fatalf("no row at %s for %v", date.Format(v1.DateLayout), dims)
	return MonthlyRow{}
}
