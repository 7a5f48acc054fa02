package aggregation

import (
	"encoding/json"
	"testing"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestShare_TwoManufacturers(t *testing.T) {
	jan := month(2024, time.January)
	records := []v1.Registration{
		reg(jan, "2W", "A", 35),
		reg(jan, "4W", "A", 25), // share ignores vehicle class
		reg(jan, "2W", "B", 40),
	}

	rows := Share(records)
	require.Len(t, rows, 2)

	require.Equal(t, "A", rows[0].Manufacturer)
	require.Equal(t, int64(60), rows[0].Registrations)
	require.Equal(t, int64(100), rows[0].Total)
	requirePct(t, 60.0, rows[0].SharePct)

	require.Equal(t, "B", rows[1].Manufacturer)
	requirePct(t, 40.0, rows[1].SharePct)
}

func TestShare_SumsToHundredPerMonth(t *testing.T) {
	var records []v1.Registration
	for i, m := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		records = append(records, series(month(2023, time.January), "2W", m, int64(i+1), int64(3*i+2), 1, int64(i))...)
	}

	byDate := make(map[time.Time]decimal.Decimal)
	for _, r := range Share(records) {
		require.True(t, r.SharePct.Valid)
		byDate[r.Date] = byDate[r.Date].Add(r.SharePct.Decimal)
	}
	require.Len(t, byDate, 4)
	for date, sum := range byDate {
		require.InDelta(t, 100.0, sum.InexactFloat64(), 1e-6, date.String())
	}
}

func TestShare_ZeroTotalIsNull(t *testing.T) {
	feb := month(2024, time.February)
	records := []v1.Registration{
		reg(feb, "2W", "A", 0),
		reg(feb, "2W", "B", 0),
		reg(month(2024, time.March), "2W", "A", 3),
	}

	rows := Share(records)
	require.Len(t, rows, 3)
	for _, r := range rows {
		if r.Date.Equal(feb) {
			require.Equal(t, int64(0), r.Total)
			require.False(t, r.SharePct.Valid)
			continue
		}
		requirePct(t, 100, r.SharePct)
	}

	data, err := json.Marshal(rows[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2024-02-01","manufacturer":"A","registrations":0,"total":0,"share_pct":null}`, string(data))
}

func TestShare_EmptyInput(t *testing.T) {
	rows := Share(nil)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestLatestShare_TopSlicesAndOthers(t *testing.T) {
	jan := month(2024, time.January)
	feb := month(2024, time.February)
	records := []v1.Registration{
		reg(jan, "2W", "A", 1000),
		reg(feb, "2W", "A", 50),
		reg(feb, "2W", "B", 30),
		reg(feb, "2W", "C", 20),
	}
	rows := Share(records)

	top := TopShareManufacturers(rows, 2)
	require.Equal(t, []string{"A", "B"}, top)

	breakdown := LatestShare(rows, top)
	require.Equal(t, feb, breakdown.Date)
	require.Len(t, breakdown.Slices, 3)
	require.Equal(t, "A", breakdown.Slices[0].Label)
	require.True(t, decimal.NewFromInt(50).Equal(breakdown.Slices[0].SharePct))
	require.Equal(t, "B", breakdown.Slices[1].Label)
	require.Equal(t, OthersLabel, breakdown.Slices[2].Label)
	require.True(t, decimal.NewFromInt(20).Equal(breakdown.Slices[2].SharePct))
}

func TestLatestShare_NoOthersWhenTopCoversAll(t *testing.T) {
	mar := month(2024, time.March)
	records := []v1.Registration{
		reg(mar, "2W", "A", 1),
		reg(mar, "2W", "B", 1),
		reg(mar, "2W", "C", 1),
	}
	rows := Share(records)

	breakdown := LatestShare(rows, TopShareManufacturers(rows, 8))
	require.Len(t, breakdown.Slices, 3)
	for _, s := range breakdown.Slices {
		require.NotEqual(t, OthersLabel, s.Label)
	}
}

func TestLatestShare_Empty(t *testing.T) {
	breakdown := LatestShare(nil, []string{"A"})
	require.NotNil(t, breakdown.Slices)
	require.Empty(t, breakdown.Slices)
}
