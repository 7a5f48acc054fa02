package projection

import (
	"context"
	"net/url"
	"testing"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	coreagg "github.com/aevon-lab/vahan-pulse/internal/core/aggregation"
	"github.com/aevon-lab/vahan-pulse/internal/core/filter"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseCriteria(t *testing.T) {
	values := url.Values{
		"date_from":    {"2023-06"},
		"date_to":      {"2024-01-31"},
		"class":        {"2W,4W", " 3W "},
		"manufacturer": {"Hero"},
		"state":        {filter.AllIndia},
	}

	c, err := ParseCriteria(values, KnownValues{})
	require.NoError(t, err)
	require.Equal(t, month(2023, time.June), *c.DateFrom)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *c.DateTo)
	require.Equal(t, []string{"2W", "4W", "3W"}, c.Classes)
	require.Equal(t, []string{"Hero"}, c.Manufacturers)
	require.Equal(t, []string{filter.AllIndia}, c.States)

	empty, err := ParseCriteria(url.Values{}, KnownValues{})
	require.NoError(t, err)
	require.True(t, empty.IsZero())
}

func TestParseCriteria_KeepsKnownNamesWithCommas(t *testing.T) {
	known := KnownValuesOf([]v1.Registration{
		{VehicleClass: "2W", Manufacturer: "Hero", State: "Delhi"},
		{VehicleClass: "4W", Manufacturer: "Mahindra & Mahindra, Ltd", State: "Dadra and Nagar Haveli, Daman and Diu"},
	})
	values := url.Values{
		"manufacturer": {"Mahindra & Mahindra, Ltd", "Hero,Tata"},
		"state":        {"Dadra and Nagar Haveli, Daman and Diu"},
		"class":        {"2W,4W"},
	}

	c, err := ParseCriteria(values, known)
	require.NoError(t, err)
	require.Equal(t, []string{"Mahindra & Mahindra, Ltd", "Hero", "Tata"}, c.Manufacturers)
	require.Equal(t, []string{"Dadra and Nagar Haveli, Daman and Diu"}, c.States)
	require.Equal(t, []string{"2W", "4W"}, c.Classes)
	require.True(t, known.States[filter.AllIndia])
}

func TestParseCriteria_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"bad from", url.Values{"date_from": {"yesterday"}}},
		{"bad to", url.Values{"date_to": {"2024-13-01"}}},
		{"reversed", url.Values{"date_from": {"2024-02-01"}, "date_to": {"2024-01-01"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria(tt.values, KnownValues{})
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}

	_, err := parseTop(url.Values{"top": {"-1"}}, 8)
	require.ErrorIs(t, err, ErrInvalidQuery)
	n, err := parseTop(url.Values{}, 8)
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestService_Filters(t *testing.T) {
	resp, err := newFixtureService(Options{}).Filters(context.Background())
	require.NoError(t, err)

	require.Equal(t, "2023-01-01", *resp.DateMin)
	require.Equal(t, "2024-01-01", *resp.DateMax)
	require.Equal(t, []string{"2W", "4W"}, resp.VehicleClasses)
	require.Equal(t, []string{"Hero", "Honda", "Tata"}, resp.Manufacturers)
	require.Equal(t, []string{filter.AllIndia, "Delhi", "Maharashtra"}, resp.States)
	require.Equal(t, "6f1c2f3e-8a4b-4c5d-9e6f-7a8b9c0d1e2f", resp.DatasetID)
	require.Equal(t, 15, resp.Records)
}

func TestService_RegistrationsFilterByState(t *testing.T) {
	resp, err := newFixtureService(Options{}).Registrations(context.Background(), filter.Criteria{States: []string{"Maharashtra"}})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "Tata", resp.Rows[0].Manufacturer)
	require.Equal(t, 1, resp.Records)
}

func TestService_ToplineCards(t *testing.T) {
	svc := newFixtureService(Options{})

	resp, err := svc.Topline(context.Background(), filter.Criteria{})
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", *resp.Date)
	require.Len(t, resp.Cards, 2)

	twoWheel := resp.Cards[0]
	require.Equal(t, "2W", twoWheel.VehicleClass)
	require.Equal(t, int64(200), *twoWheel.Registrations)
	require.True(t, twoWheel.YoYPct.Valid)
	require.True(t, twoWheel.YoYPct.Decimal.Equal(decimal.NewFromInt(100)))

	fourWheel := resp.Cards[1]
	require.Equal(t, int64(300), *fourWheel.Registrations)
	require.False(t, fourWheel.YoYPct.Valid)
	require.False(t, fourWheel.QoQPct.Valid)
}

func TestService_ToplineSelectedClassWithoutData(t *testing.T) {
	resp, err := newFixtureService(Options{}).Topline(context.Background(), filter.Criteria{
		Classes:       []string{"4W", "3W"},
		Manufacturers: []string{"Tata"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Cards, 2)
	require.Equal(t, "3W", resp.Cards[0].VehicleClass)
	require.Nil(t, resp.Cards[0].Registrations)
	require.Equal(t, int64(300), *resp.Cards[1].Registrations)
}

func TestService_TrendsLimitsToTopManufacturers(t *testing.T) {
	svc := newFixtureService(Options{TopManufacturers: 2})

	resp, err := svc.Trends(context.Background(), coreagg.ViewManufacturer, filter.Criteria{})
	require.NoError(t, err)
	require.Equal(t, []string{"Hero", "Tata"}, resp.TopManufacturers)
	for _, r := range resp.Rows {
		require.NotEqual(t, "Honda", r.Dimensions["manufacturer"])
	}
	require.Len(t, resp.Latest, 2)

	selected, err := svc.Trends(context.Background(), coreagg.ViewManufacturer, filter.Criteria{Manufacturers: []string{"Honda"}})
	require.NoError(t, err)
	require.Empty(t, selected.TopManufacturers)
	require.Len(t, selected.Rows, 1)
}

func TestService_TrendsYearOverYear(t *testing.T) {
	resp, err := newFixtureService(Options{}).Trends(context.Background(), coreagg.ViewCategory, filter.Criteria{Classes: []string{"2W"}})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 13)

	latest := resp.Rows[12]
	require.Equal(t, month(2024, time.January), latest.Date)
	require.True(t, latest.YoYPct.Decimal.Equal(decimal.NewFromInt(100)))
	for _, r := range resp.Rows[:12] {
		require.False(t, r.YoYPct.Valid)
	}
}

func TestService_UnknownView(t *testing.T) {
	svc := newFixtureService(Options{})

	_, err := svc.Trends(context.Background(), "colour", filter.Criteria{})
	require.ErrorIs(t, err, ErrViewNotFound)
	_, err = svc.Quarters(context.Background(), "colour", filter.Criteria{})
	require.ErrorIs(t, err, ErrViewNotFound)
}

func TestService_Quarters(t *testing.T) {
	resp, err := newFixtureService(Options{}).Quarters(context.Background(), coreagg.ViewCategory, filter.Criteria{Classes: []string{"2W"}})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 5)
	require.Equal(t, "2023Q1", resp.Rows[0].Quarter.String())
	require.False(t, resp.Rows[0].QoQPct.Valid)
	require.True(t, resp.Rows[1].QoQPct.Decimal.IsZero())
}

func TestService_ShareTopAndOthers(t *testing.T) {
	svc := newFixtureService(Options{ShareTop: 2})

	latest, err := svc.LatestShare(context.Background(), filter.Criteria{}, 2)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", *latest.Date)
	require.Len(t, latest.Slices, 3)
	require.Equal(t, "Tata", latest.Slices[0].Label)
	require.True(t, latest.Slices[0].SharePct.Equal(decimal.NewFromInt(60)))
	require.Equal(t, "Hero", latest.Slices[1].Label)
	require.Equal(t, coreagg.OthersLabel, latest.Slices[2].Label)
	require.True(t, latest.Slices[2].SharePct.Equal(decimal.NewFromInt(10)))

	all, err := svc.LatestShare(context.Background(), filter.Criteria{}, 0)
	require.NoError(t, err)
	require.Len(t, all.Slices, 3)
	for _, s := range all.Slices {
		require.NotEqual(t, coreagg.OthersLabel, s.Label)
	}

	share, err := svc.Share(context.Background(), filter.Criteria{}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Hero", "Tata"}, share.Manufacturers)
	for _, r := range share.Rows {
		require.NotEqual(t, "Honda", r.Manufacturer)
	}
}

func TestService_Dashboard(t *testing.T) {
	resp, err := newFixtureService(Options{TopManufacturers: 2, ShareTop: 2}).Dashboard(context.Background(), filter.Criteria{})
	require.NoError(t, err)

	require.NotNil(t, resp.Meta)
	require.Nil(t, resp.Topline.Meta)
	require.Len(t, resp.Topline.Cards, 2)
	require.Equal(t, coreagg.ViewCategory, resp.Category.View)
	require.Equal(t, []string{"Hero", "Tata"}, resp.Manufacturer.TopManufacturers)
	require.Equal(t, []string{"Hero", "Tata"}, resp.Share.Manufacturers)
	require.Len(t, resp.LatestShare.Slices, 3)
}

func TestService_NoSnapshot(t *testing.T) {
	svc := NewService(staticSnapshots{}, nil, Options{})

	_, err := svc.Filters(context.Background())
	require.ErrorIs(t, err, dataset.ErrNoSnapshot)
	_, err = svc.Dashboard(context.Background(), filter.Criteria{})
	require.ErrorIs(t, err, dataset.ErrNoSnapshot)
}

func TestService_EmptyFilterResult(t *testing.T) {
	svc := newFixtureService(Options{})
	c := filter.Criteria{Manufacturers: []string{"Nobody"}}

	topline, err := svc.Topline(context.Background(), c)
	require.NoError(t, err)
	require.Nil(t, topline.Date)
	for _, card := range topline.Cards {
		require.Nil(t, card.Registrations)
	}

	latest, err := svc.LatestShare(context.Background(), c, 8)
	require.NoError(t, err)
	require.Nil(t, latest.Date)
	require.Empty(t, latest.Slices)
}
