package projection

import (
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	coreagg "github.com/aevon-lab/vahan-pulse/internal/core/aggregation"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/shopspring/decimal"
)

// Meta identifies the snapshot a response was computed from.
// Sections nested inside a dashboard response leave it nil.
type Meta struct {
	DatasetID string    `json:"dataset_id"`
	LoadedAt  time.Time `json:"loaded_at"`
	Source    string    `json:"source"`
	Fallback  bool      `json:"fallback"`
	Records   int       `json:"records"` // rows left after filtering
}

func newMeta(snap *dataset.Snapshot, filtered int) *Meta {
	return &Meta{
		DatasetID: snap.ID.String(),
		LoadedAt:  snap.LoadedAt,
		Source:    snap.Source,
		Fallback:  snap.Fallback,
		Records:   filtered,
	}
}

// FiltersResponse lists the selectable filter values of the whole dataset.
type FiltersResponse struct {
	*Meta
	DateMin        *string  `json:"date_min"`
	DateMax        *string  `json:"date_max"`
	VehicleClasses []string `json:"vehicle_classes"`
	Manufacturers  []string `json:"manufacturers"`
	States         []string `json:"states"`
}

// RegistrationsResponse is the filtered raw data table.
type RegistrationsResponse struct {
	*Meta
	Rows []v1.Registration `json:"rows"`
}

// TrendsResponse carries monthly rows with yoy_pct and qoq_pct for one view.
type TrendsResponse struct {
	*Meta
	View        string   `json:"view"`
	KeyColumns  []string `json:"key_columns"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	// TopManufacturers lists the manufacturers kept when no manufacturer was selected.
	TopManufacturers []string             `json:"top_manufacturers,omitempty"`
	Rows             []coreagg.MonthlyRow `json:"rows"`
	Latest           []coreagg.MonthlyRow `json:"latest"`
}

// QuartersResponse carries quarterly rollups with qoq_pct for one view.
type QuartersResponse struct {
	*Meta
	View       string                 `json:"view"`
	KeyColumns []string               `json:"key_columns"`
	Rows       []coreagg.QuarterlyRow `json:"rows"`
}

// ToplineCard is the latest-month summary for one vehicle class.
// A class with no row in the latest month has nil registrations and null growth.
type ToplineCard struct {
	VehicleClass  string              `json:"vehicle_class"`
	Registrations *int64              `json:"registrations"`
	YoYPct        decimal.NullDecimal `json:"yoy_pct"`
	QoQPct        decimal.NullDecimal `json:"qoq_pct"`
}

// ToplineResponse holds one card per shown vehicle class, ordered by class.
type ToplineResponse struct {
	*Meta
	Date  *string       `json:"date"`
	Cards []ToplineCard `json:"cards"`
}

// ShareResponse carries market share rows for the top manufacturers.
type ShareResponse struct {
	*Meta
	Manufacturers []string           `json:"manufacturers"`
	Rows          []coreagg.ShareRow `json:"rows"`
}

// LatestShareResponse is the latest month split into top manufacturers plus Others.
type LatestShareResponse struct {
	*Meta
	Date   *string              `json:"date"`
	Slices []coreagg.ShareSlice `json:"slices"`
}

// DashboardResponse bundles every dashboard section for one filter selection.
type DashboardResponse struct {
	*Meta
	Topline      *ToplineResponse     `json:"topline"`
	Category     *TrendsResponse      `json:"category"`
	Manufacturer *TrendsResponse      `json:"manufacturer"`
	Share        *ShareResponse       `json:"share"`
	LatestShare  *LatestShareResponse `json:"latest_share"`
}

func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(v1.DateLayout)
	return &s
}
