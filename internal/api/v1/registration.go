package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Column names of the registration schema. Files and tables must carry all of them.
const (
	ColumnDate          = "date"
	ColumnState         = "state"
	ColumnVehicleClass  = "vehicle_class"
	ColumnManufacturer  = "manufacturer"
	ColumnRegistrations = "registrations"
)

// Columns lists the required columns in canonical order.
var Columns = []string{ColumnDate, ColumnState, ColumnVehicleClass, ColumnManufacturer, ColumnRegistrations}

// DateLayout is the canonical wire format for registration dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
}

// Registration is one row of vehicle-registration counts.
// It is the unit of input and is never mutated once loaded.
type Registration struct {
	// Date is the reporting month. Sources conventionally use the first day of the month.
	Date time.Time `json:"date"`

	// State is the Indian state or union territory the counts belong to.
	State string `json:"state"`

	// VehicleClass is the categorical class, e.g. "2W", "3W" or "4W". Not enforced.
	VehicleClass string `json:"vehicle_class"`

	Manufacturer string `json:"manufacturer"`

	Registrations int64 `json:"registrations"`
}

// Dimension returns the value of a categorical column by name.
// Unknown columns yield the empty (missing) value.
func (r Registration) Dimension(column string) string {
	switch column {
	case ColumnState:
		return r.State
	case ColumnVehicleClass:
		return r.VehicleClass
	case ColumnManufacturer:
		return r.Manufacturer
	default:
		return ""
	}
}

// IsDimension reports whether column is a categorical column usable as a grouping key.
func IsDimension(column string) bool {
	switch column {
	case ColumnState, ColumnVehicleClass, ColumnManufacturer:
		return true
	}
	return false
}

// Validate checks the fields required by the ingestion API.
func (r *Registration) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if strings.TrimSpace(r.VehicleClass) == "" {
		return fmt.Errorf("vehicle_class is required")
	}
	if strings.TrimSpace(r.Manufacturer) == "" {
		return fmt.Errorf("manufacturer is required")
	}
	if r.Registrations < 0 {
		return fmt.Errorf("registrations must be >= 0, got %d", r.Registrations)
	}
	return nil
}

// ParseDate coerces a date string into a UTC timestamp.
// Accepts ISO dates, year-month, RFC 3339 and a few spreadsheet layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

type registrationJSON struct {
	Date          string `json:"date"`
	State         string `json:"state"`
	VehicleClass  string `json:"vehicle_class"`
	Manufacturer  string `json:"manufacturer"`
	Registrations int64  `json:"registrations"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (r Registration) MarshalJSON() ([]byte, error) {
	return json.Marshal(registrationJSON{
		Date:          r.Date.Format(DateLayout),
		State:         r.State,
		VehicleClass:  r.VehicleClass,
		Manufacturer:  r.Manufacturer,
		Registrations: r.Registrations,
	})
}

// UnmarshalJSON accepts any layout understood by ParseDate.
func (r *Registration) UnmarshalJSON(data []byte) error {
	var raw registrationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	*r = Registration{
		Date:          date,
		State:         raw.State,
		VehicleClass:  raw.VehicleClass,
		Manufacturer:  raw.Manufacturer,
		Registrations: raw.Registrations,
	}
	return nil
}
