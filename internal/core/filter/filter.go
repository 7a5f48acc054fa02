// Package filter selects the working subset of registration records.
package filter

import (
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
)

// AllIndia is the state selection meaning "no state filter". When present it
// overrides any named states selected alongside it.
const AllIndia = "All India (aggregate)"

// Criteria is one filter selection. Nil bounds and empty sets do not filter.
type Criteria struct {
	DateFrom      *time.Time // inclusive
	DateTo        *time.Time // inclusive
	Classes       []string
	Manufacturers []string
	States        []string
}

// Apply returns the records matching c as a new slice. records is not modified.
func Apply(records []v1.Registration, c Criteria) []v1.Registration {
	classes := toSet(c.Classes)
	manufacturers := toSet(c.Manufacturers)
	states := toSet(c.States)
	if states[AllIndia] {
		states = nil
	}

	out := make([]v1.Registration, 0, len(records))
	for _, r := range records {
		if c.DateFrom != nil && r.Date.Before(*c.DateFrom) {
			continue
		}
		if c.DateTo != nil && r.Date.After(*c.DateTo) {
			continue
		}
		if classes != nil && !classes[r.VehicleClass] {
			continue
		}
		if manufacturers != nil && !manufacturers[r.Manufacturer] {
			continue
		}
		if states != nil && !states[r.State] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// IsZero reports whether c selects every record.
func (c Criteria) IsZero() bool {
	return c.DateFrom == nil && c.DateTo == nil &&
		len(c.Classes) == 0 && len(c.Manufacturers) == 0 && len(c.States) == 0
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
