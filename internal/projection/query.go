package projection

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/core/filter"
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid analytics query")

	// ErrViewNotFound marks requests for an unknown analytics view (HTTP 404).
	ErrViewNotFound = errors.New("analytics view not found")
)

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// KnownValues holds the dimension values present in a snapshot. A list
// parameter that names one of them exactly is kept whole, so names that
// contain commas stay selectable.
type KnownValues struct {
	Classes       map[string]bool
	Manufacturers map[string]bool
	States        map[string]bool
}

// KnownValuesOf collects the distinct classes, manufacturers and states of records.
// The All India sentinel is always a known state.
func KnownValuesOf(records []v1.Registration) KnownValues {
	known := KnownValues{
		Classes:       make(map[string]bool),
		Manufacturers: make(map[string]bool),
		States:        map[string]bool{filter.AllIndia: true},
	}
	for _, r := range records {
		known.Classes[r.VehicleClass] = true
		known.Manufacturers[r.Manufacturer] = true
		known.States[r.State] = true
	}
	return known
}

// ParseCriteria reads date_from, date_to, class, manufacturer and state from a query string.
// List parameters may repeat or hold comma-separated values. A value equal to a
// known name is never split.
func ParseCriteria(values url.Values, known KnownValues) (filter.Criteria, error) {
	var c filter.Criteria

	if raw := strings.TrimSpace(values.Get("date_from")); raw != "" {
		t, err := v1.ParseDate(raw)
		if err != nil {
			return filter.Criteria{}, invalidQueryf("date_from: %v", err)
		}
		c.DateFrom = &t
	}
	if raw := strings.TrimSpace(values.Get("date_to")); raw != "" {
		t, err := v1.ParseDate(raw)
		if err != nil {
			return filter.Criteria{}, invalidQueryf("date_to: %v", err)
		}
		c.DateTo = &t
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return filter.Criteria{}, invalidQueryf("date_to %s is before date_from %s",
			c.DateTo.Format(v1.DateLayout), c.DateFrom.Format(v1.DateLayout))
	}

	c.Classes = listParam(values, "class", known.Classes)
	c.Manufacturers = listParam(values, "manufacturer", known.Manufacturers)
	c.States = listParam(values, "state", known.States)
	return c, nil
}

// parseTop reads an optional non-negative "top" override. Zero keeps every manufacturer.
func parseTop(values url.Values, def int) (int, error) {
	raw := strings.TrimSpace(values.Get("top"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidQueryf("top must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func listParam(values url.Values, name string, known map[string]bool) []string {
	var out []string
	for _, v := range values[name] {
		if whole := strings.TrimSpace(v); whole != "" && known[whole] {
			out = append(out, whole)
			continue
		}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
