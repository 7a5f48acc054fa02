package postgres

import (
	"fmt"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRegistrationRow scans one registrations row.
// DATE columns come back at midnight in the session zone; the calendar day is kept as UTC.
func scanRegistrationRow(row scanner) (v1.Registration, error) {
	var (
		reg  v1.Registration
		date time.Time
	)

	err := row.Scan(
		&date,
		&reg.State,
		&reg.VehicleClass,
		&reg.Manufacturer,
		&reg.Registrations,
	)
	if err != nil {
		return v1.Registration{}, fmt.Errorf("failed to scan registration row: %w", err)
	}

	reg.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return reg, nil
}
