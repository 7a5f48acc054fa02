package postgres

// SQL for the registrations table.

const (
	// queryLoadRegistrations returns every row in date order. The remaining
	// ordering columns keep repeated loads deterministic.
	queryLoadRegistrations = `
		SELECT date, state, vehicle_class, manufacturer, registrations
		FROM registrations
		ORDER BY date ASC, state ASC, vehicle_class ASC, manufacturer ASC
	`

	// queryUpsertRegistration replaces the count for a (date, state, class, manufacturer) cell.
	// A re-uploaded export overwrites rather than double counts.
	queryUpsertRegistration = `
		INSERT INTO registrations (
			date, state, vehicle_class, manufacturer, registrations, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date, state, vehicle_class, manufacturer)
		DO UPDATE SET
			registrations = EXCLUDED.registrations,
			updated_at    = EXCLUDED.updated_at
	`

	queryRegistrationsTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'registrations'
		)
	`
)
