package projection

import (
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/google/uuid"
)

type staticSnapshots struct {
	snap *dataset.Snapshot
}

func (s staticSnapshots) Current() (*dataset.Snapshot, error) {
	if s.snap == nil {
		return nil, dataset.ErrNoSnapshot
	}
	return s.snap, nil
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// fixtureRecords: Hero (2W, Delhi) 100/month through 2023 then 150 in Jan 2024,
// Honda (2W, Delhi) 50 and Tata (4W, Maharashtra) 300 in Jan 2024 only.
func fixtureRecords() []v1.Registration {
	var records []v1.Registration
	for m := time.January; m <= time.December; m++ {
		records = append(records, v1.Registration{
			Date: month(2023, m), State: "Delhi", VehicleClass: "2W", Manufacturer: "Hero", Registrations: 100,
		})
	}
	jan := month(2024, time.January)
	return append(records,
		v1.Registration{Date: jan, State: "Delhi", VehicleClass: "2W", Manufacturer: "Hero", Registrations: 150},
		v1.Registration{Date: jan, State: "Delhi", VehicleClass: "2W", Manufacturer: "Honda", Registrations: 50},
		v1.Registration{Date: jan, State: "Maharashtra", VehicleClass: "4W", Manufacturer: "Tata", Registrations: 300},
	)
}

func fixtureSnapshot() *dataset.Snapshot {
	return &dataset.Snapshot{
		ID:       uuid.MustParse("6f1c2f3e-8a4b-4c5d-9e6f-7a8b9c0d1e2f"),
		LoadedAt: time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC),
		Source:   "sample_data.csv",
		Records:  fixtureRecords(),
	}
}

func newFixtureService(opts Options) *Service {
	return NewService(staticSnapshots{snap: fixtureSnapshot()}, nil, opts)
}
