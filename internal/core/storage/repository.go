package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
)

var (
	// ErrMissingColumns marks a source that lacks one of the required registration columns.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrMalformedRow marks a row whose date or count cannot be coerced.
	ErrMalformedRow = errors.New("malformed row")

	// ErrUnsupportedFormat marks a file whose extension no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported source format")
)

// SourceReadError is returned by every RecordSource when the source is
// unreadable, malformed or missing required columns. No partial record set
// accompanies it.
type SourceReadError struct {
	Source string // file path or redacted connection target
	Op     string // open, read, parse, query ...
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// NewSourceReadError wraps err for source and op.
func NewSourceReadError(source, op string, err error) *SourceReadError {
	return &SourceReadError{Source: source, Op: op, Err: err}
}

// RecordSource loads the full registration record set.
type RecordSource interface {
	// Load returns every record sorted ascending by date.
	// Failures are reported as *SourceReadError.
	Load(ctx context.Context) ([]v1.Registration, error)

	// Describe names the source for logs and responses. Credentials are never included.
	Describe() string
}

// RecordWriter persists registration rows.
type RecordWriter interface {
	// SaveRegistrations upserts rows keyed by (date, state, vehicle_class, manufacturer)
	// in a single transaction and returns the number written.
	SaveRegistrations(ctx context.Context, rows []v1.Registration) (int, error)
}

// SortByDate orders records ascending by date in place. Records sharing a date
// keep their source order.
func SortByDate(records []v1.Registration) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}

// MissingColumns returns the required columns absent from have, in canonical order.
func MissingColumns(have map[string]int) []string {
	var missing []string
	for _, col := range v1.Columns {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// MergeDuplicates sums rows that share a (date, state, vehicle_class, manufacturer)
// key, so a batch upsert stores the same totals a file source would aggregate.
// Order follows each key's first occurrence. rows is not modified.
func MergeDuplicates(rows []v1.Registration) []v1.Registration {
	type rowKey struct {
		date, state, class, manufacturer string
	}
	index := make(map[rowKey]int, len(rows))
	merged := make([]v1.Registration, 0, len(rows))
	for _, r := range rows {
		k := rowKey{r.Date.UTC().Format(v1.DateLayout), r.State, r.VehicleClass, r.Manufacturer}
		if i, ok := index[k]; ok {
			merged[i].Registrations += r.Registrations
			continue
		}
		index[k] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
