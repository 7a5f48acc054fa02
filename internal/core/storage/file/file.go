// Package file reads registration records from delimited text and Excel workbooks.
package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
)

// Source loads a registration export from a .csv, .tsv or .xlsx file.
type Source struct {
	path string
}

// NewSource returns a file-backed record source. The file is read on every Load.
func NewSource(path string) *Source {
	return &Source{path: filepath.Clean(path)}
}

// Describe returns the file path.
func (s *Source) Describe() string { return s.path }

// Load reads and parses the whole file, returning records sorted by date.
func (s *Source) Load(ctx context.Context) ([]v1.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewSourceReadError(s.path, "open", err)
	}

	var (
		records []v1.Registration
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".csv", ".txt":
		records, err = s.loadDelimited(',')
	case ".tsv":
		records, err = s.loadDelimited('\t')
	case ".xlsx", ".xlsm":
		records, err = s.loadWorkbook()
	default:
		return nil, storage.NewSourceReadError(s.path, "open", fmt.Errorf("%w: %q", storage.ErrUnsupportedFormat, ext))
	}
	if err != nil {
		return nil, err
	}

	slog.Info("[File] Loaded registrations", "path", s.path, "records", len(records))
	return records, nil
}

func (s *Source) loadDelimited(comma rune) ([]v1.Registration, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, storage.NewSourceReadError(s.path, "open", err)
	}
	defer f.Close()

	records, err := ParseDelimited(f, comma)
	if err != nil {
		return nil, storage.NewSourceReadError(s.path, "parse", err)
	}
	return records, nil
}

// ParseDelimited parses a delimited export with a header row into records sorted by date.
// Header names are matched case-insensitively; extra columns are ignored.
func ParseDelimited(r io.Reader, comma rune) ([]v1.Registration, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return parseTable(rows, nil)
}

// parseTable maps a header row plus data rows onto registrations.
// serialDate converts a numeric spreadsheet date cell; nil disables the fallback.
func parseTable(rows [][]string, serialDate func(float64) (string, bool)) ([]v1.Registration, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty input", storage.ErrMissingColumns)
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := header[key]; !dup {
			header[key] = i
		}
	}
	if missing := storage.MissingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i := header[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]v1.Registration, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if blankRow(row) {
			continue
		}

		rawDate := cell(row, v1.ColumnDate)
		date, err := v1.ParseDate(rawDate)
		if err != nil && serialDate != nil {
			if serial, perr := strconv.ParseFloat(rawDate, 64); perr == nil {
				if converted, ok := serialDate(serial); ok {
					date, err = v1.ParseDate(converted)
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", storage.ErrMalformedRow, line, err)
		}

		count, err := parseCount(cell(row, v1.ColumnRegistrations))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: registrations: %v", storage.ErrMalformedRow, line, err)
		}

		records = append(records, v1.Registration{
			Date:          date,
			State:         cell(row, v1.ColumnState),
			VehicleClass:  cell(row, v1.ColumnVehicleClass),
			Manufacturer:  cell(row, v1.ColumnManufacturer),
			Registrations: count,
		})
	}

	storage.SortByDate(records)
	return records, nil
}

// parseCount accepts plain integers, thousands separators and integral floats ("1200.0").
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
