package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSource_LoadCSV(t *testing.T) {
	path := writeFile(t, "vahan.csv", strings.Join([]string{
		"Date,State,Vehicle_Class,Manufacturer,Registrations,Notes",
		"2024-02-01,Delhi,2W,Hero,1200,x",
		"2024-01-01,Delhi,2W,Hero,\"1,000\",",
		"",
		"2024-01-01,,4W,Tata,300.0,",
	}, "\n"))

	records, err := NewSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, int64(1000), records[0].Registrations)
	assert.Equal(t, "", records[1].State)
	assert.Equal(t, int64(300), records[1].Registrations)
	assert.Equal(t, "Tata", records[1].Manufacturer)
	assert.Equal(t, int64(1200), records[2].Registrations)
}

func TestParseDelimited_StripsByteOrderMark(t *testing.T) {
	body := "\ufeffdate,state,vehicle_class,manufacturer,registrations\n2024-03-01,Goa,3W,Bajaj,12\n"

	records, err := ParseDelimited(strings.NewReader(body), ',')
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, int64(12), records[0].Registrations)
}

func TestSource_LoadTSV(t *testing.T) {
	path := writeFile(t, "vahan.tsv", "date\tstate\tvehicle_class\tmanufacturer\tregistrations\n2024-03-01\tGoa\t3W\tBajaj\t7\n")

	records, err := NewSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Goa", records[0].State)
}

func TestSource_MissingColumns(t *testing.T) {
	path := writeFile(t, "bad.csv", "date,state,manufacturer\n2024-01-01,Delhi,Hero\n")

	_, err := NewSource(path).Load(context.Background())
	require.Error(t, err)

	var readErr *storage.SourceReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, path, readErr.Source)
	assert.ErrorIs(t, err, storage.ErrMissingColumns)
	assert.Contains(t, err.Error(), "vehicle_class")
	assert.Contains(t, err.Error(), "registrations")
}

func TestSource_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad date", "not-a-date,Delhi,2W,Hero,10"},
		{"bad count", "2024-01-01,Delhi,2W,Hero,ten"},
		{"fractional count", "2024-01-01,Delhi,2W,Hero,1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "rows.csv", "date,state,vehicle_class,manufacturer,registrations\n"+tt.row+"\n")
			_, err := NewSource(path).Load(context.Background())
			assert.ErrorIs(t, err, storage.ErrMalformedRow)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestSource_UnsupportedAndMissingFile(t *testing.T) {
	_, err := NewSource(writeFile(t, "data.parquet", "x")).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat)

	_, err = NewSource(filepath.Join(t.TempDir(), "absent.csv")).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(writeFile(t, "vahan.csv", "date\n")).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_LoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vahan.xlsx")

	wb := excelize.NewFile()
	_, err := wb.NewSheet("Registrations")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Registrations", "A1", &[]any{"Date", "State", "Vehicle Class", "Manufacturer", "Registrations"}))
	require.NoError(t, wb.SetSheetRow("Registrations", "A2", &[]any{"2024-01-01", "Delhi", "2W", "Hero", 100}))
	// 45323 is the spreadsheet serial for 2024-02-01.
	require.NoError(t, wb.SetSheetRow("Registrations", "A3", &[]any{45323, "Delhi", "2W", "Hero", 150}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	records, err := NewSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), records[1].Date)
	assert.Equal(t, int64(150), records[1].Registrations)
	assert.Equal(t, "2W", records[0].VehicleClass)
}

func TestPickSheet(t *testing.T) {
	assert.Equal(t, "data", pickSheet([]string{"Sheet1", "data"}))
	assert.Equal(t, "Sheet1", pickSheet([]string{"Sheet1", "Other"}))
	assert.Equal(t, "", pickSheet(nil))
}

func TestParseWorkbook_FromReader(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"date", "state", "vehicle_class", "manufacturer", "registrations"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{"2024-05-01", "Kerala", "2W", "TVS", 12}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	records, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Kerala", records[0].State)

	_, err = ParseWorkbook(strings.NewReader("not a zip"))
	assert.Error(t, err)
}
