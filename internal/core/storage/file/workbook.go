package file

import (
	"fmt"
	"io"
	"strings"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/xuri/excelize/v2"
)

// preferredSheets are tried before falling back to the first sheet of the workbook.
var preferredSheets = []string{"registrations", "Registrations", "data", "Data"}

func (s *Source) loadWorkbook() ([]v1.Registration, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, storage.NewSourceReadError(s.path, "open", err)
	}
	defer f.Close()

	records, err := parseWorkbook(f)
	if err != nil {
		return nil, storage.NewSourceReadError(s.path, "parse", err)
	}
	return records, nil
}

// ParseWorkbook parses an .xlsx stream, such as an uploaded file, into records sorted by date.
func ParseWorkbook(r io.Reader) ([]v1.Registration, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

func parseWorkbook(f *excelize.File) ([]v1.Registration, error) {
	sheet := pickSheet(f.GetSheetList())
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", storage.ErrMissingColumns)
	}

	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return parseTable(rows, excelSerialDate)
}

func pickSheet(sheets []string) string {
	for _, want := range preferredSheets {
		for _, have := range sheets {
			if strings.TrimSpace(have) == want {
				return have
			}
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func excelSerialDate(serial float64) (string, bool) {
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Format(v1.DateLayout), true
}
