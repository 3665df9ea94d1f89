package document

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX reads the first sheet of a workbook. Cell values are read raw
// so date cells arrive as Excel serial numbers rather than locale-formatted
// strings.
func decodeXLSX(data []byte) (*Tabular, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("read workbook properties: %w", err)
	}
	tab := &Tabular{Rows: rows}
	if props.Date1904 != nil {
		tab.Date1904 = *props.Date1904
	}
	return tab, nil
}
