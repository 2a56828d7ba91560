package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Phones"

// WriteXLSX writes items as a single-sheet workbook.
func WriteXLSX(w io.Writer, items []json.RawMessage) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Columns)
	for _, item := range items {
		addRow(sheet, Row(item))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
