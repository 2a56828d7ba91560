package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// WriteCSV writes a header row followed by one row per item.
func WriteCSV(w io.Writer, items []json.RawMessage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i, item := range items {
		if err := cw.Write(Row(item)); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
