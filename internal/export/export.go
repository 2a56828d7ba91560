// Package export writes a run's output dataset as JSON, CSV or XLSX.
package export

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. An empty name means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Columns is the header of the tabular formats.
var Columns = []string{
	"companyName",
	"mainPhone",
	"phoneNumbers",
	"phoneNumbersFound",
	"confidence",
	"country",
	"searchId",
	"processedAt",
	"error",
}

// Write encodes items to w in the given format.
func Write(w io.Writer, format Format, items []json.RawMessage) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, items)
	case FormatCSV:
		return WriteCSV(w, items)
	case FormatXLSX:
		return WriteXLSX(w, items)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes items as an indented JSON array.
func WriteJSON(w io.Writer, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(items), "export: encode json")
}

// Row flattens one item into Columns order. Records and error items share
// the layout; fields an item lacks are left blank.
func Row(item json.RawMessage) []string {
	doc := gjson.ParseBytes(item)

	var phones []string
	doc.Get("phoneNumbers").ForEach(func(_, entry gjson.Result) bool {
		phones = append(phones, entry.Get("type").String()+": "+entry.Get("number").String())
		return true
	})

	found := ""
	if v := doc.Get("dataQuality.phoneNumbersFound"); v.Exists() {
		found = strconv.FormatInt(v.Int(), 10)
	}

	country := doc.Get("searchCriteria.country")
	if !country.Exists() || country.Type == gjson.Null {
		country = doc.Get("inputData.country")
	}

	processedAt := doc.Get("processedAt")
	if !processedAt.Exists() {
		processedAt = doc.Get("timestamp")
	}

	companyName := doc.Get("companyName")
	if !companyName.Exists() {
		companyName = doc.Get("inputData.companyName")
	}

	return []string{
		companyName.String(),
		doc.Get("mainPhone").String(),
		strings.Join(phones, "; "),
		found,
		doc.Get("dataQuality.confidence").String(),
		country.String(),
		doc.Get("searchId").String(),
		processedAt.String(),
		doc.Get("error").String(),
	}
}
