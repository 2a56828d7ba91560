package finder

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/phone-finder/internal/model"
)

// LoadInput reads an input document from path, or from stdin when path is
// "-". Files ending in .yaml or .yml are decoded as YAML, everything else as
// JSON.
func LoadInput(path string, stdin io.Reader) (model.Input, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Input{}, eris.Wrapf(err, "finder: read input %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAMLInput(data)
	default:
		return DecodeInput(data)
	}
}

// DecodeInput decodes a JSON input document.
func DecodeInput(data []byte) (model.Input, error) {
	var in model.Input
	if len(bytes.TrimSpace(data)) == 0 {
		return in, eris.New("finder: no input provided")
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, eris.Wrap(err, "finder: decode input")
	}
	return in, nil
}

// DecodeYAMLInput decodes a YAML input document.
func DecodeYAMLInput(data []byte) (model.Input, error) {
	var in model.Input
	if len(bytes.TrimSpace(data)) == 0 {
		return in, eris.New("finder: no input provided")
	}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return in, eris.Wrap(err, "finder: decode yaml input")
	}
	return in, nil
}

// NormalizeInput validates in and applies defaults. It never touches the
// network.
func NormalizeInput(in model.Input) (model.Request, error) {
	req := model.Request{
		Mode:       model.Mode(in.Type),
		Country:    in.Country,
		PhoneTypes: in.PhoneTypes,
		MaxResults: model.DefaultMaxResults,
	}
	if req.Mode == "" {
		req.Mode = model.ModeIndividual
	}
	if req.PhoneTypes == nil {
		req.PhoneTypes = model.DefaultPhoneTypes()
	}
	if in.MaxResults != nil {
		req.MaxResults = *in.MaxResults
	}

	switch req.Mode {
	case model.ModeIndividual:
		name := strings.TrimSpace(in.CompanyName)
		if name == "" {
			return req, &MissingFieldError{Field: "companyName", Mode: req.Mode}
		}
		req.CompanyName = name
	case model.ModeBulk:
		names, err := ParseCompanyNames(in.CompanyNames)
		if err != nil {
			return req, err
		}
		req.CompanyNames = names
	default:
		return req, &MalformedInputError{Reason: "type must be individual or bulk, got " + in.Type}
	}
	return req, nil
}

// ParseCompanyNames parses the bulk company list. The payload must be a JSON
// array whose elements are all strings; any other JSON shape is rejected
// even if it parses.
func ParseCompanyNames(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, &MissingFieldError{Field: "companyNames", Mode: model.ModeBulk}
	}
	if !strings.HasPrefix(cleaned, "[") {
		return nil, &MalformedInputError{Reason: "Company names must be in JSON array format"}
	}

	// Decoding into a slice rejects every non-array shape.
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elems); err != nil {
		return nil, &MalformedInputError{Reason: "JSON data must be an array: " + err.Error()}
	}

	names := make([]string, 0, len(elems))
	for i, e := range elems {
		var name string
		if bytes.Equal(e, []byte("null")) || json.Unmarshal(e, &name) != nil {
			return nil, &MalformedInputError{Reason: "element " + strconv.Itoa(i) + " is not a string"}
		}
		names = append(names, name)
	}
	return names, nil
}
