package finder

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sells-group/phone-finder/internal/model"
)

// MalformedInputError reports an input document whose shape is unusable,
// such as a bulk company list that is not a JSON array of strings.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "Invalid format: " + e.Reason + `. Use JSON array format like ["Apple Inc", "Google"].`
}

// MissingFieldError reports a required input field that is absent.
type MissingFieldError struct {
	Field string
	Mode  model.Mode
}

func (e *MissingFieldError) Error() string {
	if e.Mode == model.ModeBulk {
		return e.Field + " array is required for bulk processing"
	}
	return e.Field + " is required for individual search"
}

// ResolutionFailedError reports that every attempt was answered without a
// 200, or that nothing answered at all (LastStatus 0).
type ResolutionFailedError struct {
	Company    string
	Mode       model.Mode
	LastStatus int
	LastBody   []byte
}

func (e *ResolutionFailedError) Error() string {
	status := "No response"
	if e.LastStatus != 0 {
		status = strconv.Itoa(e.LastStatus)
	}
	if e.Mode == model.ModeBulk {
		return fmt.Sprintf("All attempts failed for %s. Last status: %s", e.Company, status)
	}
	return "All attempts failed. Last status: " + status
}

// Details converts the last response into the error item details.
func (e *ResolutionFailedError) Details() *model.ErrorDetails {
	if e.LastStatus == 0 {
		return nil
	}
	d := &model.ErrorDetails{
		Status:     e.LastStatus,
		StatusText: http.StatusText(e.LastStatus),
	}
	if len(e.LastBody) > 0 {
		if json.Valid(e.LastBody) {
			d.Data = json.RawMessage(e.LastBody)
		} else if quoted, err := json.Marshal(string(e.LastBody)); err == nil {
			d.Data = quoted
		}
	}
	return d
}

// TransportError reports a network failure that hit the attempt ceiling.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("attempt %d: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
