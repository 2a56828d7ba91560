package finder

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/sells-group/phone-finder/internal/model"
)

// Confidence tiers derived when the webhook does not report one.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// mainPhoneFields are probed in precedence order.
var mainPhoneFields = []string{"phone", "phoneNumber", "mainPhone"}

// NormalizeResult maps a webhook response body of any shape onto a Record.
// A body that is not JSON resolves nothing.
func NormalizeResult(company string, req model.Request, body []byte, now time.Time, searchID string) model.Record {
	var doc gjson.Result
	if gjson.ValidBytes(body) {
		doc = gjson.ParseBytes(body)
	}

	var mainPhone *string
	for _, field := range mainPhoneFields {
		if v := doc.Get(field); truthy(v) {
			s := v.String()
			mainPhone = &s
			break
		}
	}

	phones := phoneEntries(doc.Get("phoneNumbers"))
	// Without a list, the single entry mirrors whichever field gave mainPhone.
	if phones == nil {
		phones = []model.PhoneEntry{}
		if mainPhone != nil {
			phones = append(phones, model.PhoneEntry{Type: "main", Number: *mainPhone})
		}
	}

	confidence := ConfidenceLow
	if v := doc.Get("confidence"); truthy(v) {
		confidence = v.String()
	} else if mainPhone != nil {
		confidence = ConfidenceHigh
	}

	return model.Record{
		CompanyName:  company,
		MainPhone:    mainPhone,
		PhoneNumbers: phones,
		CompanyInfo: &model.CompanyInfo{
			Name:       company,
			Country:    req.CountryPtr(),
			SearchedAt: now,
			Source:     model.Source,
			Verified:   true,
		},
		DataQuality: &model.DataQuality{
			PhoneNumbersFound: len(phones),
			Confidence:        confidence,
		},
		SearchCriteria: &model.SearchCriteria{
			PhoneTypes: req.PhoneTypes,
			MaxResults: req.MaxResults,
			Country:    req.CountryPtr(),
		},
		ProcessedAt: now,
		SearchID:    searchID,
	}
}

// phoneEntries converts a phoneNumbers array. It returns nil when v is not
// an array, so the caller falls back to the scalar phone.
func phoneEntries(v gjson.Result) []model.PhoneEntry {
	if !v.IsArray() {
		return nil
	}
	entries := []model.PhoneEntry{}
	v.ForEach(func(_, e gjson.Result) bool {
		switch {
		case e.IsObject():
			number := e.Get("number")
			if !number.Exists() {
				number = e.Get("phone")
			}
			entries = append(entries, model.PhoneEntry{Type: e.Get("type").String(), Number: number.String()})
		case e.Type == gjson.String || e.Type == gjson.Number:
			entries = append(entries, model.PhoneEntry{Type: "other", Number: e.String()})
		}
		return true
	})
	return entries
}

// truthy follows the loose truthiness webhook payloads are written against:
// missing, null, false, 0 and "" are all absent.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}
