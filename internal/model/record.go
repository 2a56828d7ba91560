package model

import (
	"encoding/json"
	"time"
)

// Source tags every payload and record produced by this tool.
const Source = "company-phone-finder"

// PhoneEntry is one typed phone number.
type PhoneEntry struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// CompanyInfo echoes the company that was searched.
type CompanyInfo struct {
	Name       string    `json:"name"`
	Country    *string   `json:"country"`
	SearchedAt time.Time `json:"searchedAt"`
	Source     string    `json:"source"`
	Verified   bool      `json:"verified"`
}

// DataQuality reports how much was found and how sure the endpoint was.
type DataQuality struct {
	PhoneNumbersFound int    `json:"phoneNumbersFound"`
	Confidence        string `json:"confidence"`
}

// SearchCriteria echoes the search parameters of the request.
type SearchCriteria struct {
	PhoneTypes []string `json:"phoneTypes"`
	MaxResults int      `json:"maxResults"`
	Country    *string  `json:"country"`
}

// Record is the normalized outcome of resolving one company. Records with
// Error set carry no CompanyInfo, DataQuality or SearchCriteria.
type Record struct {
	CompanyName    string          `json:"companyName"`
	MainPhone      *string         `json:"mainPhone"`
	PhoneNumbers   []PhoneEntry    `json:"phoneNumbers"`
	CompanyInfo    *CompanyInfo    `json:"companyInfo,omitempty"`
	DataQuality    *DataQuality    `json:"dataQuality,omitempty"`
	SearchCriteria *SearchCriteria `json:"searchCriteria,omitempty"`
	ProcessedAt    time.Time       `json:"processedAt"`
	SearchID       string          `json:"searchId"`
	Error          string          `json:"error,omitempty"`
}

// Found reports whether the record resolved a main phone without error.
func (r Record) Found() bool {
	return r.MainPhone != nil && r.Error == ""
}

// ErrorDetails carries the last endpoint response behind a fatal failure.
type ErrorDetails struct {
	Status     int             `json:"status,omitempty"`
	StatusText string          `json:"statusText,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// InputData echoes the parts of the input that identify a failed run.
type InputData struct {
	CompanyName        string  `json:"companyName,omitempty"`
	Country            *string `json:"country"`
	CompanyNamesLength *int    `json:"companyNamesLength,omitempty"`
}

// ErrorItem is written to the dataset in place of records when a run fails
// outright or produces nothing.
type ErrorItem struct {
	Error        string        `json:"error"`
	ErrorDetails *ErrorDetails `json:"errorDetails,omitempty"`
	Type         string        `json:"type"`
	Timestamp    time.Time     `json:"timestamp"`
	InputData    InputData     `json:"inputData"`
}
