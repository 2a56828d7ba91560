package model

import (
	"strconv"
	"time"
)

// SummaryKey names the auxiliary state entry holding the run summary.
const SummaryKey = "PHONE_FINDER_SUMMARY"

// Summary aggregates the records of one run.
type Summary struct {
	RunID          string    `json:"runId,omitempty"`
	Type           string    `json:"type"`
	TotalProcessed int       `json:"totalProcessed"`
	PhonesFound    int       `json:"phonesFound"`
	Errors         int       `json:"errors"`
	SuccessRate    string    `json:"successRate"`
	ProcessedAt    time.Time `json:"processedAt"`
}

// Summarize computes the summary of a finished run.
func Summarize(runID, mode string, records []Record, now time.Time) Summary {
	s := Summary{
		RunID:          runID,
		Type:           mode,
		TotalProcessed: len(records),
		ProcessedAt:    now,
	}
	for _, r := range records {
		if r.Found() {
			s.PhonesFound++
		}
		if r.Error != "" {
			s.Errors++
		}
	}
	s.SuccessRate = SuccessRate(s.PhonesFound, s.TotalProcessed)
	return s
}

// SuccessRate formats found/total as a percentage with one decimal, or "0%"
// when total is zero.
func SuccessRate(found, total int) string {
	if total <= 0 {
		return "0%"
	}
	pct := float64(found) / float64(total) * 100
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}
