package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestSuccessRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		found, total int
		want         string
	}{
		{0, 0, "0%"},
		{0, 3, "0.0%"},
		{1, 2, "50.0%"},
		{2, 3, "66.7%"},
		{1, 3, "33.3%"},
		{4, 4, "100.0%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SuccessRate(tt.found, tt.total), "found=%d total=%d", tt.found, tt.total)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	records := []Record{
		{CompanyName: "A", MainPhone: strPtr("+1-555-0001")},
		{CompanyName: "B"},
		{CompanyName: "C", Error: "All attempts failed for C. Last status: 503"},
	}

	s := Summarize("run-1", "bulk", records, now)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "bulk", s.Type)
	assert.Equal(t, 3, s.TotalProcessed)
	assert.Equal(t, 1, s.PhonesFound)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, "33.3%", s.SuccessRate)
	assert.Equal(t, now, s.ProcessedAt)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize("run-2", "bulk", nil, time.Now())
	assert.Zero(t, s.TotalProcessed)
	assert.Equal(t, "0%", s.SuccessRate)
}

func TestRecordFound(t *testing.T) {
	t.Parallel()

	assert.True(t, Record{MainPhone: strPtr("1")}.Found())
	assert.False(t, Record{}.Found())
	assert.False(t, Record{MainPhone: strPtr("1"), Error: "boom"}.Found())
}
