package finder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/model"
)

func newTestRunner(client *scriptedClient, w *recordingWait) *Runner {
	d := NewDispatcher(client, DefaultDispatcherConfig())
	return NewRunner(d,
		WithWait(w.wait),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestRun_IndividualSuccess(t *testing.T) {
	client := newScriptedClient().on("Acme", scriptStep{200, `{"phone":"+1-555-1234"}`})
	sink := newMemorySink()

	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-1",
		model.Input{Type: "individual", CompanyName: "Acme"}, sink)
	require.NoError(t, err)
	require.False(t, out.Failed())
	require.Len(t, out.Records, 1)

	items := sink.decodedItems()
	require.Len(t, items, 1)
	assert.Equal(t, "Acme", items[0]["companyName"])
	assert.Equal(t, "+1-555-1234", items[0]["mainPhone"])
	assert.Equal(t, []any{map[string]any{"type": "main", "number": "+1-555-1234"}}, items[0]["phoneNumbers"])
	assert.Equal(t, "high", items[0]["dataQuality"].(map[string]any)["confidence"])
	assert.Equal(t, "individual_1749981600000", items[0]["searchId"])

	var summary model.Summary
	require.NoError(t, json.Unmarshal(sink.values[model.SummaryKey], &summary))
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "individual", summary.Type)
	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, 1, summary.PhonesFound)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, "100.0%", summary.SuccessRate)
	require.NotNil(t, out.Summary)
	assert.Equal(t, summary.TotalProcessed, out.Summary.TotalProcessed)
}

func TestRun_IndividualFailureIsFatalRecord(t *testing.T) {
	client := newScriptedClient().on("Acme", scriptStep{403, `{"message":"denied"}`})
	sink := newMemorySink()

	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-1",
		model.Input{CompanyName: "Acme", Country: "US"}, sink)
	require.NoError(t, err)
	require.True(t, out.Failed())
	assert.Nil(t, out.Summary)
	assert.Empty(t, out.Records)

	var rf *ResolutionFailedError
	assert.True(t, errors.As(out.Fatal, &rf))

	items := sink.decodedItems()
	require.Len(t, items, 1)
	assert.Equal(t, "All attempts failed. Last status: 403", items[0]["error"])
	assert.Equal(t, "individual", items[0]["type"])
	details := items[0]["errorDetails"].(map[string]any)
	assert.Equal(t, float64(403), details["status"])
	assert.Equal(t, "Forbidden", details["statusText"])
	assert.Equal(t, map[string]any{"message": "denied"}, details["data"])
	assert.Equal(t, map[string]any{"companyName": "Acme", "country": "US"}, items[0]["inputData"])

	_, hasSummary := sink.values[model.SummaryKey]
	assert.False(t, hasSummary)
}

func TestRun_TransportFailureIsFatalRecord(t *testing.T) {
	client := newScriptedClient().on("Acme", scriptStep{0, ""})
	sink := newMemorySink()

	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-1",
		model.Input{CompanyName: "Acme"}, sink)
	require.NoError(t, err)

	var te *TransportError
	require.True(t, errors.As(out.Fatal, &te))
	items := sink.decodedItems()
	require.Len(t, items, 1)
	assert.Contains(t, items[0]["error"], "connection refused")
	assert.NotContains(t, items[0], "errorDetails")
}

func TestRun_MalformedBulkMakesNoCalls(t *testing.T) {
	for _, raw := range []string{`{"a":1}`, `Apple, Google`, `["A",`, `[1]`} {
		client := newScriptedClient()
		sink := newMemorySink()

		out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-1",
			model.Input{Type: "bulk", CompanyNames: raw}, sink)
		require.NoError(t, err)

		var mi *MalformedInputError
		assert.True(t, errors.As(out.Fatal, &mi), "input %q: got %v", raw, out.Fatal)
		assert.Zero(t, client.totalCalls(), "input %q", raw)

		items := sink.decodedItems()
		require.Len(t, items, 1)
		assert.Equal(t, "bulk", items[0]["type"])
	}
}

func TestRun_MissingCompanyName(t *testing.T) {
	client := newScriptedClient()
	sink := newMemorySink()

	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-1", model.Input{}, sink)
	require.NoError(t, err)

	var mf *MissingFieldError
	require.True(t, errors.As(out.Fatal, &mf))
	items := sink.decodedItems()
	require.Len(t, items, 1)
	assert.Equal(t, "companyName is required for individual search", items[0]["error"])
	assert.Equal(t, "individual", items[0]["type"])
	assert.Zero(t, client.totalCalls())
}

func TestRun_BulkMixedOutcomes(t *testing.T) {
	client := newScriptedClient().
		on("A", scriptStep{200, `{"phone":"+1-555-0001"}`}).
		on("B", scriptStep{503, `down`}).
		on("C", scriptStep{200, `{}`})
	w := &recordingWait{}
	sink := newMemorySink()

	out, err := newTestRunner(client, w).Run(context.Background(), "run-2",
		model.Input{Type: "bulk", CompanyNames: `["A","B","C"]`}, sink)
	require.NoError(t, err)
	require.False(t, out.Failed())

	items := sink.decodedItems()
	require.Len(t, items, 3)

	assert.Equal(t, "A", items[0]["companyName"])
	assert.Equal(t, "+1-555-0001", items[0]["mainPhone"])
	assert.Equal(t, "bulk_1749981600000_0", items[0]["searchId"])

	assert.Equal(t, "B", items[1]["companyName"])
	assert.Nil(t, items[1]["mainPhone"])
	assert.Equal(t, []any{}, items[1]["phoneNumbers"])
	assert.Equal(t, "All attempts failed for B. Last status: 503", items[1]["error"])
	assert.Equal(t, "bulk_error_1749981600000_1", items[1]["searchId"])
	assert.NotContains(t, items[1], "dataQuality")

	assert.Equal(t, "C", items[2]["companyName"])
	assert.Nil(t, items[2]["mainPhone"])
	assert.Equal(t, "low", items[2]["dataQuality"].(map[string]any)["confidence"])

	// Two backoffs for B's 503s, and pacing between the three companies.
	assert.Equal(t, []time.Duration{
		time.Second,
		500 * time.Millisecond, 500 * time.Millisecond,
		time.Second,
	}, w.recorded())

	var summary model.Summary
	require.NoError(t, json.Unmarshal(sink.values[model.SummaryKey], &summary))
	assert.Equal(t, "bulk", summary.Type)
	assert.Equal(t, 3, summary.TotalProcessed)
	assert.Equal(t, 1, summary.PhonesFound)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, "33.3%", summary.SuccessRate)
}

func TestRun_BulkOneRecordPerName(t *testing.T) {
	client := newScriptedClient().on("dup", scriptStep{200, `{"phone":"1"}`})
	sink := newMemorySink()

	names := `["dup","missing","dup","other","dup"]`
	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-3",
		model.Input{Type: "bulk", CompanyNames: names}, sink)
	require.NoError(t, err)
	require.Len(t, out.Records, 5)
	require.Len(t, sink.items, 5)

	got := make([]string, 0, 5)
	for _, r := range out.Records {
		got = append(got, r.CompanyName)
	}
	assert.Equal(t, []string{"dup", "missing", "dup", "other", "dup"}, got)
}

func TestRun_BulkEmptyWritesSentinel(t *testing.T) {
	client := newScriptedClient()
	sink := newMemorySink()

	out, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-4",
		model.Input{Type: "bulk", CompanyNames: `[]`, Country: "US"}, sink)
	require.NoError(t, err)
	require.False(t, out.Failed())

	items := sink.decodedItems()
	require.Len(t, items, 1)
	assert.Equal(t, NoResultsMessage, items[0]["error"])
	assert.Equal(t, "bulk", items[0]["type"])
	assert.Equal(t, map[string]any{"country": "US", "companyNamesLength": float64(0)}, items[0]["inputData"])

	var summary model.Summary
	require.NoError(t, json.Unmarshal(sink.values[model.SummaryKey], &summary))
	assert.Zero(t, summary.TotalProcessed)
	assert.Equal(t, "0%", summary.SuccessRate)
}

func TestRun_SinkFailure(t *testing.T) {
	client := newScriptedClient().on("Acme", scriptStep{200, `{"phone":"1"}`})
	sink := newMemorySink()
	sink.err = errors.New("disk full")

	_, err := newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-5",
		model.Input{CompanyName: "Acme"}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finder: push items")

	_, err = newTestRunner(client, &recordingWait{}).Run(context.Background(), "run-6", model.Input{}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finder: push error item")
}

func TestRun_CancelledBulkStillPersists(t *testing.T) {
	client := newScriptedClient().on("A", scriptStep{200, `{"phone":"1"}`})
	sink := newMemorySink()
	ctx, cancel := context.WithCancel(context.Background())

	w := &recordingWait{}
	r := newTestRunner(client, w)
	r.wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	out, err := r.Run(ctx, "run-7", model.Input{Type: "bulk", CompanyNames: `["A","B"]`}, sink)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Fatal, context.Canceled)
	require.Len(t, sink.items, 1)
	assert.Equal(t, 1, client.totalCalls())
}
