package finder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resilience"
)

// NoResultsMessage is the sentinel error written when a run produces no
// records.
const NoResultsMessage = "No phone results generated"

// Sink persists the output of one run: an ordered dataset plus named values.
type Sink interface {
	PushItems(ctx context.Context, items []json.RawMessage) error
	SetValue(ctx context.Context, key string, value json.RawMessage) error
}

// Outcome is what a run persisted.
type Outcome struct {
	Records []model.Record
	Items   []json.RawMessage
	Summary *model.Summary
	// Fatal is the failure that replaced the records with a single error
	// item, if any.
	Fatal error
}

// Failed reports whether the run ended in a fatal failure.
func (o *Outcome) Failed() bool {
	return o.Fatal != nil
}

// Runner drives a whole run: input validation, lookups, and output.
type Runner struct {
	dispatcher *Dispatcher
	pacing     time.Duration
	wait       resilience.WaitFunc
	now        func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPacing sets the delay between companies in bulk mode.
func WithPacing(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.pacing = d
	}
}

// WithWait replaces the sleep used for pacing and backoff.
func WithWait(w resilience.WaitFunc) RunnerOption {
	return func(r *Runner) {
		r.wait = w
		r.dispatcher.wait = w
	}
}

// WithClock replaces the time source for timestamps and search ids.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
		r.dispatcher.now = now
	}
}

// NewRunner creates a Runner around d.
func NewRunner(d *Dispatcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		dispatcher: d,
		pacing:     time.Second,
		wait:       resilience.Wait,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one run and persists its output to sink. Lookup and input
// failures are recorded as data; the returned error is non-nil only when
// the sink itself fails.
func (r *Runner) Run(ctx context.Context, runID string, in model.Input, sink Sink) (*Outcome, error) {
	log := zap.L().With(zap.String("run_id", runID))
	// Output is persisted even if the caller gives up mid-run.
	persistCtx := context.WithoutCancel(ctx)

	req, err := NormalizeInput(in)
	if err != nil {
		return r.fail(persistCtx, log, in, err, sink)
	}

	log.Info("run started",
		zap.String("mode", string(req.Mode)),
		zap.Int("companies", len(req.Names())),
	)

	records, err := r.Process(ctx, req)
	if err != nil {
		return r.fail(persistCtx, log, in, err, sink)
	}

	out := &Outcome{Records: records}
	if len(records) == 0 {
		n := len(req.CompanyNames)
		sentinel := model.ErrorItem{
			Error:     NoResultsMessage,
			Type:      string(req.Mode),
			Timestamp: r.now().UTC(),
			InputData: model.InputData{
				CompanyName:        req.CompanyName,
				Country:            req.CountryPtr(),
				CompanyNamesLength: &n,
			},
		}
		item, err := marshalItem(sentinel)
		if err != nil {
			return nil, err
		}
		out.Items = []json.RawMessage{item}
		log.Warn("no results, saving error item")
	} else {
		for _, rec := range records {
			item, err := marshalItem(rec)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
	}

	if err := sink.PushItems(persistCtx, out.Items); err != nil {
		return nil, eris.Wrap(err, "finder: push items")
	}

	summary := model.Summarize(runID, string(req.Mode), records, r.now().UTC())
	value, err := json.Marshal(summary)
	if err != nil {
		return nil, eris.Wrap(err, "finder: marshal summary")
	}
	if err := sink.SetValue(persistCtx, model.SummaryKey, value); err != nil {
		return nil, eris.Wrap(err, "finder: set summary")
	}
	out.Summary = &summary

	log.Info("run complete",
		zap.Int("total_processed", summary.TotalProcessed),
		zap.Int("phones_found", summary.PhonesFound),
		zap.Int("errors", summary.Errors),
		zap.String("success_rate", summary.SuccessRate),
	)
	return out, nil
}

// Process looks up every company of req. In individual mode a lookup failure
// is returned; in bulk mode it becomes an error-flagged record and the batch
// continues.
func (r *Runner) Process(ctx context.Context, req model.Request) ([]model.Record, error) {
	if req.Mode == model.ModeBulk {
		return r.processBulk(ctx, req)
	}

	resp, err := r.dispatcher.Dispatch(ctx, req.CompanyName, req)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	rec := NormalizeResult(req.CompanyName, req, resp.Body, now, fmt.Sprintf("individual_%d", now.UnixMilli()))
	logRecord(rec)
	return []model.Record{rec}, nil
}

func (r *Runner) processBulk(ctx context.Context, req model.Request) ([]model.Record, error) {
	total := len(req.CompanyNames)
	records := make([]model.Record, 0, total)

	for i, name := range req.CompanyNames {
		if i > 0 {
			if err := r.wait(ctx, r.pacing); err != nil {
				return nil, err
			}
		}

		resp, err := r.dispatcher.Dispatch(ctx, name, req)
		now := r.now().UTC()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Error("lookup failed",
				zap.String("company", name),
				zap.Error(err),
			)
			records = append(records, model.Record{
				CompanyName:  name,
				PhoneNumbers: []model.PhoneEntry{},
				Error:        err.Error(),
				ProcessedAt:  now,
				SearchID:     fmt.Sprintf("bulk_error_%d_%d", now.UnixMilli(), i),
			})
			continue
		}

		rec := NormalizeResult(name, req, resp.Body, now, fmt.Sprintf("bulk_%d_%d", now.UnixMilli(), i))
		records = append(records, rec)
		zap.L().Info("bulk progress", zap.Int("done", i+1), zap.Int("total", total))
		logRecord(rec)
	}
	return records, nil
}

// fail persists a single error item describing err.
func (r *Runner) fail(ctx context.Context, log *zap.Logger, in model.Input, cause error, sink Sink) (*Outcome, error) {
	log.Error("run failed", zap.Error(cause))

	mode := in.Type
	if mode == "" {
		mode = string(model.ModeIndividual)
	}
	item := model.ErrorItem{
		Error:     cause.Error(),
		Type:      mode,
		Timestamp: r.now().UTC(),
		InputData: model.InputData{
			CompanyName: in.CompanyName,
			Country:     model.NullableString(in.Country),
		},
	}
	var rf *ResolutionFailedError
	if errors.As(cause, &rf) {
		item.ErrorDetails = rf.Details()
	}

	raw, err := marshalItem(item)
	if err != nil {
		return nil, err
	}
	if err := sink.PushItems(ctx, []json.RawMessage{raw}); err != nil {
		return nil, eris.Wrap(err, "finder: push error item")
	}
	return &Outcome{Items: []json.RawMessage{raw}, Fatal: cause}, nil
}

func marshalItem(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "finder: marshal item")
	}
	return data, nil
}

func logRecord(rec model.Record) {
	phone := "No phone found"
	if rec.MainPhone != nil {
		phone = *rec.MainPhone
	}
	zap.L().Info("lookup result",
		zap.String("company", rec.CompanyName),
		zap.String("main_phone", phone),
		zap.Int("phone_numbers", len(rec.PhoneNumbers)),
	)
}
