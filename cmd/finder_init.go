package main

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/internal/finder"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/store"
	"github.com/sells-group/phone-finder/pkg/webhook"
)

// finderEnv holds the store and runner needed by the run and serve commands.
type finderEnv struct {
	Store  store.Store
	Runner *finder.Runner
}

// Close releases resources held by the environment.
func (e *finderEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initFinder validates the config for mode, opens the store and wires the
// webhook client into a runner. Callers should defer env.Close().
func initFinder(ctx context.Context, mode string) (*finderEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	client := webhook.NewClient(
		webhook.WithURL(cfg.Webhook.URL),
		webhook.WithTimeout(cfg.Webhook.Timeout()),
		webhook.WithRateLimit(cfg.Webhook.RateLimitRPS),
	)
	return newFinderEnv(st, client, cfg), nil
}

// newFinderEnv builds the runner from c around an existing store and client.
func newFinderEnv(st store.Store, client webhook.Client, c *config.Config, opts ...finder.RunnerOption) *finderEnv {
	d := finder.NewDispatcher(client, finder.DispatcherConfig{
		UserAgents:        c.Webhook.UserAgents,
		MaxAttempts:       c.Webhook.MaxAttempts,
		IndividualBackoff: c.Webhook.IndividualBackoff(),
		BulkBackoff:       c.Webhook.BulkBackoff(),
	})
	opts = append([]finder.RunnerOption{finder.WithPacing(c.Batch.Pacing())}, opts...)
	return &finderEnv{
		Store:  st,
		Runner: finder.NewRunner(d, opts...),
	}
}

// runResult is the persisted outcome of one run.
type runResult struct {
	Run     *model.Run        `json:"run"`
	Items   []json.RawMessage `json:"items"`
	Summary *model.Summary    `json:"summary"`
}

// execute records a new run, drives it to completion and marks its final
// status. Lookup failures end in a failed run, not an error.
func (e *finderEnv) execute(ctx context.Context, in model.Input) (*runResult, error) {
	run, err := e.Store.CreateRun(ctx, in)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	finishCtx := context.WithoutCancel(ctx)

	out, err := e.Runner.Run(ctx, run.ID, in, store.NewRunSink(e.Store, run.ID))
	if err != nil {
		if ferr := e.Store.FinishRun(finishCtx, run.ID, model.RunStatusFailed, err.Error()); ferr != nil {
			log.Error("mark run failed", zap.Error(ferr))
		}
		return nil, eris.Wrap(err, "run")
	}

	status, msg := model.RunStatusComplete, ""
	if out.Failed() {
		status, msg = model.RunStatusFailed, out.Fatal.Error()
	}
	if err := e.Store.FinishRun(finishCtx, run.ID, status, msg); err != nil {
		return nil, eris.Wrap(err, "finish run")
	}
	run.Status = status
	run.Error = msg

	return &runResult{Run: run, Items: out.Items, Summary: out.Summary}, nil
}
