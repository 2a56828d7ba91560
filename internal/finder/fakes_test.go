package finder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sells-group/phone-finder/internal/resilience"
	"github.com/sells-group/phone-finder/pkg/webhook"
)

// call records one Lookup invocation.
type call struct {
	payload   webhook.Payload
	userAgent string
}

// scriptedClient answers Lookup from a per-company script of responses.
// An entry with status 0 simulates a transient transport failure and -1 a
// client error that no retry can fix. When a script is exhausted its last
// entry repeats.
type scriptedClient struct {
	mu      sync.Mutex
	scripts map[string][]scriptStep
	calls   []call
}

type scriptStep struct {
	status int
	body   string
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{scripts: map[string][]scriptStep{}}
}

func (c *scriptedClient) on(company string, steps ...scriptStep) *scriptedClient {
	c.scripts[company] = steps
	return c
}

func (c *scriptedClient) Lookup(_ context.Context, payload webhook.Payload, userAgent string) (*webhook.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, prev := range c.calls {
		if prev.payload.CompanyName == payload.CompanyName {
			n++
		}
	}
	c.calls = append(c.calls, call{payload: payload, userAgent: userAgent})

	steps := c.scripts[payload.CompanyName]
	if len(steps) == 0 {
		return &webhook.Response{StatusCode: 404, Body: []byte(`{"error":"unknown company"}`)}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	step := steps[n]
	if step.status < 0 {
		return nil, errors.New("webhook: marshal payload: unsupported value")
	}
	if step.status == 0 {
		return nil, resilience.NewTransientError(errors.New("dial tcp: connection refused"), 0)
	}
	return &webhook.Response{StatusCode: step.status, Body: []byte(step.body)}, nil
}

func (c *scriptedClient) callsFor(company string) []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []call
	for _, cl := range c.calls {
		if cl.payload.CompanyName == company {
			out = append(out, cl)
		}
	}
	return out
}

func (c *scriptedClient) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// recordingWait records requested waits without sleeping.
type recordingWait struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *recordingWait) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.waits...)
}

// memorySink collects run output in memory.
type memorySink struct {
	items  []json.RawMessage
	values map[string]json.RawMessage
	err    error
}

func newMemorySink() *memorySink {
	return &memorySink{values: map[string]json.RawMessage{}}
}

func (s *memorySink) PushItems(_ context.Context, items []json.RawMessage) error {
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, items...)
	return nil
}

func (s *memorySink) SetValue(_ context.Context, key string, value json.RawMessage) error {
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

func (s *memorySink) decodedItems() []map[string]any {
	out := make([]map[string]any, 0, len(s.items))
	for _, it := range s.items {
		var m map[string]any
		if err := json.Unmarshal(it, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}
