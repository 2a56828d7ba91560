package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/store"
)

// brokenItemsStore fails every dataset write.
type brokenItemsStore struct {
	store.Store
}

func (brokenItemsStore) PushItems(context.Context, string, []json.RawMessage) error {
	return errors.New("disk full")
}

func TestExecute_Individual(t *testing.T) {
	env := newTestEnv(t, phoneBook{"Acme": {200, `{"phone":"+1-555-1234","confidence":"medium"}`}})
	ctx := context.Background()

	res, err := env.execute(ctx, model.Input{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)
	require.Len(t, res.Items, 1)

	got, err := env.Store.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Empty(t, got.Error)

	value, err := env.Store.GetValue(ctx, res.Run.ID, model.SummaryKey)
	require.NoError(t, err)
	assert.Contains(t, string(value), `"successRate":"100.0%"`)
}

func TestExecute_FatalRunMarkedFailed(t *testing.T) {
	env := newTestEnv(t, phoneBook{"Acme": {403, `{"error":"blocked"}`}})
	ctx := context.Background()

	res, err := env.execute(ctx, model.Input{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, res.Run.Status)
	assert.Equal(t, "All attempts failed. Last status: 403", res.Run.Error)

	items, err := env.Store.ListItems(ctx, res.Run.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, string(items[0]), `"statusText":"Forbidden"`)

	got, err := env.Store.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestExecute_SinkFailure(t *testing.T) {
	env := newTestEnv(t, phoneBook{"Acme": {200, `{"phone":"1"}`}})
	ctx := context.Background()
	inner := env.Store
	env.Store = brokenItemsStore{Store: inner}

	_, err := env.execute(ctx, model.Input{CompanyName: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	runs, err := inner.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "disk full")
}
