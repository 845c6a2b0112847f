package predictor

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/dispatcher"
	"github.com/sc2helper/predictor/internal/logging"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/sc2helper/predictor/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	result any
	err    error
}

func newDispatcher(t *testing.T, svc *Service) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(io.Discard, "debug")))
	require.NoError(t, err)
	require.NoError(t, svc.RegisterHandlers(d))
	t.Cleanup(d.Close)
	return d
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// dispatchAndWait sends a buffered command and waits for its reply.
func dispatchAndWait(t *testing.T, d *dispatcher.Dispatcher, cmd string, args ...string) reply {
	t.Helper()
	ch := make(chan reply, 1)
	res, err := d.Dispatch(context.Background(), dispatcher.Event{
		ID:      "test",
		Command: cmd,
		Args:    args,
		Reply:   func(r any, err error) { ch <- reply{r, err} },
	})
	require.NoError(t, err)
	require.Equal(t, dispatcher.Queued, res)

	select {
	case r := <-ch:
		return r
	case <-time.After(10 * time.Second):
		t.Fatalf("no reply for %s", cmd)
		return reply{}
	}
}

func TestRegisterHandlers(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	assert.Equal(t, []string{CmdBatch, CmdHistory, CmdMetric, CmdPredict, CmdStats, CmdUnits, CmdVersion}, d.Commands())
	assert.Error(t, f.svc.RegisterHandlers(d), "registering twice must fail")
}

func TestHandleVersionAndUnits(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	ctx := context.Background()

	res, err := d.Dispatch(ctx, dispatcher.Event{Command: CmdVersion})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "test"}, res)

	res, err = d.Dispatch(ctx, dispatcher.Event{Command: CmdUnits})
	require.NoError(t, err)
	names, ok := res.([]string)
	require.True(t, ok)
	assert.Contains(t, names, "Marine")
	assert.Contains(t, names, "Zergling")
}

func TestHandlePredict(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	r := dispatchAndWait(t, d, CmdPredict, mustJSON(t, lopsided(8)))
	require.NoError(t, r.err)
	resp, ok := r.result.(Response)
	require.True(t, ok)
	assert.Equal(t, 2, resp.Winner)
	assert.Equal(t, int64(8), resp.Seed)

	res, err := d.Dispatch(context.Background(), dispatcher.Event{Command: CmdStats})
	require.NoError(t, err)
	st := res.(Stats)
	assert.Equal(t, int64(1), st.Predictions)
	assert.Equal(t, int64(1), st.Stored)
}

func TestHandlePredictErrors(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	r := dispatchAndWait(t, d, CmdPredict)
	assert.ErrorIs(t, r.err, ErrMissingArgs)

	r = dispatchAndWait(t, d, CmdPredict, "{not json")
	assert.ErrorContains(t, r.err, "decode request")

	r = dispatchAndWait(t, d, CmdPredict, `{"seed":1}`)
	assert.ErrorIs(t, r.err, ErrEmptyRoster)
}

func TestHandleHistory(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	ctx := context.Background()

	for seed := int64(1); seed <= 3; seed++ {
		_, err := f.svc.Predict(ctx, lopsided(seed))
		require.NoError(t, err)
	}

	res, err := d.Dispatch(ctx, dispatcher.Event{Command: CmdHistory, Args: []string{"2"}})
	require.NoError(t, err)
	history, ok := res.([]model.Prediction)
	require.True(t, ok)
	require.Len(t, history, 2)
	assert.Equal(t, int64(3), history[0].Seed)
	assert.Equal(t, int64(2), history[1].Seed)

	res, err = d.Dispatch(ctx, dispatcher.Event{Command: CmdHistory})
	require.NoError(t, err)
	assert.Len(t, res, 3)

	_, err = d.Dispatch(ctx, dispatcher.Event{Command: CmdHistory, Args: []string{"-1"}})
	assert.Error(t, err)
}

func TestHandleHistoryWithoutHistoryBackend(t *testing.T) {
	svc, err := NewService(Dependencies{Catalog: catalog.Default()})
	require.NoError(t, err)
	d := newDispatcher(t, svc)

	_, err = d.Dispatch(context.Background(), dispatcher.Event{Command: CmdHistory})
	assert.ErrorContains(t, err, "no history")
}

func TestHandleMetricWithoutInflux(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	_, err := d.Dispatch(context.Background(), dispatcher.Event{
		Command: CmdMetric,
		Args:    []string{"custom", "tag::side::1", "field::int::value::3"},
	})
	assert.ErrorContains(t, err, "influx is not configured")
}

func TestHandleBatch(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	req := BatchRequest{Request: lopsided(21), Name: "lings", Runs: 4, Workers: 2}
	r := dispatchAndWait(t, d, CmdBatch, mustJSON(t, req))
	require.NoError(t, r.err)

	summary, ok := r.result.(worker.BatchSummary)
	require.True(t, ok)
	assert.Equal(t, "lings", summary.Name)
	assert.Equal(t, 4, summary.Runs)
	assert.Equal(t, [2]int{0, 4}, summary.Wins)
	assert.Equal(t, int64(21), summary.BaseSeed)

	count, err := f.store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	recent, err := f.store.Recent(1)
	require.NoError(t, err)
	assert.Equal(t, model.SourceBatch, recent[0].Source)
}

func TestHandleBatchEmptyRoster(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	r := dispatchAndWait(t, d, CmdBatch, `{"runs":3}`)
	assert.ErrorIs(t, r.err, ErrEmptyRoster)

	// a single populated side wins every run untouched
	r = dispatchAndWait(t, d, CmdBatch, `{"runs":3,"seed":2,"side2":[{"type":"Zergling"}]}`)
	require.NoError(t, r.err)
	summary, ok := r.result.(worker.BatchSummary)
	require.True(t, ok)
	assert.Equal(t, [2]int{0, 3}, summary.Wins)
	assert.Equal(t, 35.0, summary.MeanHealth[1])
}
