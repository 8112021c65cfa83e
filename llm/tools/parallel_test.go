package tools

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/tripflow/types"
)

// delayRegistry registers every catalog tool with a handler that sleeps for
// params["delay_ms"] and echoes params["id"].
func delayRegistry(t testing.TB, inFlight, peak *int64) *Registry {
	r := NewRegistry(zap.NewNop())
	for _, name := range Catalog {
		r.MustRegister(name, func(ctx context.Context, p Params) (any, error) {
			if inFlight != nil {
				n := atomic.AddInt64(inFlight, 1)
				defer atomic.AddInt64(inFlight, -1)
				for {
					old := atomic.LoadInt64(peak)
					if n <= old || atomic.CompareAndSwapInt64(peak, old, n) {
						break
					}
				}
			}
			d, _ := p.Int("delay_ms")
			select {
			case <-time.After(time.Duration(d) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if p.Text("fail") == "yes" {
				return nil, types.NewTimeoutError("flaky")
			}
			if p.Text("fatal") == "yes" {
				return nil, types.NewError(types.ErrInvalidArguments, "bad request")
			}
			return p.Text("id"), nil
		}, Metadata{Timeout: time.Second})
	}
	return r
}

func TestExecuteAll_PreservesOrder(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil, WithMaxConcurrency(8))

	invs := []Invocation{
		{Tool: SearchFlights, Params: Params{"id": "a", "delay_ms": 40}},
		{Tool: GetWeather, Params: Params{"id": "b", "delay_ms": 1}},
		{Tool: GetDestinationInfo, Params: Params{"id": "c", "delay_ms": 20}},
	}
	results := e.ExecuteAll(context.Background(), invs)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, string(invs[i].Tool), r.ToolName)
		assert.Equal(t, invs[i].Params.Text("id"), r.Output)
	}
}

func TestExecuteAll_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int64
	e := NewExecutor(delayRegistry(t, &inFlight, &peak), nil, WithMaxConcurrency(2))

	invs := make([]Invocation, 6)
	for i := range invs {
		invs[i] = Invocation{Tool: Catalog[i], Params: Params{"delay_ms": 15}}
	}
	results := e.ExecuteAll(context.Background(), invs)

	assert.Equal(t, 6, Summarize(results).Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestExecuteAll_PartialFailure(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil)

	results := e.ExecuteAll(context.Background(), []Invocation{
		{Tool: SearchFlights, Params: Params{"id": "ok"}},
		{Tool: GetWeather, Params: Params{"fail": "yes"}},
		{Tool: GetDestinationInfo, Params: Params{"fail": "yes", "delay_ms": 5}},
	})

	rep := Summarize(results)
	assert.Equal(t, Report{Total: 3, Succeeded: 1, Failed: 2}, rep)
	assert.True(t, rep.Partial())
	assert.False(t, rep.AllSucceeded())
	assert.Equal(t, []int{1, 2}, FailedIndices(results))

	first := FirstFailure(results)
	require.NotNil(t, first)
	assert.Equal(t, types.ErrTimeout, first.Code)
	assert.Equal(t, "get_weather", first.Tool)
}

func TestExecuteAll_FatalFailureCancelsOutstanding(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil, WithMaxConcurrency(4))

	start := time.Now()
	results := e.ExecuteAll(context.Background(), []Invocation{
		{Tool: GetWeather, Params: Params{"id": "fast", "delay_ms": 1}},
		{Tool: SearchFlights, Params: Params{"fatal": "yes", "delay_ms": 40}},
		{Tool: SearchAccommodations, Params: Params{"id": "slow", "delay_ms": 900}},
	})

	assert.Less(t, time.Since(start), 500*time.Millisecond, "slow sibling was cancelled")
	require.Len(t, results, 3)
	assert.True(t, results[0].OK(), "completed call keeps its result")
	assert.Equal(t, "fast", results[0].Output)
	assert.Equal(t, types.ErrInvalidArguments, results[1].ErrorCode)
	assert.Equal(t, types.ErrCancelled, results[2].ErrorCode)
}

func TestExecuteAll_UnknownToolCancelsOutstanding(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil, WithMaxConcurrency(4))

	start := time.Now()
	results := e.ExecuteAll(context.Background(), []Invocation{
		{Tool: "teleport"},
		{Tool: SearchFlights, Params: Params{"id": "slow", "delay_ms": 900}},
	})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, types.ErrToolNotFound, results[0].ErrorCode)
	assert.Equal(t, types.ErrCancelled, results[1].ErrorCode)
	assert.Equal(t, types.ErrToolNotFound, FirstFailure(results).Code)
}

func TestExecuteAll_TurnTimeoutKeepsCompleted(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	results := e.ExecuteAll(ctx, []Invocation{
		{Tool: GetWeather, Params: Params{"id": "fast", "delay_ms": 1}},
		{Tool: SearchFlights, Params: Params{"id": "slow", "delay_ms": 500}},
	})

	assert.True(t, results[0].OK())
	assert.Equal(t, "fast", results[0].Output)
	assert.Equal(t, types.ErrTimeout, results[1].ErrorCode)
}

func TestExecuteAll_Empty(t *testing.T) {
	e := NewExecutor(NewRegistry(nil), nil)
	assert.Empty(t, e.ExecuteAll(context.Background(), nil))
	assert.Nil(t, FirstFailure(nil))
}

func TestExecuteAll_OrderProperty(t *testing.T) {
	e := NewExecutor(delayRegistry(t, nil, nil), nil, WithMaxConcurrency(4))

	rapid.Check(t, func(t *rapid.T) {
		delays := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 8).Draw(t, "delays")
		invs := make([]Invocation, len(delays))
		for i, d := range delays {
			invs[i] = Invocation{
				Tool:   Catalog[i%len(Catalog)],
				Params: Params{"id": fmt.Sprint(i), "delay_ms": d},
			}
		}
		results := e.ExecuteAll(context.Background(), invs)
		for i, r := range results {
			if r.Output != fmt.Sprint(i) {
				t.Fatalf("result %d carries %v", i, r.Output)
			}
		}
	})
}
