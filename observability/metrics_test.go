package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/core/types"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func TestLaunchMetricsCountEvents(t *testing.T) {
	m := Launch()
	deposits := m.events.WithLabelValues("launch.user.participated")
	deposited := m.amounts.WithLabelValues("deposited")
	penalties := m.amounts.WithLabelValues("penalty")
	beforeDeposits := testutil.ToFloat64(deposits)
	beforeDeposited := testutil.ToFloat64(deposited)
	beforePenalty := testutil.ToFloat64(penalties)
	beforeSettled := testutil.ToFloat64(m.settlements)

	m.Emit(testEvent{&types.Event{Type: "launch.user.participated", Attributes: map[string]string{"amount": "1500"}}})
	m.Emit(testEvent{&types.Event{Type: "launch.user.withdrawn", Attributes: map[string]string{"amount": "100", "penalty": "40"}}})
	m.Emit(testEvent{&types.Event{Type: "launch.pool.created", Attributes: map[string]string{"reserveAmount": "1400"}}})

	require.Equal(t, beforeDeposits+1, testutil.ToFloat64(deposits))
	require.Equal(t, beforeDeposited+1500, testutil.ToFloat64(deposited))
	require.Equal(t, beforePenalty+40, testutil.ToFloat64(penalties))
	require.Equal(t, beforeSettled+1, testutil.ToFloat64(m.settlements))
}

func TestObserveOperation(t *testing.T) {
	rejected := errors.New("rejected")
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "rejected", Outcome(rejected, rejected))
	require.Equal(t, "error", Outcome(errors.New("boom"), rejected))

	m := Launch()
	counter := m.operations.WithLabelValues("deposit", "rejected")
	before := testutil.ToFloat64(counter)
	m.ObserveOperation("deposit", "rejected", time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHTTPMetrics(t *testing.T) {
	m := HTTP()
	counter := m.requests.WithLabelValues("/v1/sales", "GET", "200")
	before := testutil.ToFloat64(counter)
	m.Observe("/v1/sales", "GET", 200, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(counter))

	throttles := m.throttles.WithLabelValues("unmatched")
	before = testutil.ToFloat64(throttles)
	m.RecordThrottle("")
	require.Equal(t, before+1, testutil.ToFloat64(throttles))
}
