package telemetry_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/adapters/outbound/telemetry"
	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

func TestPromSink_CountsResults(t *testing.T) {
	s := telemetry.NewPromSink()

	s.Emit(domain.Event{Type: domain.EventDispatchAttempted, Kind: domain.KindSimple})
	s.Emit(domain.Event{Type: domain.EventDispatchSucceeded, Kind: domain.KindSimple})
	s.Emit(domain.Event{Type: domain.EventDispatchFailed, Kind: domain.KindComposite})
	s.Emit(domain.Event{Type: domain.EventCancellationSucceeded, Kind: domain.KindSimple})
	s.Emit(domain.Event{Type: domain.EventCancellationSucceeded, Kind: domain.KindSimple})

	expected := `
# HELP pourline_dispatch_total Dispatch attempts by item kind and result
# TYPE pourline_dispatch_total counter
pourline_dispatch_total{kind="composite",result="failure"} 1
pourline_dispatch_total{kind="simple",result="success"} 1
# HELP pourline_cancellation_total Credit cancellations by item kind and result
# TYPE pourline_cancellation_total counter
pourline_cancellation_total{kind="simple",result="success"} 2
`
	err := testutil.GatherAndCompare(s.Registry(), strings.NewReader(expected),
		"pourline_dispatch_total", "pourline_cancellation_total")
	assert.NoError(t, err)
}

func TestPromSink_ObservesMiddleware(t *testing.T) {
	s := telemetry.NewPromSink()

	s.ObserveMiddleware("send-credit", 20*time.Millisecond, nil)
	s.ObserveMiddleware("send-credit", time.Second, errors.New("boom"))

	n, err := testutil.GatherAndCount(s.Registry(), "pourline_middleware_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPromSink_Handler(t *testing.T) {
	s := telemetry.NewPromSink()
	s.Emit(domain.Event{Type: domain.EventDispatchSucceeded, Kind: domain.KindSimple})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pourline_dispatch_total{kind="simple",result="success"} 1`)
}

func TestLogSink_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	s := telemetry.NewLogSink(logging.New(logging.Config{Level: "debug", Output: &buf}))

	s.Emit(domain.Event{
		Type:      domain.EventCancellationFailed,
		Kind:      domain.KindSimple,
		SessionID: "s-1",
		Code:      "PLU7",
		Quantity:  1,
		Err:       domain.ErrNoActiveSession,
	})

	out := buf.String()
	assert.Contains(t, out, `"event":"cancellation_failed"`)
	assert.Contains(t, out, `"plu":"PLU7"`)
	assert.Contains(t, out, `"error":"no active session"`)
	assert.Contains(t, out, `"level":"WARN"`)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := telemetry.NewPromSink(), telemetry.NewPromSink()
	telemetry.Multi{a, nil, b}.Emit(domain.Event{Type: domain.EventDispatchSucceeded, Kind: domain.KindSimple})

	for _, s := range []*telemetry.PromSink{a, b} {
		n, err := testutil.GatherAndCount(s.Registry(), "pourline_dispatch_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
}
