package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ItemsCreated.Inc()
	m.ModerationDecisions.WithLabelValues("approved").Inc()
	m.ModerationDecisions.WithLabelValues("approved").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModerationDecisions.WithLabelValues("approved")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SwapTransitions.WithLabelValues("completed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rewear_swap_transitions_total{status="completed"} 1`)
}
