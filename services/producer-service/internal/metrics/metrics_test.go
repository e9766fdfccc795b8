package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(publishResults.WithLabelValues("metrics_test", OutcomeFailed))
	ObservePublish("metrics_test", errors.New("broker down"))
	ObservePublish("metrics_test", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(publishResults.WithLabelValues("metrics_test", OutcomeFailed)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(publishResults.WithLabelValues("metrics_test", OutcomeOK)), 1.0)

	AddUpstreamRecords("metrics_test", 3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(upstreamRecords.WithLabelValues("metrics_test")), 3.0)
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	Register(reg)

	ObserveTick(10*time.Millisecond, OutcomeOK)
	ObserveUpstreamAttempt("crm", nil)

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "datasync_ticks_total")
	assert.Contains(t, names, "datasync_tick_duration_seconds")
	assert.Contains(t, names, "datasync_upstream_attempts_total")
}
