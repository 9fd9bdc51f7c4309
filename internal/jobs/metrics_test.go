package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("reports:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("reports:warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reports:warmup")))
}

func TestNotificationCounter(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.Notification("sms", "sent")
	m.Notification("sms", "sent")
	m.Notification("sms", "skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "skipped")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Notification("sms", "sent")
	assert.NoError(t, m.Track("x").End(nil))
}
