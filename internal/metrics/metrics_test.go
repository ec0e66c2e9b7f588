package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bffagent/bffagent/internal/observability"
)

func TestRecordersEmitWhenTelemetryEnabled(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	RecordChatRequest("ok")
	RecordRateLimited()
	RecordValidationFailure()
	RecordProviderCall("openai", false, 20*time.Millisecond)
	RecordRateLimitSweep(3)
	RecordError("RATE_LIMIT_ERROR", 429)
	RecordErrorByEndpoint("/chat", "RATE_LIMIT_ERROR")
	RecordPanic()

	for _, name := range []string{
		ChatRequestsTotal,
		ChatRateLimitedTotal,
		ChatValidationFailuresTotal,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		RateLimitLastSweepRemoved,
		ErrorsTotalName,
		ErrorsByEndpointName,
		PanicsTotalName,
	} {
		assert.Positive(t, collector.CountMetricsByName(name), name)
	}
}

func TestRecordersNoopWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	assert.NotPanics(t, func() {
		RecordChatRequest("ok")
		RecordProviderCall("openai", true, time.Millisecond)
		SetServerStartTime(time.Now().Unix())
	})
}
