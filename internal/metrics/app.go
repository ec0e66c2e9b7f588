// Package metrics names and emits the proxy's application metrics.
package metrics

import (
	"time"
)

// Chat proxy metric names
const (
	// Final outcome of each chat request
	ChatRequestsTotal = "chat_requests_total"

	// Rejections before the provider is called
	ChatRateLimitedTotal        = "chat_rate_limited_total"
	ChatValidationFailuresTotal = "chat_validation_failures_total"

	// Upstream provider calls
	ProviderRequestsTotal   = "chat_provider_requests_total"
	ProviderRequestDuration = "chat_provider_duration_ms"

	RateLimitLastSweepRemoved = "ratelimit_last_sweep_removed"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordChatRequest counts a finished chat request by outcome ("ok", "rate_limited", "invalid", ...).
func RecordChatRequest(outcome string) {
	counter(ChatRequestsTotal, map[string]string{"outcome": outcome})
}

func RecordRateLimited() {
	counter(ChatRateLimitedTotal, nil)
}

func RecordValidationFailure() {
	counter(ChatValidationFailuresTotal, nil)
}

// RecordProviderCall counts one completion call and observes its latency.
func RecordProviderCall(provider string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	counter(ProviderRequestsTotal, map[string]string{"provider": provider, "status": status})
	histogram(ProviderRequestDuration, duration, map[string]string{"provider": provider})
}

// RecordRateLimitSweep reports how many expired counters the last sweep removed.
func RecordRateLimitSweep(removed int) {
	gauge(RateLimitLastSweepRemoved, float64(removed))
}

// SetServerStartTime records the proxy start as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp))
}
