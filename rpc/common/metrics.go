package common

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Call metrics (exposed in the Prometheus text format)
// --------------------------------------------------------------------------

// RecordCall records the outcome and the duration of a single JSON-RPC call
func RecordCall(transportName, method string, start time.Time, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`scalaris_rpc_calls_total{transport=%q,method=%q}`, transportName, method)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`scalaris_rpc_call_duration_seconds{transport=%q,method=%q}`, transportName, method)).UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`scalaris_rpc_call_errors_total{transport=%q,class=%q}`, transportName, ErrorClass(err))).Inc()
	}
}

// RecordConnect records a connection attempt
func RecordConnect(transportName string, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`scalaris_rpc_connects_total{transport=%q}`, transportName)).Inc()
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`scalaris_rpc_connect_errors_total{transport=%q,class=%q}`, transportName, ErrorClass(err))).Inc()
	}
}

// WriteMetrics writes all recorded metrics to w
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
