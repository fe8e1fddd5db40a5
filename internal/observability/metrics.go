package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "frames_read_total",
			Help:      "Frames decoded from the stream.",
		},
		[]string{"op"},
	)
	framesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "frames_written_total",
			Help:      "Frames written to the stream.",
		},
		[]string{"op"},
	)
	requestTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "request_timeouts_total",
			Help:      "Requests abandoned after their timeout elapsed.",
		},
		[]string{"op"},
	)
	unmatchedResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "unmatched_responses_total",
			Help:      "Responses dropped because no pending request matched.",
		},
	)
	protocolViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "protocol_violations_total",
			Help:      "Fatal framing or decode failures.",
		},
	)
	inflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nexsock",
			Subsystem: "session",
			Name:      "inflight_requests",
			Help:      "Requests awaiting a response.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesRead,
			framesWritten,
			requestTimeouts,
			unmatchedResponses,
			protocolViolations,
			inflightRequests,
		)
	})
}

func RecordFrameRead(op string) {
	RegisterMetrics()
	framesRead.WithLabelValues(op).Inc()
}

func RecordFrameWritten(op string) {
	RegisterMetrics()
	framesWritten.WithLabelValues(op).Inc()
}

func RecordRequestTimeout(op string) {
	RegisterMetrics()
	requestTimeouts.WithLabelValues(op).Inc()
}

func RecordUnmatchedResponse() {
	RegisterMetrics()
	unmatchedResponses.Inc()
}

func RecordProtocolViolation() {
	RegisterMetrics()
	protocolViolations.Inc()
}

func SetInflightRequests(n int) {
	RegisterMetrics()
	inflightRequests.Set(float64(n))
}
