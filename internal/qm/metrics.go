package qm

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvmail_qm_operations_total",
			Help: "Database operations issued.",
		},
		[]string{
			"op", // execute, read, write, delete, select
			"transport",
		},
	)
	metricFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mvmail_qm_failures_total",
			Help: "Database operations that failed.",
		},
		[]string{
			"op",
			"transport",
			"kind", // server, protocol, io
		},
	)
)

// observe counts one finished operation. A missing record is a normal
// outcome, not a failure.
func observe(transport, op string, err error) {
	metricOperations.WithLabelValues(op, transport).Inc()
	if err == nil || errors.Is(err, ErrNotFound) {
		return
	}
	kind := "io"
	var serverErr *ServerError
	var protoErr *ProtocolError
	switch {
	case errors.As(err, &serverErr):
		kind = "server"
	case errors.As(err, &protoErr):
		kind = "protocol"
	}
	metricFailures.WithLabelValues(op, transport, kind).Inc()
}
