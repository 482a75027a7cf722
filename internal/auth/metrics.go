// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Operation labels.
const (
	opRegister        = "register"
	opValidateLogin   = "validate_login"
	opCreateSession   = "create_session"
	opUserFromSession = "user_from_session"
)

// Result labels.
const (
	resultOK        = "ok"
	resultDuplicate = "duplicate"
	resultInvalid   = "invalid"
	resultAbsent    = "absent"
	resultError     = "error"
)

var (
	// operationsTotal counts AuthService calls by operation and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_auth_operations_total",
		Help: "Total number of authentication operations by operation and result",
	}, []string{"operation", "result"})

	// operationDuration tracks AuthService latency, dominated by password hashing.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "keyward_auth_operation_duration_seconds",
		Help:    "Histogram of authentication operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// recordOperation records the outcome and latency of one service call.
func recordOperation(operation, result string, start time.Time) {
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// WriteMetricsTextfile writes the default registry in Prometheus text format,
// suitable for the node_exporter textfile collector.
func WriteMetricsTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return oops.Code("METRICS_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
