// Package metrics exposes Prometheus collectors for RPC calls, agent actions
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	xerrors "NEAR-Swarm/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rpcRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "near_rpc_requests_total",
			Help: "Total number of NEAR JSON-RPC calls by method and status",
		},
		[]string{"method", "status"},
	)
	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "near_rpc_request_duration_seconds",
			Help:    "Duration of NEAR JSON-RPC calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "near_agent_actions_total",
			Help: "Total number of actions executed by the agent by type and result code",
		},
		[]string{"type", "code"},
	)
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "near_agent_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"handler", "method", "code"},
	)
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "near_agent_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"handler", "method"},
	)
)

// RPCObserver records JSON-RPC call outcomes. It satisfies rpc.Observer.
type RPCObserver struct{}

// ObserveRPC records one call.
func (RPCObserver) ObserveRPC(method string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	rpcRequests.WithLabelValues(method, status).Inc()
	rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ActionObserver records executed agent actions.
type ActionObserver struct{}

// ObserveAction records one action; successful actions are labelled "OK".
func (ActionObserver) ObserveAction(actionType string, err error) {
	code := "OK"
	if err != nil {
		code = string(xerrors.CodeOf(err))
	}
	actionsTotal.WithLabelValues(actionType, code).Inc()
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// Handler exposes the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
