package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "termchat_sessions_created_total",
		Help: "Total number of pairing sessions issued",
	})
	Pairings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "termchat_pairings_total",
		Help: "Total number of pairing attempts by outcome",
	}, []string{"outcome"})
	RelaySubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "termchat_relay_subscribers",
		Help: "Current number of attached relay subscribers",
	})
	RelayEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "termchat_relay_events_total",
		Help: "Total number of relayed events by topic",
	}, []string{"topic"})
	RelayDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "termchat_relay_dropped_total",
		Help: "Total number of dropped relay events by reason",
	}, []string{"reason"})
	SweepTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "termchat_sweep_transitions_total",
		Help: "Total number of entities retired by the sweeper",
	}, []string{"entity"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "termchat_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "termchat_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		SessionsCreated,
		Pairings,
		RelaySubscribers,
		RelayEvents,
		RelayDropped,
		SweepTransitions,
		HTTPRequests,
		HTTPRequestDuration,
	)
}

// Pairing outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeJoined   = "joined"
	OutcomeRejected = "rejected"
)

// Relay drop reasons.
const (
	DropUnauthorized = "unauthorized"
	DropRoomClosed   = "room_closed"
	DropSlowClient   = "slow_client"
	DropMalformed    = "malformed"
)
