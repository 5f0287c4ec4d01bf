// Package telemetry exposes the Prometheus metrics of the voting server.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesTotal counts successfully applied votes.
	VotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voting_votes_total",
		Help: "Number of votes applied",
	})

	// BroadcastsTotal counts fan-out events by type.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voting_broadcasts_total",
		Help: "Number of events broadcast to clients",
	}, []string{"type"})

	// ConnectedClients tracks currently connected websocket clients.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voting_connected_clients",
		Help: "Currently connected websocket clients",
	})
)
