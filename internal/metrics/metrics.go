// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesSentTotal counts datagrams sent to peers, by destination kind (broadcast, unicast)
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapmesh_frames_sent_total",
			Help: "Total number of frames forwarded to peers",
		},
		[]string{"kind"},
	)

	// FramesDroppedTotal counts outbound frames that were not forwarded
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapmesh_frames_dropped_total",
			Help: "Total number of frames dropped by the dispatcher",
		},
		[]string{"reason"},
	)

	// FramesReceivedTotal counts frames received from peers and written to the local interface
	FramesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tapmesh_frames_received_total",
			Help: "Total number of frames received from peers",
		},
	)

	// ControlMessagesTotal counts control messages handled by the server, by kind
	ControlMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapmesh_control_messages_total",
			Help: "Total number of control messages handled",
		},
		[]string{"kind"},
	)

	// ControlDecodeErrorsTotal counts datagrams on the control channel that failed to decode
	ControlDecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tapmesh_control_decode_errors_total",
			Help: "Total number of undecodable control messages",
		},
	)

	// PeersEvictedTotal counts peers removed by the liveness monitor
	PeersEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tapmesh_peers_evicted_total",
			Help: "Total number of peers evicted for not answering pings",
		},
	)

	// Peers is the current registry size
	Peers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tapmesh_peers",
			Help: "Number of peers in the registry",
		},
	)

	// UnresolvedPeers is the number of peers whose hardware address is still unknown
	UnresolvedPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tapmesh_unresolved_peers",
			Help: "Number of peers without a resolved hardware address",
		},
	)
)
