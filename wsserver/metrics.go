package wsserver

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	peers       prometheus.Gauge
	rooms       prometheus.Gauge
	relayed     prometheus.Counter
	dropped     *prometheus.CounterVec
	offers      *prometheus.CounterVec
	connections prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pong_broker_peers",
			Help: "Peers currently registered with the broker.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pong_broker_rooms",
			Help: "Paired sessions currently relayed.",
		}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pong_broker_relayed_frames_total",
			Help: "Data frames relayed between paired peers.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pong_broker_dropped_frames_total",
			Help: "Frames dropped by the broker by reason.",
		}, []string{"reason"}),
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pong_broker_offers_total",
			Help: "Connect offers by outcome.",
		}, []string{"outcome"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pong_broker_connections_total",
			Help: "Websocket connections accepted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.peers, m.rooms, m.relayed, m.dropped, m.offers, m.connections)
	}
	return m
}
