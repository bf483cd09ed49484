package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltmesh_trades_total",
		Help: "Total trades recorded, by origin",
	}, []string{"origin"}) // "marketplace" or "direct"

	TradeVolumeKWh = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltmesh_trade_volume_kwh_total",
		Help: "Total energy traded in kWh",
	})

	TradeValueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltmesh_trade_value_total",
		Help: "Total value traded in minor currency units",
	})

	CertificatesMintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltmesh_certificates_minted_total",
		Help: "Total renewable-energy certificates minted",
	})

	ReadingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voltmesh_readings_total",
		Help: "Total meter readings logged, by kind",
	}, []string{"kind"})

	// Expiry is a time predicate on the offer, not a close, and an expired
	// offer can be extended by its seller; the gauge therefore counts offers
	// not explicitly closed rather than offers currently acceptable.
	OpenOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voltmesh_open_offers",
		Help: "Offers listed and not yet cancelled or fully filled; may include expired offers",
	})

	// Infrastructure metrics
	SettlementFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltmesh_settlement_failures_total",
		Help: "Settlements aborted by a payment transfer failure",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voltmesh_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})
)
