package courier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_deliveries_total",
		Help: "Envelopes delivered, including deliveries with rejected receivers.",
	})
	metricRejectedReceivers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_rejected_receivers_total",
		Help: "Receivers declined by the relay during delivery.",
	})
	metricCloseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_connection_close_failures_total",
		Help: "Connection scopes whose close failed.",
	})
)
