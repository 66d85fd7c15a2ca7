package provisioning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "provisioning",
		Name:      "payment_confirmed_total",
		Help:      "Payment confirmations processed, partitioned by outcome.",
	}, []string{"outcome"})

	portClaimTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "provisioning",
		Name:      "port_claim_total",
		Help:      "Port claim attempts during provisioning, partitioned by outcome.",
	}, []string{"outcome"})
)
