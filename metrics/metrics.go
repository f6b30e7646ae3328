// Package metrics registers the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkup_matches_created_total",
		Help: "Matches created by atomic match formation.",
	})

	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkup_offers_created_total",
		Help: "Offers created by senders.",
	})

	OffersReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkup_offers_reaped_total",
		Help: "Pending offers cancelled because a participant matched elsewhere.",
	})

	SweeperRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkup_sweeper_removed_total",
		Help: "Expired records removed or expired by the sweeper.",
	})
)
