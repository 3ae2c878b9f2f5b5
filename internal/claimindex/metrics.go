package claimindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// claimsIndexedTotal counts every claim create/update applied by the
// indexer, exposed for operators running lbcwalletd against a syncing
// node (spec.md §6's "ambient stack carried regardless of Non-goals"
// observability note).
var claimsIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lbcwallet",
	Subsystem: "claimindex",
	Name:      "claims_indexed_total",
	Help:      "Total number of claim create/update events applied to the index.",
})
