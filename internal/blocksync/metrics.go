package blocksync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// syncHeight tracks the driver's last-persisted tip, so an operator can
// watch sync progress against the node's best height without tailing
// logs (spec.md §4.6/§6's progress-event schema, mirrored here as a
// gauge for the ambient observability stack).
var syncHeight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "lbcwallet",
	Subsystem: "blocksync",
	Name:      "sync_height",
	Help:      "Height of the last block applied to the claim index.",
})
