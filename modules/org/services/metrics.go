package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
)

const (
	opReassign = "reassign"
	opSwap     = "swap"
	opReplace  = "replace"
	opRoster   = "roster"
	opPatch    = "patch"
)

var (
	orgTreeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "tree",
		Name:      "mutations_total",
		Help:      "Total number of Org tree mutations broken down by operation and result.",
	}, []string{"op", "result"})

	orgTreeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "org",
		Subsystem: "tree",
		Name:      "employees",
		Help:      "Number of employees in the stored Org tree.",
	})
)

// errorKind maps a mutation error onto a stable label value.
func errorKind(err error) string {
	var (
		selfErr      *orgtree.SelfManagementError
		cycleErr     *orgtree.CycleError
		notFoundErr  *orgtree.NotFoundError
		structureErr *orgtree.InvalidStructureError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &selfErr):
		return "self_management"
	case errors.As(err, &cycleErr):
		return "cycle"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &structureErr):
		return "invalid_structure"
	default:
		return "error"
	}
}

func recordMutation(op string, err error) {
	orgTreeMutations.WithLabelValues(op, errorKind(err)).Inc()
}

func recordTreeSize(n int) {
	orgTreeSize.Set(float64(n))
}
