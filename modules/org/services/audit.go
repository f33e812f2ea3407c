package services

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/organi-flow/pkg/composables"
)

// ChangeAuditor writes one audit line per committed tree change.
type ChangeAuditor struct {
	log *logrus.Logger
}

func NewChangeAuditor(log *logrus.Logger) *ChangeAuditor {
	return &ChangeAuditor{log: log}
}

func (a *ChangeAuditor) Handle(e *TreeChanged) {
	entry := logrus.NewEntry(a.log)
	if e.Context != nil {
		if params, ok := composables.UseParams(e.Context); ok {
			entry = entry.WithFields(logrus.Fields{
				"request-id": params.RequestID,
				"ip":         params.IP,
			})
		}
	}
	entry.WithFields(logrus.Fields{
		"component": "org.audit",
		"op":        e.Op,
		"version":   e.Version,
		"root_id":   e.Tree.ID,
		"size":      e.Tree.Size(),
	}).Info("org.tree.audit")
}
