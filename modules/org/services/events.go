package services

import (
	"context"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
)

// TreeChanged is published after a mutation is committed. Tree is a private
// copy; handlers may keep it.
type TreeChanged struct {
	Op      string
	Version int64
	Tree    *orgtree.Employee
	Context context.Context
}
