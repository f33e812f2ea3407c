package services

import (
	"context"
	"encoding/json"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/pkg/eventbus"
)

// OrgService owns the single organizational tree held by the process.
// Mutations hold the write lock for their whole validate-then-apply
// sequence; reads hand out deep copies.
type OrgService struct {
	mu        sync.RWMutex
	root      *orgtree.Employee
	version   int64
	publisher eventbus.EventBus
}

type Option func(*OrgService)

// WithPublisher makes the service publish a *TreeChanged after every
// committed mutation.
func WithPublisher(p eventbus.EventBus) Option {
	return func(s *OrgService) {
		s.publisher = p
	}
}

// NewOrgService validates the seed tree and takes a private copy of it.
func NewOrgService(seed *orgtree.Employee, opts ...Option) (*OrgService, error) {
	if err := orgtree.Validate(seed); err != nil {
		return nil, errors.Wrap(err, "seed tree")
	}
	s := &OrgService{root: seed.Clone(), version: 1}
	for _, opt := range opts {
		opt(s)
	}
	recordTreeSize(s.root.Size())
	return s, nil
}

func (s *OrgService) GetTree(ctx context.Context) *orgtree.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Clone()
}

// Version increases by one with every committed mutation.
func (s *OrgService) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// FindEmployee returns a copy of the subtree rooted at id.
func (s *OrgService) FindEmployee(ctx context.Context, id int) (*orgtree.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.root.Find(id)
	if n == nil {
		return nil, &orgtree.NotFoundError{Role: orgtree.RoleEmployee, ID: id}
	}
	return n.Clone(), nil
}

// ReassignManager moves employeeID, with its whole subtree, under newManagerID.
func (s *OrgService) ReassignManager(ctx context.Context, employeeID, newManagerID int) (*orgtree.Employee, error) {
	fields := logrus.Fields{
		"employee_id":    employeeID,
		"new_manager_id": newManagerID,
	}
	return s.mutate(ctx, opReassign, fields, func(current *orgtree.Employee) (*orgtree.Employee, error) {
		ix := orgtree.NewIndex(current)
		if err := ix.CheckReassign(employeeID, newManagerID); err != nil {
			return nil, err
		}
		ix.Reassign(employeeID, newManagerID)
		return current, nil
	})
}

// SwapPositions makes two employees exchange managers.
func (s *OrgService) SwapPositions(ctx context.Context, firstID, secondID int) (*orgtree.Employee, error) {
	fields := logrus.Fields{
		"employee1_id": firstID,
		"employee2_id": secondID,
	}
	return s.mutate(ctx, opSwap, fields, func(current *orgtree.Employee) (*orgtree.Employee, error) {
		ix := orgtree.NewIndex(current)
		if err := ix.CheckSwap(firstID, secondID); err != nil {
			return nil, err
		}
		ix.Swap(firstID, secondID)
		return current, nil
	})
}

// ReplaceTree swaps the whole tree for tree once it passes validation. The
// caller keeps ownership of tree; the store holds its own copy.
func (s *OrgService) ReplaceTree(ctx context.Context, tree *orgtree.Employee) (*orgtree.Employee, error) {
	return s.mutate(ctx, opReplace, nil, func(*orgtree.Employee) (*orgtree.Employee, error) {
		if err := orgtree.Validate(tree); err != nil {
			return nil, err
		}
		return tree.Clone(), nil
	})
}

// ReplaceFromNode converts a tree in wire shape and stores it. Conversion
// failures count as rejected replacements.
func (s *OrgService) ReplaceFromNode(ctx context.Context, node *orgtree.Node) (*orgtree.Employee, error) {
	return s.mutate(ctx, opReplace, nil, func(*orgtree.Employee) (*orgtree.Employee, error) {
		next, err := orgtree.FromNode(node)
		if err != nil {
			return nil, err
		}
		if err := orgtree.Validate(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// ReplaceFromRoster builds a tree out of a flat roster and stores it.
func (s *OrgService) ReplaceFromRoster(ctx context.Context, members []orgtree.Member) (*orgtree.Employee, error) {
	fields := logrus.Fields{"members": len(members)}
	return s.mutate(ctx, opRoster, fields, func(*orgtree.Employee) (*orgtree.Employee, error) {
		next, err := orgtree.FromRoster(members)
		if err != nil {
			return nil, err
		}
		if err := orgtree.Validate(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// ApplyPatch applies an RFC 6902 patch to the wire form of the current tree
// and stores the result if it is still a valid tree.
func (s *OrgService) ApplyPatch(ctx context.Context, rawPatch []byte) (*orgtree.Employee, error) {
	return s.mutate(ctx, opPatch, nil, func(current *orgtree.Employee) (*orgtree.Employee, error) {
		next, err := patchTree(current, rawPatch)
		if err != nil {
			return nil, err
		}
		if err := orgtree.Validate(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// mutate runs change under the write lock. change either fails without
// touching current or returns the tree to store.
func (s *OrgService) mutate(
	ctx context.Context,
	op string,
	fields logrus.Fields,
	change func(current *orgtree.Employee) (*orgtree.Employee, error),
) (*orgtree.Employee, error) {
	s.mu.Lock()
	next, err := change(s.root)
	if err != nil {
		s.mu.Unlock()
		recordMutation(op, err)
		logRejected(ctx, op, err, fields)
		return nil, err
	}
	s.root = next
	s.version++
	version := s.version
	snapshot := next.Clone()
	s.mu.Unlock()

	size := snapshot.Size()
	recordMutation(op, nil)
	recordTreeSize(size)

	logFields := logrus.Fields{
		"op":      op,
		"root_id": snapshot.ID,
		"size":    size,
		"version": version,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	logWithFields(ctx, logrus.InfoLevel, "org.tree.changed", logFields)

	s.publish(ctx, &TreeChanged{
		Op:      op,
		Version: version,
		Tree:    snapshot.Clone(),
		Context: ctx,
	})
	return snapshot, nil
}

// publish delivers e to subscribers. Handler failures are logged and never
// undo the committed mutation.
func (s *OrgService) publish(ctx context.Context, e *TreeChanged) {
	if s.publisher == nil {
		return
	}
	bus, ok := s.publisher.(eventbus.EventBusWithError)
	if !ok {
		s.publisher.Publish(e)
		return
	}
	if err := bus.PublishE(e); err != nil && !errors.Is(err, eventbus.ErrNoSubscribers) {
		logWithFields(ctx, logrus.ErrorLevel, "org.tree.publish_failed", logrus.Fields{
			"op":      e.Op,
			"version": e.Version,
			"error":   err.Error(),
		})
	}
}

func patchTree(root *orgtree.Employee, rawPatch []byte) (*orgtree.Employee, error) {
	patch, err := jsonpatch.DecodePatch(rawPatch)
	if err != nil {
		return nil, &orgtree.InvalidStructureError{Reason: "malformed patch: " + err.Error()}
	}
	doc, err := json.Marshal(orgtree.ToNode(root))
	if err != nil {
		return nil, errors.Wrap(err, "encode tree")
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, &orgtree.InvalidStructureError{Reason: "patch does not apply: " + err.Error()}
	}
	var node orgtree.Node
	if err := json.Unmarshal(patched, &node); err != nil {
		return nil, &orgtree.InvalidStructureError{Reason: "patched document is not a tree: " + err.Error()}
	}
	return orgtree.FromNode(&node)
}
