// Package orgtree holds the organizational tree model and the pure rules that
// decide whether a change to it is legal.
package orgtree

// RootManagerID is the manager_id carried by the top of the hierarchy.
const RootManagerID = 0

// Employee is one node of the organizational tree. Children are owned by
// their parent; their order is the display order.
type Employee struct {
	ID        int
	Name      string
	Title     string
	ManagerID int
	Children  []*Employee
}

// IsRoot reports whether the employee has no manager.
func (e *Employee) IsRoot() bool {
	return e.ManagerID == RootManagerID
}

// Clone returns a deep copy of the subtree rooted at e.
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	out := &Employee{
		ID:        e.ID,
		Name:      e.Name,
		Title:     e.Title,
		ManagerID: e.ManagerID,
		Children:  make([]*Employee, 0, len(e.Children)),
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// Walk visits the subtree in pre-order. Returning false from fn skips the
// children of the visited node.
func (e *Employee) Walk(fn func(node *Employee, depth int) bool) {
	if e == nil {
		return
	}
	var visit func(n *Employee, depth int)
	visit = func(n *Employee, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(e, 0)
}

// Find returns the node with the given id inside the subtree, or nil.
func (e *Employee) Find(id int) *Employee {
	var found *Employee
	e.Walk(func(n *Employee, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Size returns the number of nodes in the subtree.
func (e *Employee) Size() int {
	n := 0
	e.Walk(func(*Employee, int) bool {
		n++
		return true
	})
	return n
}

// Equal reports whether two trees have the same nodes, attributes and child order.
func Equal(a, b *Employee) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Name != b.Name || a.Title != b.Title || a.ManagerID != b.ManagerID {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func removeChild(parent *Employee, id int) *Employee {
	for i, c := range parent.Children {
		if c.ID == id {
			parent.Children = append(parent.Children[:i:i], parent.Children[i+1:]...)
			return c
		}
	}
	return nil
}
