package orgtree

// Index gives constant-time lookup of nodes and their parents in a tree that
// has already passed Validate.
type Index struct {
	root    *Employee
	nodes   map[int]*Employee
	parents map[int]*Employee
}

func NewIndex(root *Employee) *Index {
	ix := &Index{
		root:    root,
		nodes:   make(map[int]*Employee),
		parents: make(map[int]*Employee),
	}
	root.Walk(func(n *Employee, _ int) bool {
		ix.nodes[n.ID] = n
		for _, c := range n.Children {
			ix.parents[c.ID] = n
		}
		return true
	})
	return ix
}

func (ix *Index) get(id int) (*Employee, bool) {
	n, ok := ix.nodes[id]
	return n, ok
}

// parent returns the node holding id in its children, nil for the root.
func (ix *Index) parent(id int) *Employee {
	return ix.parents[id]
}

// WouldCreateCycle walks the ancestor chain of candidateParentID through
// manager_id links and reports whether employeeID sits on it.
func (ix *Index) WouldCreateCycle(employeeID, candidateParentID int) bool {
	if candidateParentID == employeeID {
		return true
	}
	visited := make(map[int]struct{})
	current := candidateParentID
	for current != RootManagerID {
		if current == employeeID {
			return true
		}
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}
		n, ok := ix.get(current)
		if !ok {
			break
		}
		current = n.ManagerID
	}
	return false
}

// isAncestor reports whether ancestorID is a strict ancestor of id.
func (ix *Index) isAncestor(ancestorID, id int) bool {
	n, ok := ix.get(id)
	if !ok || ancestorID == id {
		return false
	}
	return ix.WouldCreateCycle(ancestorID, n.ManagerID)
}

// WouldCreateCycle reports whether attaching employeeID under candidateParentID
// in tree would make a node its own ancestor.
func WouldCreateCycle(tree *Employee, employeeID, candidateParentID int) bool {
	return NewIndex(tree).WouldCreateCycle(employeeID, candidateParentID)
}
