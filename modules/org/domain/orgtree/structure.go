package orgtree

// Validate checks every structural invariant of a complete tree: a single
// root without a manager, positive unique ids, each child's manager_id equal
// to its parent's id and no node reachable twice.
func Validate(root *Employee) error {
	if root == nil {
		return invalid(0, "tree is empty")
	}
	if !root.IsRoot() {
		return invalid(root.ID, "root must have manager_id %d", RootManagerID)
	}

	ids := make(map[int]struct{})
	seen := make(map[*Employee]struct{})
	type frame struct {
		node   *Employee
		parent *Employee
	}
	var links []frame

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node == nil {
			return invalid(f.parent.ID, "null child")
		}
		if _, dup := seen[f.node]; dup {
			return invalid(f.node.ID, "node appears more than once")
		}
		seen[f.node] = struct{}{}

		if f.node.ID <= RootManagerID {
			return invalid(f.node.ID, "id must be positive")
		}
		if _, dup := ids[f.node.ID]; dup {
			return invalid(f.node.ID, "duplicate id")
		}
		ids[f.node.ID] = struct{}{}

		if f.parent != nil {
			links = append(links, f)
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node})
		}
	}

	for _, l := range links {
		if l.node.ManagerID == l.parent.ID {
			continue
		}
		if l.node.ManagerID == RootManagerID {
			return invalid(l.node.ID, "tree must keep exactly one root")
		}
		if _, ok := ids[l.node.ManagerID]; !ok {
			return invalid(l.node.ID, "manager_id %d references an unknown employee", l.node.ManagerID)
		}
		return invalid(l.node.ID, "manager_id %d does not match parent %d", l.node.ManagerID, l.parent.ID)
	}
	return nil
}
