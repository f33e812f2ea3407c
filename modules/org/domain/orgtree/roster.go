package orgtree

// Member is a flat roster entry; ManagerID is RootManagerID for the top of
// the hierarchy.
type Member struct {
	ID        int
	Name      string
	Title     string
	ManagerID int
}

// FromRoster assembles a tree out of a flat roster. Children keep roster order.
func FromRoster(members []Member) (*Employee, error) {
	if len(members) == 0 {
		return nil, invalid(0, "roster is empty")
	}

	nodes := make(map[int]*Employee, len(members))
	for _, m := range members {
		if m.ID <= RootManagerID {
			return nil, invalid(m.ID, "id must be positive")
		}
		if _, dup := nodes[m.ID]; dup {
			return nil, invalid(m.ID, "duplicate id")
		}
		nodes[m.ID] = &Employee{
			ID:        m.ID,
			Name:      m.Name,
			Title:     m.Title,
			ManagerID: m.ManagerID,
			Children:  []*Employee{},
		}
	}

	var root *Employee
	for _, m := range members {
		n := nodes[m.ID]
		if m.ManagerID == RootManagerID {
			if root != nil {
				return nil, invalid(m.ID, "tree must keep exactly one root")
			}
			root = n
			continue
		}
		if m.ManagerID == m.ID {
			return nil, invalid(m.ID, "employee manages themselves")
		}
		manager, ok := nodes[m.ManagerID]
		if !ok {
			return nil, invalid(m.ID, "manager_id %d references an unknown employee", m.ManagerID)
		}
		manager.Children = append(manager.Children, n)
	}
	if root == nil {
		return nil, invalid(0, "tree has no root")
	}

	// Members on a reporting loop hang off each other and never reach the root.
	reached := root.Size()
	if reached != len(members) {
		for _, m := range members {
			if root.Find(m.ID) == nil {
				return nil, invalid(m.ID, "reporting cycle")
			}
		}
	}
	return root, nil
}

// Roster flattens the tree in pre-order.
func Roster(root *Employee) []Member {
	out := make([]Member, 0, root.Size())
	root.Walk(func(n *Employee, _ int) bool {
		out = append(out, Member{ID: n.ID, Name: n.Name, Title: n.Title, ManagerID: n.ManagerID})
		return true
	})
	return out
}
