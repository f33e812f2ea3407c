package orgtree

// Node is the nested JSON shape of the tree exchanged with clients and seed files.
type Node struct {
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes"`
	Children   []*Node    `json:"children" validate:"dive"`
}

type Attributes struct {
	ID        int    `json:"id" validate:"gt=0"`
	Title     string `json:"title"`
	ManagerID int    `json:"manager_id" validate:"gte=0"`
}

// RosterEntry is the flat JSON shape of one employee. A null or zero
// manager_id marks the root.
type RosterEntry struct {
	ID        int    `json:"id" validate:"gt=0"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	ManagerID *int   `json:"manager_id"`
}

type RosterDocument struct {
	Employees []RosterEntry `json:"employees" validate:"required,min=1,dive"`
}

// ToNode converts a tree into its wire shape. Children are never null.
func ToNode(e *Employee) *Node {
	if e == nil {
		return nil
	}
	out := &Node{
		Name: e.Name,
		Attributes: Attributes{
			ID:        e.ID,
			Title:     e.Title,
			ManagerID: e.ManagerID,
		},
		Children: make([]*Node, 0, len(e.Children)),
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, ToNode(c))
	}
	return out
}

// FromNode converts a wire tree into the domain model. The result still has
// to pass Validate.
func FromNode(n *Node) (*Employee, error) {
	if n == nil {
		return nil, invalid(0, "tree is empty")
	}
	out := &Employee{
		ID:        n.Attributes.ID,
		Name:      n.Name,
		Title:     n.Attributes.Title,
		ManagerID: n.Attributes.ManagerID,
		Children:  make([]*Employee, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		if c == nil {
			return nil, invalid(out.ID, "null child")
		}
		child, err := FromNode(c)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func (d RosterDocument) Members() []Member {
	out := make([]Member, 0, len(d.Employees))
	for _, e := range d.Employees {
		m := Member{ID: e.ID, Name: e.Name, Title: e.Title}
		if e.ManagerID != nil {
			m.ManagerID = *e.ManagerID
		}
		out = append(out, m)
	}
	return out
}
