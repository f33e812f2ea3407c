package orgtree

// CheckReassign decides whether employeeID may report to newManagerID.
// Checks run in a fixed order and the first failure wins.
func (ix *Index) CheckReassign(employeeID, newManagerID int) error {
	if employeeID == newManagerID {
		return &SelfManagementError{EmployeeID: employeeID}
	}
	employee, ok := ix.get(employeeID)
	if !ok {
		return &NotFoundError{Role: RoleEmployee, ID: employeeID}
	}
	if newManagerID == RootManagerID {
		// Only one root is allowed, so the sentinel is reachable by the root alone.
		if employee.IsRoot() {
			return nil
		}
		return invalid(employeeID, "tree must keep exactly one root")
	}
	if _, ok := ix.get(newManagerID); !ok {
		return &NotFoundError{Role: RoleManager, ID: newManagerID}
	}
	if ix.WouldCreateCycle(employeeID, newManagerID) {
		return &CycleError{EmployeeID: employeeID, ManagerID: newManagerID}
	}
	return nil
}

// Reassign moves the subtree of employeeID under newManagerID, appending it
// to the end of the new manager's children. It must only be called after
// CheckReassign returned nil. Moving to the current manager changes nothing.
func (ix *Index) Reassign(employeeID, newManagerID int) {
	employee := ix.nodes[employeeID]
	if employee.ManagerID == newManagerID {
		return
	}
	if parent := ix.parent(employeeID); parent != nil {
		removeChild(parent, employeeID)
	}
	manager := ix.nodes[newManagerID]
	employee.ManagerID = newManagerID
	manager.Children = append(manager.Children, employee)
	ix.parents[employeeID] = manager
}

// CheckSwap decides whether two employees may exchange managers.
func (ix *Index) CheckSwap(firstID, secondID int) error {
	if firstID == secondID {
		return &SelfManagementError{EmployeeID: firstID}
	}
	for _, id := range []int{firstID, secondID} {
		if _, ok := ix.get(id); !ok {
			return &NotFoundError{Role: RoleEmployee, ID: id}
		}
	}
	if ix.isAncestor(firstID, secondID) {
		return &CycleError{EmployeeID: firstID, ManagerID: ix.nodes[secondID].ManagerID}
	}
	if ix.isAncestor(secondID, firstID) {
		return &CycleError{EmployeeID: secondID, ManagerID: ix.nodes[firstID].ManagerID}
	}
	return nil
}

// Swap exchanges the managers of two employees, each keeping its own subtree.
// It must only be called after CheckSwap returned nil.
func (ix *Index) Swap(firstID, secondID int) {
	first, second := ix.nodes[firstID], ix.nodes[secondID]
	firstParent, secondParent := ix.parent(firstID), ix.parent(secondID)

	removeChild(firstParent, firstID)
	removeChild(secondParent, secondID)

	first.ManagerID, second.ManagerID = secondParent.ID, firstParent.ID
	secondParent.Children = append(secondParent.Children, first)
	firstParent.Children = append(firstParent.Children, second)
	ix.parents[firstID], ix.parents[secondID] = secondParent, firstParent
}
