package orgtree

import "fmt"

// Role names which side of a change referenced a missing employee.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// SelfManagementError is returned when an employee would report to themselves.
type SelfManagementError struct {
	EmployeeID int
}

func (e *SelfManagementError) Error() string {
	return fmt.Sprintf("employee %d cannot manage themselves", e.EmployeeID)
}

// CycleError is returned when the proposed manager is the employee or one of
// the employee's descendants.
type CycleError struct {
	EmployeeID int
	ManagerID  int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("employee %d cannot report to %d: reporting cycle", e.EmployeeID, e.ManagerID)
}

// NotFoundError is returned when a referenced employee does not exist.
type NotFoundError struct {
	Role Role
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Role, e.ID)
}

// InvalidStructureError is returned when a tree violates a structural invariant.
// ID is the offending employee id, zero when the problem is not tied to one node.
type InvalidStructureError struct {
	Reason string
	ID     int
}

func (e *InvalidStructureError) Error() string {
	if e.ID == 0 {
		return "invalid structure: " + e.Reason
	}
	return fmt.Sprintf("invalid structure: %s (id %d)", e.Reason, e.ID)
}

func invalid(id int, format string, args ...any) *InvalidStructureError {
	return &InvalidStructureError{Reason: fmt.Sprintf(format, args...), ID: id}
}
