package permission

import (
	"github.com/google/uuid"
)

// RightAssignment grants a right, optionally limited to a facility, program
// or warehouse. A nil id grants the right on every value of that scope.
type RightAssignment struct {
	Right       Right     `json:"right" yaml:"right"`
	FacilityID  uuid.UUID `json:"facilityId" yaml:"facilityId"`
	ProgramID   uuid.UUID `json:"programId" yaml:"programId"`
	WarehouseID uuid.UUID `json:"warehouseId" yaml:"warehouseId"`
}

// RoleAssignment grants a right for one program, either at the user's home
// facility or at a supervisory node.
type RoleAssignment struct {
	Right             Right     `json:"right" yaml:"right"`
	ProgramID         uuid.UUID `json:"programId" yaml:"programId"`
	FacilityID        uuid.UUID `json:"facilityId" yaml:"facilityId"`
	SupervisoryNodeID uuid.UUID `json:"supervisoryNodeId" yaml:"supervisoryNodeId"`
}

// UserAssignments lists everything a user has been granted
type UserAssignments struct {
	UserID uuid.UUID         `json:"userId" yaml:"userId"`
	Rights []RightAssignment `json:"rights" yaml:"rights"`
	Roles  []RoleAssignment  `json:"roles" yaml:"roles"`
}

// AssignmentValidator answers right and role checks from a user's assignments
type AssignmentValidator struct {
	assignments UserAssignments
}

var (
	_ RightAssignmentValidator = (*AssignmentValidator)(nil)
	_ RoleAssignmentValidator  = (*AssignmentValidator)(nil)
)

// NewAssignmentValidator creates a validator for one user
func NewAssignmentValidator(assignments UserAssignments) *AssignmentValidator {
	return &AssignmentValidator{assignments: assignments}
}

// NewServiceForUser wires a permission service backed by the user's assignments
func NewServiceForUser(assignments UserAssignments) *Service {
	v := NewAssignmentValidator(assignments)
	return NewService(v, v)
}

func scopeMatches(granted, requested uuid.UUID) bool {
	return granted == uuid.Nil || granted == requested
}

// HasRight implements RightAssignmentValidator
func (v *AssignmentValidator) HasRight(details RightAssignmentDetails) error {
	for _, a := range v.assignments.Rights {
		if a.Right != details.Right {
			continue
		}
		if scopeMatches(a.FacilityID, details.FacilityID) &&
			scopeMatches(a.ProgramID, details.ProgramID) &&
			scopeMatches(a.WarehouseID, details.WarehouseID) {
			return nil
		}
	}
	return &MissingPermissionError{Right: details.Right}
}

// HasRole implements RoleAssignmentValidator
func (v *AssignmentValidator) HasRole(details RoleAssignmentDetails) error {
	r := details.Requisition
	if r == nil {
		return &MissingPermissionError{Right: details.Right}
	}

	for _, a := range v.assignments.Roles {
		if a.Right != details.Right || a.ProgramID != r.ProgramID {
			continue
		}
		if a.SupervisoryNodeID != uuid.Nil {
			if r.SupervisoryNodeID != nil && *r.SupervisoryNodeID == a.SupervisoryNodeID {
				return nil
			}
			continue
		}
		if a.FacilityID == r.FacilityID {
			return nil
		}
	}
	return &MissingPermissionError{Right: details.Right}
}
