package permission

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// Right is the name of a permission granted to a user
type Right string

const (
	RequisitionCreate          Right = "REQUISITION_CREATE"
	RequisitionDelete          Right = "REQUISITION_DELETE"
	RequisitionAuthorize       Right = "REQUISITION_AUTHORIZE"
	RequisitionApprove         Right = "REQUISITION_APPROVE"
	RequisitionView            Right = "REQUISITION_VIEW"
	OrdersEdit                 Right = "ORDERS_EDIT"
	RequisitionTemplatesManage Right = "REQUISITION_TEMPLATES_MANAGE"
)

// ErrMissingPermission is matched by every MissingPermissionError
var ErrMissingPermission = errors.New("missing permission")

// MissingPermissionError reports the right a user lacks. Status is set when
// the required right depended on the requisition's status.
type MissingPermissionError struct {
	Right  Right
	Status *entities.RequisitionStatus
}

func (e *MissingPermissionError) Error() string {
	if e.Status != nil {
		return fmt.Sprintf("missing permission %s for requisition in status %s", e.Right, *e.Status)
	}
	return fmt.Sprintf("missing permission %s", e.Right)
}

// Is makes errors.Is(err, ErrMissingPermission) true
func (e *MissingPermissionError) Is(target error) bool {
	return target == ErrMissingPermission
}

// RightAssignmentDetails describes a right check. A nil id leaves that scope
// unconstrained.
type RightAssignmentDetails struct {
	Right       Right
	FacilityID  uuid.UUID
	ProgramID   uuid.UUID
	WarehouseID uuid.UUID
}

// RoleAssignmentDetails describes a right check against a specific requisition
type RoleAssignmentDetails struct {
	Right       Right
	Requisition *entities.Requisition
}

// RightAssignmentValidator checks facility, program and warehouse scoped rights
type RightAssignmentValidator interface {
	HasRight(details RightAssignmentDetails) error
}

// RoleAssignmentValidator checks rights held through a role on a requisition's
// home facility or supervisory node
type RoleAssignmentValidator interface {
	HasRole(details RoleAssignmentDetails) error
}
