package permission

import (
	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// Service decides whether the current user may perform an operation on a
// requisition. Every method returns nil when allowed. A missing right is
// reported as an error matching ErrMissingPermission; a status in which the
// operation can never happen is reported as an invalid state transition.
type Service struct {
	rights RightAssignmentValidator
	roles  RoleAssignmentValidator
}

// NewService creates a permission service from the two check strategies
func NewService(rights RightAssignmentValidator, roles RoleAssignmentValidator) *Service {
	return &Service{rights: rights, roles: roles}
}

func (s *Service) checkRight(right Right, r *entities.Requisition) error {
	return s.rights.HasRight(RightAssignmentDetails{
		Right:      right,
		FacilityID: r.FacilityID,
		ProgramID:  r.ProgramID,
	})
}

func (s *Service) checkRole(right Right, r *entities.Requisition) error {
	return s.roles.HasRole(RoleAssignmentDetails{Right: right, Requisition: r})
}

// CanInitRequisition checks the create right for the facility and program
func (s *Service) CanInitRequisition(programID, facilityID uuid.UUID) error {
	return s.rights.HasRight(RightAssignmentDetails{
		Right:      RequisitionCreate,
		FacilityID: facilityID,
		ProgramID:  programID,
	})
}

// CanUpdateRequisition checks the right needed to edit a requisition in its
// current status. A missing right is reported together with that status.
func (s *Service) CanUpdateRequisition(r *entities.Requisition) error {
	if !r.Status.IsUpdatable() {
		return &entities.InvalidStateTransitionError{
			Operation: "update",
			From:      r.Status,
			Allowed:   entities.UpdatableStatuses(),
		}
	}

	right := RequisitionCreate
	switch r.Status {
	case entities.StatusSubmitted:
		right = RequisitionAuthorize
	case entities.StatusAuthorized, entities.StatusInApproval:
		right = RequisitionApprove
	}

	if err := s.checkRole(right, r); err != nil {
		status := r.Status
		return &MissingPermissionError{Right: right, Status: &status}
	}
	return nil
}

// CanSubmitRequisition checks the create right
func (s *Service) CanSubmitRequisition(r *entities.Requisition) error {
	return s.checkRight(RequisitionCreate, r)
}

// CanSkipRequisition checks the create right
func (s *Service) CanSkipRequisition(r *entities.Requisition) error {
	return s.checkRight(RequisitionCreate, r)
}

// CanAuthorizeRequisition checks the authorize right
func (s *Service) CanAuthorizeRequisition(r *entities.Requisition) error {
	return s.checkRight(RequisitionAuthorize, r)
}

// CanApproveRequisition checks the approve right at the requisition's node
func (s *Service) CanApproveRequisition(r *entities.Requisition) error {
	return s.checkRole(RequisitionApprove, r)
}

// CanRejectRequisition needs the same right as approval
func (s *Service) CanRejectRequisition(r *entities.Requisition) error {
	return s.checkRole(RequisitionApprove, r)
}

// CanViewRequisition checks the view right
func (s *Service) CanViewRequisition(r *entities.Requisition) error {
	return s.checkRole(RequisitionView, r)
}

// CanDeleteRequisition checks the delete right and then the right that owns
// the requisition in its current status.
func (s *Service) CanDeleteRequisition(r *entities.Requisition) error {
	if err := s.checkRight(RequisitionDelete, r); err != nil {
		return err
	}

	switch r.Status {
	case entities.StatusInitiated, entities.StatusRejected, entities.StatusSkipped:
		return s.checkRight(RequisitionCreate, r)
	case entities.StatusSubmitted:
		return s.checkRight(RequisitionAuthorize, r)
	default:
		return &entities.InvalidStateTransitionError{
			Operation: "delete",
			From:      r.Status,
			Allowed: []entities.RequisitionStatus{
				entities.StatusInitiated, entities.StatusRejected,
				entities.StatusSkipped, entities.StatusSubmitted,
			},
		}
	}
}

// CanConvertToOrder checks the orders edit right on every supplying depot
func (s *Service) CanConvertToOrder(releasables []entities.ReleasableRequisition) error {
	for _, releasable := range releasables {
		err := s.rights.HasRight(RightAssignmentDetails{
			Right:       OrdersEdit,
			WarehouseID: releasable.SupplyingDepotID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// CanManageRequisitionTemplate checks the template management right
func (s *Service) CanManageRequisitionTemplate() error {
	return s.rights.HasRight(RightAssignmentDetails{Right: RequisitionTemplatesManage})
}
