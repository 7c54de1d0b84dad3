package permission

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

func TestAssignmentValidator_HasRight(t *testing.T) {
	facility, program := uuid.New(), uuid.New()
	v := NewAssignmentValidator(UserAssignments{
		Rights: []RightAssignment{
			{Right: RequisitionCreate, FacilityID: facility, ProgramID: program},
			{Right: RequisitionView},
		},
	})

	testCases := []struct {
		name    string
		details RightAssignmentDetails
		allowed bool
	}{
		{"exact scope", RightAssignmentDetails{Right: RequisitionCreate, FacilityID: facility, ProgramID: program}, true},
		{"other facility", RightAssignmentDetails{Right: RequisitionCreate, FacilityID: uuid.New(), ProgramID: program}, false},
		{"other program", RightAssignmentDetails{Right: RequisitionCreate, FacilityID: facility, ProgramID: uuid.New()}, false},
		{"unscoped grant", RightAssignmentDetails{Right: RequisitionView, FacilityID: uuid.New(), ProgramID: uuid.New()}, true},
		{"right not granted", RightAssignmentDetails{Right: RequisitionDelete, FacilityID: facility, ProgramID: program}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.HasRight(tc.details)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrMissingPermission))
		})
	}
}

func TestAssignmentValidator_HasRole(t *testing.T) {
	facility, program, node := uuid.New(), uuid.New(), uuid.New()
	v := NewAssignmentValidator(UserAssignments{
		Roles: []RoleAssignment{
			{Right: RequisitionCreate, ProgramID: program, FacilityID: facility},
			{Right: RequisitionApprove, ProgramID: program, SupervisoryNodeID: node},
		},
	})

	atHome := &entities.Requisition{FacilityID: facility, ProgramID: program}
	atNode := &entities.Requisition{FacilityID: uuid.New(), ProgramID: program, SupervisoryNodeID: &node}
	elsewhere := &entities.Requisition{FacilityID: uuid.New(), ProgramID: program}

	assert.NoError(t, v.HasRole(RoleAssignmentDetails{Right: RequisitionCreate, Requisition: atHome}))
	assert.NoError(t, v.HasRole(RoleAssignmentDetails{Right: RequisitionApprove, Requisition: atNode}))

	assert.Error(t, v.HasRole(RoleAssignmentDetails{Right: RequisitionCreate, Requisition: elsewhere}))
	assert.Error(t, v.HasRole(RoleAssignmentDetails{Right: RequisitionApprove, Requisition: atHome}))
	assert.Error(t, v.HasRole(RoleAssignmentDetails{Right: RequisitionApprove, Requisition: nil}))
}
