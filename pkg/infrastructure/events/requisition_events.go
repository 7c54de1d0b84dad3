package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

const (
	RequisitionStatusChangedEvent = "requisition.status_changed"
	RequisitionUpdatedEvent       = "requisition.updated"
	RequisitionDeletedEvent       = "requisition.deleted"
)

// RequisitionStatusChanged is published after a transition has been persisted
type RequisitionStatusChanged struct {
	RequisitionID     uuid.UUID                  `json:"requisition_id"`
	FacilityID        uuid.UUID                  `json:"facility_id"`
	ProgramID         uuid.UUID                  `json:"program_id"`
	SupervisoryNodeID *uuid.UUID                 `json:"supervisory_node_id,omitempty"`
	Emergency         bool                       `json:"emergency"`
	PreviousStatus    entities.RequisitionStatus `json:"previous_status"`
	Status            entities.RequisitionStatus `json:"status"`
	AuthorID          uuid.UUID                  `json:"author_id"`
}

type RequisitionUpdated struct {
	RequisitionID uuid.UUID `json:"requisition_id"`
	AuthorID      uuid.UUID `json:"author_id"`
	LineItems     int       `json:"line_items"`
}

type RequisitionDeleted struct {
	RequisitionID uuid.UUID                  `json:"requisition_id"`
	Status        entities.RequisitionStatus `json:"status"`
	AuthorID      uuid.UUID                  `json:"author_id"`
}

// NewStatusChangedEvent describes the latest transition of r
func NewStatusChangedEvent(r *entities.Requisition, previous entities.RequisitionStatus, authorID uuid.UUID, at time.Time) Event {
	data := RequisitionStatusChanged{
		RequisitionID:  r.ID,
		FacilityID:     r.FacilityID,
		ProgramID:      r.ProgramID,
		Emergency:      r.Emergency,
		PreviousStatus: previous,
		Status:         r.Status,
		AuthorID:       authorID,
	}
	if r.SupervisoryNodeID != nil {
		node := *r.SupervisoryNodeID
		data.SupervisoryNodeID = &node
	}
	return NewEvent(RequisitionStatusChangedEvent, r.ID, data, at)
}
