package entities

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is an immutable record of one accepted transition. Records form
// a singly linked history through PreviousStatusChangeID.
type StatusChange struct {
	ID                     uuid.UUID         `json:"id"`
	RequisitionID          uuid.UUID         `json:"requisitionId"`
	Status                 RequisitionStatus `json:"status"`
	AuthorID               uuid.UUID         `json:"authorId"`
	CreatedDate            time.Time         `json:"createdDate"`
	PreviousStatusChangeID *uuid.UUID        `json:"previousStatusChangeId,omitempty"`
}

// NewStatusChange records the requisition's current status, linking it to the
// latest change already recorded on the requisition.
func NewStatusChange(r *Requisition, authorID uuid.UUID, createdDate time.Time) (StatusChange, error) {
	if r == nil {
		return StatusChange{}, newValidationError("requisition", "requisition is required")
	}
	if r.ID == uuid.Nil {
		return StatusChange{}, newValidationError("requisitionId", "requisition id is required")
	}
	if authorID == uuid.Nil {
		return StatusChange{}, newValidationError("authorId", "author id is required")
	}
	return r.newStatusChange(authorID, createdDate), nil
}

// newStatusChange builds the record without validation; ids are checked by
// the transition before anything is mutated.
func (r *Requisition) newStatusChange(authorID uuid.UUID, createdDate time.Time) StatusChange {
	change := StatusChange{
		ID:            uuid.New(),
		RequisitionID: r.ID,
		Status:        r.Status,
		AuthorID:      authorID,
		CreatedDate:   createdDate,
	}
	if latest, ok := r.LatestStatusChange(); ok {
		previousID := latest.ID
		change.PreviousStatusChangeID = &previousID
	}
	return change
}

// LatestStatusChange returns the change with the greatest creation time. When
// several share it, the one recorded last wins.
func (r *Requisition) LatestStatusChange() (StatusChange, bool) {
	if len(r.StatusChanges) == 0 {
		return StatusChange{}, false
	}
	latest := r.StatusChanges[0]
	for _, change := range r.StatusChanges[1:] {
		if !change.CreatedDate.Before(latest.CreatedDate) {
			latest = change
		}
	}
	return latest, true
}
