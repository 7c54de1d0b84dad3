package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// SearchCriteria filters requisitions. Zero values leave a filter unset.
type SearchCriteria struct {
	FacilityID         uuid.UUID
	ProgramID          uuid.UUID
	ProcessingPeriodID uuid.UUID
	SupervisoryNodeID  uuid.UUID
	Statuses           []entities.RequisitionStatus
	Emergency          *bool
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	// Page is zero based; a PageSize of zero returns every match
	Page     int
	PageSize int
}

// Page is one page of search results ordered by creation date
type Page struct {
	Items         []*entities.Requisition
	TotalElements int
	Page          int
	PageSize      int
}

// RequisitionRepository persists requisition aggregates with optimistic
// versioning: Save inserts when Version is zero, otherwise it succeeds only if
// the stored version equals the aggregate's, and increments Version on success.
// A stale save fails with entities.ErrVersionMismatch.
type RequisitionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entities.Requisition, error)
	Save(ctx context.Context, r *entities.Requisition) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, criteria SearchCriteria) (Page, error)
	// LastRegularRequisition returns the most recently created non emergency
	// requisition for the facility and program
	LastRegularRequisition(ctx context.Context, facilityID, programID uuid.UUID) (*entities.Requisition, error)
	// RecentRegularRequisitions returns up to limit non emergency requisitions,
	// oldest first
	RecentRegularRequisitions(ctx context.Context, facilityID, programID uuid.UUID, limit int) ([]*entities.Requisition, error)
}

// Matches reports whether a requisition satisfies every set filter
func (c SearchCriteria) Matches(r *entities.Requisition) bool {
	if c.FacilityID != uuid.Nil && r.FacilityID != c.FacilityID {
		return false
	}
	if c.ProgramID != uuid.Nil && r.ProgramID != c.ProgramID {
		return false
	}
	if c.ProcessingPeriodID != uuid.Nil && r.ProcessingPeriodID != c.ProcessingPeriodID {
		return false
	}
	if c.SupervisoryNodeID != uuid.Nil && (r.SupervisoryNodeID == nil || *r.SupervisoryNodeID != c.SupervisoryNodeID) {
		return false
	}
	if c.Emergency != nil && r.Emergency != *c.Emergency {
		return false
	}
	if c.CreatedFrom != nil && r.CreatedDate.Before(*c.CreatedFrom) {
		return false
	}
	if c.CreatedTo != nil && r.CreatedDate.After(*c.CreatedTo) {
		return false
	}
	if len(c.Statuses) == 0 {
		return true
	}
	for _, status := range c.Statuses {
		if r.Status == status {
			return true
		}
	}
	return false
}

// NewPage slices sorted matches into the requested page
func NewPage(matches []*entities.Requisition, page, pageSize int) Page {
	result := Page{TotalElements: len(matches), Page: page, PageSize: pageSize}
	if pageSize <= 0 {
		result.Items = matches
		return result
	}
	start := page * pageSize
	if start >= len(matches) || start < 0 {
		result.Items = []*entities.Requisition{}
		return result
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}
	result.Items = matches[start:end]
	return result
}
