package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// RequisitionRepository provides in-memory requisition storage. Aggregates are
// copied on the way in and out so callers never share state with the store.
type RequisitionRepository struct {
	mu           sync.RWMutex
	requisitions map[uuid.UUID]*entities.Requisition
}

// NewRequisitionRepository creates a new in-memory requisition repository
func NewRequisitionRepository() *RequisitionRepository {
	return &RequisitionRepository{
		requisitions: make(map[uuid.UUID]*entities.Requisition),
	}
}

// Verify interface compliance
var _ repositories.RequisitionRepository = (*RequisitionRepository)(nil)

// Get returns a copy of the stored requisition
func (r *RequisitionRepository) Get(_ context.Context, id uuid.UUID) (*entities.Requisition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.requisitions[id]
	if !exists {
		return nil, fmt.Errorf("requisition %s: %w", id, entities.ErrNotFound)
	}
	return stored.Clone(), nil
}

// Save inserts or updates the requisition, checking its version
func (r *RequisitionRepository) Save(_ context.Context, requisition *entities.Requisition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.requisitions[requisition.ID]
	switch {
	case requisition.Version == 0 && exists:
		return fmt.Errorf("requisition %s already exists: %w", requisition.ID, entities.ErrVersionMismatch)
	case requisition.Version != 0 && !exists:
		return fmt.Errorf("requisition %s: %w", requisition.ID, entities.ErrNotFound)
	case exists && stored.Version != requisition.Version:
		return fmt.Errorf("requisition %s has version %d, got %d: %w",
			requisition.ID, stored.Version, requisition.Version, entities.ErrVersionMismatch)
	}

	requisition.Version++
	r.requisitions[requisition.ID] = requisition.Clone()
	return nil
}

// Delete removes the requisition
func (r *RequisitionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requisitions[id]; !exists {
		return fmt.Errorf("requisition %s: %w", id, entities.ErrNotFound)
	}
	delete(r.requisitions, id)
	return nil
}

// Search returns matching requisitions ordered by creation date
func (r *RequisitionRepository) Search(_ context.Context, criteria repositories.SearchCriteria) (repositories.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.sortedMatches(criteria.Matches)
	return repositories.NewPage(matches, criteria.Page, criteria.PageSize), nil
}

// LastRegularRequisition returns the newest non emergency requisition
func (r *RequisitionRepository) LastRegularRequisition(ctx context.Context, facilityID, programID uuid.UUID) (*entities.Requisition, error) {
	recent, err := r.RecentRegularRequisitions(ctx, facilityID, programID, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, fmt.Errorf("no regular requisition for facility %s and program %s: %w",
			facilityID, programID, entities.ErrNotFound)
	}
	return recent[0], nil
}

// RecentRegularRequisitions returns up to limit non emergency requisitions, oldest first
func (r *RequisitionRepository) RecentRegularRequisitions(_ context.Context, facilityID, programID uuid.UUID, limit int) ([]*entities.Requisition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regular := false
	criteria := repositories.SearchCriteria{FacilityID: facilityID, ProgramID: programID, Emergency: &regular}
	matches := r.sortedMatches(criteria.Matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}
	return matches, nil
}

// sortedMatches returns copies of matching requisitions ordered by creation
// date; callers must hold the lock
func (r *RequisitionRepository) sortedMatches(match func(*entities.Requisition) bool) []*entities.Requisition {
	matches := make([]*entities.Requisition, 0)
	for _, stored := range r.requisitions {
		if match(stored) {
			matches = append(matches, stored.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedDate.Equal(matches[j].CreatedDate) {
			return matches[i].ID.String() < matches[j].ID.String()
		}
		return matches[i].CreatedDate.Before(matches[j].CreatedDate)
	})
	return matches
}
