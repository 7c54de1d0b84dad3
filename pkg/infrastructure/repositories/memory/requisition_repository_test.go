package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

func newStoredRequisition(t *testing.T, facilityID, programID uuid.UUID, emergency bool, created time.Time) *entities.Requisition {
	t.Helper()
	r, err := entities.NewRequisition(facilityID, programID, uuid.New(), emergency,
		entities.WithClock(func() time.Time { return created }))
	require.NoError(t, err)
	return r
}

func TestRequisitionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRequisitionRepository()
	r := newStoredRequisition(t, uuid.New(), uuid.New(), false, time.Now())

	require.NoError(t, repo.Save(ctx, r))
	assert.Equal(t, int64(1), r.Version)

	loaded, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, int64(1), loaded.Version)

	loaded.Emergency = true
	stored, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, stored.Emergency)

	_, err = repo.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestRequisitionRepository_OptimisticVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewRequisitionRepository()
	r := newStoredRequisition(t, uuid.New(), uuid.New(), false, time.Now())
	require.NoError(t, repo.Save(ctx, r))

	first, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	err = repo.Save(ctx, second)
	assert.True(t, errors.Is(err, entities.ErrVersionMismatch))
	assert.Equal(t, int64(1), second.Version)

	duplicate := r.Clone()
	duplicate.Version = 0
	assert.True(t, errors.Is(repo.Save(ctx, duplicate), entities.ErrVersionMismatch))
}

func TestRequisitionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewRequisitionRepository()
	r := newStoredRequisition(t, uuid.New(), uuid.New(), false, time.Now())
	require.NoError(t, repo.Save(ctx, r))

	require.NoError(t, repo.Delete(ctx, r.ID))
	_, err := repo.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, r.ID), entities.ErrNotFound))
}

func TestRequisitionRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewRequisitionRepository()
	facility, program := uuid.New(), uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var saved []*entities.Requisition
	for i := 0; i < 5; i++ {
		r := newStoredRequisition(t, facility, program, i == 4, base.AddDate(0, i, 0))
		if i == 1 {
			r.Status = entities.StatusApproved
		}
		require.NoError(t, repo.Save(ctx, r))
		saved = append(saved, r)
	}
	require.NoError(t, repo.Save(ctx, newStoredRequisition(t, uuid.New(), program, false, base)))

	page, err := repo.Search(ctx, repositories.SearchCriteria{FacilityID: facility, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalElements)
	require.Len(t, page.Items, 2)
	assert.Equal(t, saved[2].ID, page.Items[0].ID)
	assert.Equal(t, saved[3].ID, page.Items[1].ID)

	approved, err := repo.Search(ctx, repositories.SearchCriteria{
		ProgramID: program,
		Statuses:  []entities.RequisitionStatus{entities.StatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, approved.Items, 1)
	assert.Equal(t, saved[1].ID, approved.Items[0].ID)

	emergency := true
	from := base.AddDate(0, 3, 0)
	found, err := repo.Search(ctx, repositories.SearchCriteria{FacilityID: facility, Emergency: &emergency, CreatedFrom: &from})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, saved[4].ID, found.Items[0].ID)

	beyond, err := repo.Search(ctx, repositories.SearchCriteria{FacilityID: facility, Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestRequisitionRepository_RegularRequisitions(t *testing.T) {
	ctx := context.Background()
	repo := NewRequisitionRepository()
	facility, program := uuid.New(), uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.LastRegularRequisition(ctx, facility, program)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	var regular []*entities.Requisition
	for i := 0; i < 4; i++ {
		r := newStoredRequisition(t, facility, program, false, base.AddDate(0, i, 0))
		require.NoError(t, repo.Save(ctx, r))
		regular = append(regular, r)
	}
	require.NoError(t, repo.Save(ctx, newStoredRequisition(t, facility, program, true, base.AddDate(1, 0, 0))))

	last, err := repo.LastRegularRequisition(ctx, facility, program)
	require.NoError(t, err)
	assert.Equal(t, regular[3].ID, last.ID)

	recent, err := repo.RecentRegularRequisitions(ctx, facility, program, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, regular[2].ID, recent[0].ID)
	assert.Equal(t, regular[3].ID, recent[1].ID)
}
