package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

func newTestRepository(t *testing.T) *RequisitionRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "requisitions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRequisitionRepository(db)
}

func initiatedRequisition(t *testing.T, facilityID, programID uuid.UUID, created time.Time) *entities.Requisition {
	t.Helper()

	clock := created
	r, err := entities.NewRequisition(facilityID, programID, uuid.New(), false,
		entities.WithClock(func() time.Time {
			clock = clock.Add(time.Millisecond)
			return clock
		}),
		entities.WithDefaultPricePerPack(decimal.RequireFromString("1.50")),
	)
	require.NoError(t, err)

	orderable := entities.Orderable{
		ID:         uuid.New(),
		NetContent: 10,
		Programs: []entities.ProgramOrderable{{
			ProgramID:  programID,
			FullSupply: true,
			Active:     true,
		}},
	}
	template := entities.NewRequisitionTemplate(programID, map[entities.Column]entities.ColumnDefinition{
		entities.ColumnBeginningBalance:      {Displayed: true, Source: entities.SourceUserInput},
		entities.ColumnStockOnHand:           {Displayed: true, Source: entities.SourceUserInput},
		entities.ColumnTotalConsumedQuantity: {Displayed: true, Source: entities.SourceCalculated},
	})
	require.NoError(t, r.Initiate(entities.InitiateParams{
		Template: template,
		ApprovedProducts: []entities.ApprovedProduct{{
			ID:                uuid.New(),
			Orderable:         orderable,
			MaxPeriodsOfStock: decimal.NewFromInt(3),
		}},
		NumberOfMonthsInPeriod: 1,
		InitiatorID:            uuid.New(),
		StockOnHand:            map[uuid.UUID]int{orderable.ID: 12},
	}))
	return r
}

func TestRequisitionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	r := initiatedRequisition(t, uuid.New(), uuid.New(), time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))
	stockCount := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	r.DatePhysicalStockCountCompleted = &stockCount

	require.NoError(t, repo.Save(ctx, r))
	assert.Equal(t, int64(1), r.Version)

	loaded, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, entities.StatusInitiated, loaded.Status)
	assert.Equal(t, int64(1), loaded.Version)
	assert.True(t, r.CreatedDate.Equal(loaded.CreatedDate))
	assert.True(t, stockCount.Equal(*loaded.DatePhysicalStockCountCompleted))
	assert.True(t, loaded.DefaultPricePerPack.Equal(decimal.RequireFromString("1.50")))
	require.Len(t, loaded.LineItems, 1)
	assert.Equal(t, 12, *loaded.LineItems[0].StockOnHand)
	assert.True(t, loaded.Template.IsColumnCalculated(entities.ColumnTotalConsumedQuantity))
	require.Len(t, loaded.StatusChanges, 1)
	assert.Equal(t, r.StatusChanges[0].ID, loaded.StatusChanges[0].ID)

	require.NoError(t, loaded.Submit(nil, uuid.New(), false))
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSubmitted, reloaded.Status)
	assert.Equal(t, int64(2), reloaded.Version)
	require.Len(t, reloaded.StatusChanges, 2)
	require.NotNil(t, reloaded.StatusChanges[1].PreviousStatusChangeID)
	assert.Equal(t, reloaded.StatusChanges[0].ID, *reloaded.StatusChanges[1].PreviousStatusChangeID)
	assert.Equal(t, -12, *reloaded.LineItems[0].TotalConsumedQuantity)
}

func TestRequisitionRepository_StaleSaveFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	r := initiatedRequisition(t, uuid.New(), uuid.New(), time.Now())
	require.NoError(t, repo.Save(ctx, r))

	first, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, first))
	err = repo.Save(ctx, second)
	assert.True(t, errors.Is(err, entities.ErrVersionMismatch))

	fresh := r.Clone()
	fresh.Version = 0
	assert.True(t, errors.Is(repo.Save(ctx, fresh), entities.ErrVersionMismatch))

	missing := r.Clone()
	missing.ID = uuid.New()
	missing.Version = 4
	assert.True(t, errors.Is(repo.Save(ctx, missing), entities.ErrNotFound))
}

func TestRequisitionRepository_DeleteAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	facility, program := uuid.New(), uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var saved []*entities.Requisition
	for i := 0; i < 3; i++ {
		r := initiatedRequisition(t, facility, program, base.AddDate(0, i, 0))
		if i == 2 {
			require.NoError(t, r.Submit(nil, uuid.New(), true))
		}
		require.NoError(t, repo.Save(ctx, r))
		saved = append(saved, r)
	}

	page, err := repo.Search(ctx, repositories.SearchCriteria{FacilityID: facility, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	require.Len(t, page.Items, 2)
	assert.Equal(t, saved[0].ID, page.Items[0].ID)
	assert.Len(t, page.Items[0].StatusChanges, 1)

	authorized, err := repo.Search(ctx, repositories.SearchCriteria{
		ProgramID: program,
		Statuses:  []entities.RequisitionStatus{entities.StatusAuthorized, entities.StatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, authorized.Items, 1)
	assert.Equal(t, saved[2].ID, authorized.Items[0].ID)

	recent, err := repo.RecentRegularRequisitions(ctx, facility, program, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, saved[1].ID, recent[0].ID)
	assert.Equal(t, saved[2].ID, recent[1].ID)

	last, err := repo.LastRegularRequisition(ctx, facility, program)
	require.NoError(t, err)
	assert.Equal(t, saved[2].ID, last.ID)

	require.NoError(t, repo.Delete(ctx, saved[2].ID))
	assert.True(t, errors.Is(repo.Delete(ctx, saved[2].ID), entities.ErrNotFound))
	_, err = repo.Get(ctx, saved[2].ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}
