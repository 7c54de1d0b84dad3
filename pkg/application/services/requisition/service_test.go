package requisition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services/permission"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	fixtures "github.com/vsinha/requisition/pkg/infrastructure/testing"
)

type countingNotifier struct {
	approvals      int
	convertToOrder int
}

func (n *countingNotifier) NotifyApprovers(events.RequisitionStatusChanged) error {
	n.approvals++
	return nil
}

func (n *countingNotifier) NotifyConvertToOrder(events.RequisitionStatusChanged) error {
	n.convertToOrder++
	return nil
}

type harness struct {
	scenario *fixtures.DistrictScenario
	service  *RequisitionService
	store    *events.MemoryStore
	notifier *countingNotifier
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()
	scenario := fixtures.BuildDistrictScenario()
	store := events.NewMemoryStore(nil)
	notifier := &countingNotifier{}
	_, err := store.Subscribe(events.NewStatusProcessor(notifier, notifier, nil, nil), events.RequisitionStatusChangedEvent)
	require.NoError(t, err)

	current := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
	return &harness{
		scenario: scenario,
		service: NewRequisitionService(config, scenario.Requisitions, scenario.ReferenceData,
			WithClock(clock), WithEventStore(store)),
		store:    store,
		notifier: notifier,
	}
}

func actorFor(assignments permission.UserAssignments) Actor {
	return Actor{UserID: assignments.UserID, Permissions: permission.NewServiceForUser(assignments)}
}

func (h *harness) initiate(t *testing.T, period int) *entities.Requisition {
	t.Helper()
	s := h.scenario
	r, err := h.service.Initiate(context.Background(), actorFor(s.Clerk), InitiateRequest{
		FacilityID:         s.FacilityID,
		ProgramID:          s.ProgramID,
		ProcessingPeriodID: s.Periods[period].ID,
		SupervisoryNodeID:  s.DistrictNodeID,
	})
	require.NoError(t, err)
	return r
}

// fillIn enters a stock count for both full supply products
func (h *harness) fillIn(t *testing.T, r *entities.Requisition) *entities.Requisition {
	t.Helper()
	s := h.scenario
	incoming := r.Clone()
	amox := incoming.FindLineByProductID(s.Orderables[0].ID)
	amox.BeginningBalance = entities.IntPtr(500)
	amox.TotalReceivedQuantity = entities.IntPtr(100)
	amox.StockOnHand = entities.IntPtr(400)
	ors := incoming.FindLineByProductID(s.Orderables[1].ID)
	ors.BeginningBalance = entities.IntPtr(50)
	ors.TotalReceivedQuantity = entities.IntPtr(20)
	ors.StockOnHand = entities.IntPtr(35)

	updated, err := h.service.Update(context.Background(), actorFor(s.Clerk), r.ID, incoming)
	require.NoError(t, err)
	return updated
}

func TestRequisitionService_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{UpdateStockDate: true})
	s := h.scenario
	clerk := actorFor(s.Clerk)

	r := h.initiate(t, 0)
	assert.Equal(t, entities.StatusInitiated, r.Status)
	assert.Equal(t, int64(1), r.Version)
	require.Len(t, r.LineItems, 2)
	amox := r.FindLineByProductID(s.Orderables[0].ID)
	require.NotNil(t, amox)
	assert.Equal(t, 400, *amox.StockOnHand)
	assert.Equal(t, 1200, *amox.IdealStockAmount)
	assert.Nil(t, amox.BeginningBalance)
	assert.Len(t, r.StockAdjustmentReasons, 2)

	r = h.fillIn(t, r)
	assert.Equal(t, int64(2), r.Version)
	amox = r.FindLineByProductID(s.Orderables[0].ID)
	assert.Equal(t, 200, *amox.TotalConsumedQuantity)
	assert.Equal(t, 200, *amox.AdjustedConsumption)
	assert.Equal(t, 600, *amox.MaximumStockQuantity)
	assert.Equal(t, 200, *amox.CalculatedOrderQuantity)

	r, err := h.service.Submit(ctx, clerk, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSubmitted, r.Status)

	r, err = h.service.Authorize(ctx, clerk, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAuthorized, r.Status)
	amox = r.FindLineByProductID(s.Orderables[0].ID)
	assert.Equal(t, 200, *amox.ApprovedQuantity)
	assert.Equal(t, int64(2), *amox.PacksToShip)

	total, err := r.TotalCost()
	require.NoError(t, err)
	assert.True(t, total.Amount.Equal(decimal.RequireFromString("17.40")), total.String())

	r, err = h.service.Approve(ctx, actorFor(s.DistrictManager), r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInApproval, r.Status)
	require.NotNil(t, r.SupervisoryNodeID)
	assert.Equal(t, s.RegionNodeID, *r.SupervisoryNodeID)

	_, err = h.service.Approve(ctx, actorFor(s.DistrictManager), r.ID)
	assert.True(t, errors.Is(err, permission.ErrMissingPermission))

	r, err = h.service.Approve(ctx, actorFor(s.RegionManager), r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusApproved, r.Status)
	require.NotNil(t, r.SupplyingFacilityID)
	assert.Equal(t, s.WarehouseID, *r.SupplyingFacilityID)

	approved, err := h.service.SearchApproved(ctx, repositories.SearchCriteria{ProgramID: s.ProgramID})
	require.NoError(t, err)
	require.Len(t, approved.Items, 1)
	assert.Equal(t, r.ID, approved.Items[0].ID)

	releasables := []entities.ReleasableRequisition{{RequisitionID: r.ID, SupplyingDepotID: s.WarehouseID}}
	_, err = h.service.Release(ctx, clerk, releasables)
	assert.True(t, errors.Is(err, permission.ErrMissingPermission))

	released, err := h.service.Release(ctx, actorFor(s.Storekeeper), releasables)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, entities.StatusReleased, released[0].Status)

	stored, err := h.service.Get(ctx, clerk, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusReleased, stored.Status)
	assert.Len(t, stored.StatusChanges, 6)
	latest, ok := stored.LatestStatusChange()
	require.True(t, ok)
	assert.Equal(t, entities.StatusReleased, latest.Status)

	assert.Equal(t, 2, h.notifier.approvals)
	assert.Equal(t, 1, h.notifier.convertToOrder)

	err = h.service.Delete(ctx, clerk, r.ID)
	assert.True(t, errors.Is(err, entities.ErrInvalidStateTransition))
}

func TestRequisitionService_InitiateUsesHistory(t *testing.T) {
	h := newHarness(t, Config{})
	s := h.scenario

	first := h.fillIn(t, h.initiate(t, 0))
	_, err := h.service.Submit(context.Background(), actorFor(s.Clerk), first.ID)
	require.NoError(t, err)

	second := h.initiate(t, 1)
	require.Len(t, second.PreviousRequisitions, 1)
	amox := second.FindLineByProductID(s.Orderables[0].ID)
	require.NotNil(t, amox.BeginningBalance)
	assert.Equal(t, 400, *amox.BeginningBalance)
	assert.Equal(t, []int{200}, amox.PreviousAdjustedConsumptions)
}

func TestRequisitionService_InitiateGuards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	s := h.scenario
	request := InitiateRequest{FacilityID: s.FacilityID, ProgramID: s.ProgramID, ProcessingPeriodID: s.Periods[0].ID}

	_, err := h.service.Initiate(ctx, actorFor(s.Storekeeper), request)
	assert.True(t, errors.Is(err, permission.ErrMissingPermission))
	page, err := h.service.Search(ctx, repositories.SearchCriteria{FacilityID: s.FacilityID})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalElements)

	_, err = h.service.Initiate(ctx, Actor{UserID: uuid.New()}, request)
	assert.True(t, errors.Is(err, entities.ErrValidation))

	_, err = h.service.Initiate(ctx, actorFor(s.Clerk), request)
	require.NoError(t, err)
	_, err = h.service.Initiate(ctx, actorFor(s.Clerk), request)
	assert.True(t, errors.Is(err, entities.ErrValidation))

	request.Emergency = true
	emergency, err := h.service.Initiate(ctx, actorFor(s.Clerk), request)
	require.NoError(t, err)
	assert.Empty(t, emergency.LineItems)

	request.ProcessingPeriodID = uuid.New()
	request.Emergency = false
	_, err = h.service.Initiate(ctx, actorFor(s.Clerk), request)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestRequisitionService_RejectAndResubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{SkipAuthorization: true})
	s := h.scenario
	clerk := actorFor(s.Clerk)

	r := h.fillIn(t, h.initiate(t, 0))
	r, err := h.service.Submit(ctx, clerk, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAuthorized, r.Status)
	assert.NotNil(t, r.FindLineByProductID(s.Orderables[0].ID).ApprovedQuantity)

	r, err = h.service.Reject(ctx, actorFor(s.DistrictManager), r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRejected, r.Status)

	_, err = h.service.Authorize(ctx, clerk, r.ID)
	assert.True(t, errors.Is(err, entities.ErrInvalidStateTransition))

	r, err = h.service.Submit(ctx, clerk, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAuthorized, r.Status)
	assert.Equal(t, 2, h.notifier.approvals)
}

func TestRequisitionService_SkipAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	s := h.scenario
	clerk := actorFor(s.Clerk)

	skipped, err := h.service.Skip(ctx, clerk, h.initiate(t, 0).ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSkipped, skipped.Status)
	assert.Len(t, skipped.SkippedLineItems(), 2)

	r := h.initiate(t, 1)
	require.NoError(t, h.service.Delete(ctx, clerk, r.ID))
	_, err = h.service.Get(ctx, clerk, r.ID)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	deleted := h.store.History(r.ID, 1)
	require.Len(t, deleted, 2)
	assert.Equal(t, events.RequisitionDeletedEvent, deleted[1].Type)
	assert.Equal(t, 2, deleted[1].Sequence)
}

func TestRequisitionService_UpdateChecksVersionAndPermission(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{})
	s := h.scenario

	r := h.initiate(t, 0)
	stale := r.Clone()
	h.fillIn(t, r)

	_, err := h.service.Update(ctx, actorFor(s.Clerk), r.ID, stale)
	assert.True(t, errors.Is(err, entities.ErrVersionMismatch))

	current, err := h.service.Get(ctx, actorFor(s.Clerk), r.ID)
	require.NoError(t, err)
	_, err = h.service.Update(ctx, actorFor(s.DistrictManager), r.ID, current)
	var missing *permission.MissingPermissionError
	require.True(t, errors.As(err, &missing))
	require.NotNil(t, missing.Status)
	assert.Equal(t, entities.StatusInitiated, *missing.Status)

	_, err = h.service.Update(ctx, actorFor(s.Clerk), uuid.New(), current)
	assert.True(t, errors.Is(err, entities.ErrValidation))

	_, err = h.service.Get(ctx, actorFor(s.Storekeeper), r.ID)
	assert.True(t, errors.Is(err, permission.ErrMissingPermission))
}
