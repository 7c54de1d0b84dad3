package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/application/services/requisition"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
)

// maxApprovalLevels bounds the walk up the supervisory node hierarchy
const maxApprovalLevels = 16

// LineEntry is what a facility reports for one product in one period. Nil
// quantities leave the value proposed at initiation untouched.
type LineEntry struct {
	OrderableID                  uuid.UUID
	BeginningBalance             *int
	TotalReceivedQuantity        *int
	StockOnHand                  *int
	TotalConsumedQuantity        *int
	TotalStockoutDays            *int
	RequestedQuantity            *int
	RequestedQuantityExplanation string
	StockAdjustments             []entities.StockAdjustment
}

// PeriodInput holds the entries reported for one processing period
type PeriodInput struct {
	ProcessingPeriodID uuid.UUID
	Lines              []LineEntry
}

// ReplayRequest describes a run of regular requisitions for one facility and program
type ReplayRequest struct {
	FacilityID        uuid.UUID
	ProgramID         uuid.UUID
	SupervisoryNodeID uuid.UUID
	SupplyingDepotID  uuid.UUID
	Periods           []PeriodInput
}

// ReplayResult contains the released requisitions in period order
type ReplayResult struct {
	Requisitions []*entities.Requisition
	Transitions  int
	Duration     time.Duration
}

// ReplayOrchestrator drives requisitions through the full lifecycle, one
// period after another, so each period builds on the history of the last.
type ReplayOrchestrator struct {
	service       *requisition.RequisitionService
	referenceData repositories.ReferenceDataRepository
	logger        logging.Logger
}

// NewReplayOrchestrator creates a new replay orchestrator
func NewReplayOrchestrator(
	service *requisition.RequisitionService,
	referenceData repositories.ReferenceDataRepository,
	logger logging.Logger,
) *ReplayOrchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReplayOrchestrator{
		service:       service,
		referenceData: referenceData,
		logger:        logger.With(logging.String("component", "replay")),
	}
}

// Run initiates, fills in, submits, authorizes, approves and releases one
// requisition per period. The actor needs every right along the way.
func (o *ReplayOrchestrator) Run(ctx context.Context, actor requisition.Actor, req ReplayRequest) (*ReplayResult, error) {
	if len(req.Periods) == 0 {
		return nil, fmt.Errorf("no periods provided for replay")
	}

	start := time.Now()
	result := &ReplayResult{}
	for i, period := range req.Periods {
		r, transitions, err := o.runPeriod(ctx, actor, req, period)
		if err != nil {
			return nil, fmt.Errorf("failed to replay period %d: %w", i, err)
		}
		result.Requisitions = append(result.Requisitions, r)
		result.Transitions += transitions
	}
	result.Duration = time.Since(start)

	o.logger.Info("replay finished",
		logging.Int("requisitions", len(result.Requisitions)),
		logging.Int("transitions", result.Transitions))
	return result, nil
}

func (o *ReplayOrchestrator) runPeriod(ctx context.Context, actor requisition.Actor, req ReplayRequest, period PeriodInput) (*entities.Requisition, int, error) {
	r, err := o.service.Initiate(ctx, actor, requisition.InitiateRequest{
		FacilityID:         req.FacilityID,
		ProgramID:          req.ProgramID,
		ProcessingPeriodID: period.ProcessingPeriodID,
		SupervisoryNodeID:  req.SupervisoryNodeID,
	})
	if err != nil {
		return nil, 0, err
	}
	transitions := 1

	incoming, err := o.applyEntries(ctx, r, period.Lines)
	if err != nil {
		return nil, transitions, err
	}
	if r, err = o.service.Update(ctx, actor, r.ID, incoming); err != nil {
		return nil, transitions, err
	}

	if r, err = o.service.Submit(ctx, actor, r.ID); err != nil {
		return nil, transitions, err
	}
	transitions++

	if r.Status == entities.StatusSubmitted {
		if r, err = o.service.Authorize(ctx, actor, r.ID); err != nil {
			return nil, transitions, err
		}
		transitions++
	}

	for level := 0; r.Status.IsApprovable(); level++ {
		if level == maxApprovalLevels {
			return nil, transitions, fmt.Errorf("requisition %s still in approval after %d levels", r.ID, level)
		}
		if r, err = o.service.Approve(ctx, actor, r.ID); err != nil {
			return nil, transitions, err
		}
		transitions++
	}

	released, err := o.service.Release(ctx, actor, []entities.ReleasableRequisition{{
		RequisitionID:    r.ID,
		SupplyingDepotID: req.SupplyingDepotID,
	}})
	if err != nil {
		return nil, transitions, err
	}
	transitions++

	o.logger.Debug("period replayed",
		logging.ID("requisition_id", r.ID),
		logging.ID("processing_period_id", period.ProcessingPeriodID))
	return released[0], transitions, nil
}

// applyEntries copies the reported figures onto an edited copy of the
// requisition, adding a line for each reported product not yet on it.
func (o *ReplayOrchestrator) applyEntries(ctx context.Context, r *entities.Requisition, entries []LineEntry) (*entities.Requisition, error) {
	incoming := r.Clone()
	for _, entry := range entries {
		li := incoming.FindLineByProductID(entry.OrderableID)
		if li == nil {
			orderable, err := o.referenceData.GetOrderable(ctx, entry.OrderableID)
			if err != nil {
				return nil, fmt.Errorf("failed to load orderable %s: %w", entry.OrderableID, err)
			}
			li = entities.NewRequisitionLineItem(r.ID, entities.ApprovedProduct{Orderable: *orderable}, r.ProgramID)
			incoming.LineItems = append(incoming.LineItems, li)
		}
		entry.applyTo(li)
	}
	return incoming, nil
}

func (e LineEntry) applyTo(li *entities.RequisitionLineItem) {
	set := func(target **int, value *int) {
		if value != nil {
			v := *value
			*target = &v
		}
	}
	set(&li.BeginningBalance, e.BeginningBalance)
	set(&li.TotalReceivedQuantity, e.TotalReceivedQuantity)
	set(&li.StockOnHand, e.StockOnHand)
	set(&li.TotalConsumedQuantity, e.TotalConsumedQuantity)
	set(&li.TotalStockoutDays, e.TotalStockoutDays)
	set(&li.RequestedQuantity, e.RequestedQuantity)
	if e.RequestedQuantityExplanation != "" {
		li.RequestedQuantityExplanation = e.RequestedQuantityExplanation
	}
	if e.StockAdjustments != nil {
		li.StockAdjustments = append([]entities.StockAdjustment(nil), e.StockAdjustments...)
	}
}
