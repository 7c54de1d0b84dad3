package requisition

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
)

// InitiateRequest identifies the requisition to start
type InitiateRequest struct {
	FacilityID         uuid.UUID
	ProgramID          uuid.UUID
	ProcessingPeriodID uuid.UUID
	Emergency          bool
	// SupervisoryNodeID is the first approval level for the facility, if any
	SupervisoryNodeID uuid.UUID
}

// Initiate creates a requisition for a facility, program and period and fills
// it from the catalog, stock on hand and previous requisitions.
func (s *RequisitionService) Initiate(ctx context.Context, actor Actor, req InitiateRequest) (*entities.Requisition, error) {
	if actor.Permissions == nil {
		return nil, &entities.ValidationError{Field: "actor", Reason: "actor has no permissions"}
	}
	if err := actor.Permissions.CanInitRequisition(req.ProgramID, req.FacilityID); err != nil {
		s.logger.Warn("requisition initiation denied",
			logging.ID("facility_id", req.FacilityID),
			logging.ID("program_id", req.ProgramID),
			logging.ID("user_id", actor.UserID),
			logging.Err(err))
		return nil, err
	}

	if !req.Emergency {
		emergency := false
		existing, err := s.requisitions.Search(ctx, repositories.SearchCriteria{
			FacilityID:         req.FacilityID,
			ProgramID:          req.ProgramID,
			ProcessingPeriodID: req.ProcessingPeriodID,
			Emergency:          &emergency,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check existing requisitions: %w", err)
		}
		if existing.TotalElements > 0 {
			return nil, &entities.ValidationError{
				Field:  "processingPeriodId",
				Reason: fmt.Sprintf("a regular requisition already exists for period %s", req.ProcessingPeriodID),
			}
		}
	}

	params, reasons, err := s.initiateParams(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	opts := []entities.Option{
		entities.WithClock(s.clock),
		entities.WithCurrency(s.config.Currency),
		entities.WithDefaultPricePerPack(s.config.DefaultPricePerPack),
	}
	if req.SupervisoryNodeID != uuid.Nil {
		opts = append(opts, entities.WithSupervisoryNode(req.SupervisoryNodeID))
	}
	r, err := entities.NewRequisition(req.FacilityID, req.ProgramID, req.ProcessingPeriodID, req.Emergency, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Initiate(params); err != nil {
		return nil, err
	}
	r.StockAdjustmentReasons = reasons

	if err := s.saveTransition(ctx, r, entities.StatusInitiated, actor.UserID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RequisitionService) initiateParams(ctx context.Context, actor Actor, req InitiateRequest) (entities.InitiateParams, []entities.StockAdjustmentReason, error) {
	params := entities.InitiateParams{InitiatorID: actor.UserID}

	period, err := s.referenceData.GetProcessingPeriod(ctx, req.ProcessingPeriodID)
	if err != nil {
		return params, nil, fmt.Errorf("failed to load processing period %s: %w", req.ProcessingPeriodID, err)
	}
	params.NumberOfMonthsInPeriod = period.DurationInMonths

	if params.Template, err = s.template(ctx, req.ProgramID); err != nil {
		return params, nil, err
	}
	if params.ApprovedProducts, err = s.referenceData.GetApprovedProducts(ctx, req.FacilityID, req.ProgramID); err != nil {
		return params, nil, fmt.Errorf("failed to load approved products: %w", err)
	}
	if params.StockOnHand, err = s.referenceData.GetStockOnHand(ctx, req.FacilityID, req.ProgramID); err != nil {
		return params, nil, fmt.Errorf("failed to load stock on hand: %w", err)
	}
	if params.IdealStockAmounts, err = s.referenceData.GetIdealStockAmounts(ctx, req.FacilityID, req.ProcessingPeriodID); err != nil {
		return params, nil, fmt.Errorf("failed to load ideal stock amounts: %w", err)
	}
	reasons, err := s.referenceData.GetStockAdjustmentReasons(ctx, req.ProgramID)
	if err != nil {
		return params, nil, fmt.Errorf("failed to load stock adjustment reasons: %w", err)
	}

	// the current period counts towards the average, the rest comes from history
	limit := params.Template.NumberOfPeriodsToAverage - 1
	if limit < 1 {
		limit = 1
	}
	previous, err := s.requisitions.RecentRegularRequisitions(ctx, req.FacilityID, req.ProgramID, limit)
	if err != nil {
		return params, nil, fmt.Errorf("failed to load previous requisitions: %w", err)
	}
	for _, p := range previous {
		params.PreviousRequisitions = append(params.PreviousRequisitions, entities.NewPreviousRequisition(p))
	}
	if len(previous) > 0 {
		last := previous[len(previous)-1]
		if params.ProofOfDelivery, err = s.referenceData.GetProofOfDelivery(ctx, last.ID); err != nil {
			return params, nil, fmt.Errorf("failed to load proof of delivery for %s: %w", last.ID, err)
		}
	}
	return params, reasons, nil
}

// Update merges user edits into a stored requisition. A non zero version on
// the incoming copy must match the stored one.
func (s *RequisitionService) Update(ctx context.Context, actor Actor, id uuid.UUID, incoming *entities.Requisition) (*entities.Requisition, error) {
	if incoming == nil {
		return nil, &entities.ValidationError{Field: "requisition", Reason: "incoming requisition is required"}
	}
	if incoming.ID != uuid.Nil && incoming.ID != id {
		return nil, &entities.ValidationError{Field: "id", Reason: "requisition id does not match"}
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if incoming.Version != 0 && incoming.Version != r.Version {
		return nil, fmt.Errorf("requisition %s is at version %d, update is based on %d: %w",
			id, r.Version, incoming.Version, entities.ErrVersionMismatch)
	}
	if err := s.authorize(actor, r, "update", actor.Permissions.CanUpdateRequisition); err != nil {
		return nil, err
	}

	if err := r.UpdateFrom(incoming, r.StockAdjustmentReasons, s.config.UpdateStockDate); err != nil {
		return nil, err
	}
	if err := s.requisitions.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to save requisition %s: %w", r.ID, err)
	}

	s.logger.Info("requisition updated",
		logging.ID("requisition_id", r.ID),
		logging.Int("line_items", len(r.LineItems)),
		logging.ID("author_id", actor.UserID))
	event := events.NewEvent(events.RequisitionUpdatedEvent, r.ID, events.RequisitionUpdated{
		RequisitionID: r.ID,
		AuthorID:      actor.UserID,
		LineItems:     len(r.LineItems),
	}, s.clock())
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("update notification failed", logging.ID("requisition_id", r.ID), logging.Err(err))
	}
	return r, nil
}

// Submit sends a requisition for authorization
func (s *RequisitionService) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	return s.transition(ctx, actor, id, "submit", actor.Permissions.CanSubmitRequisition,
		func(r *entities.Requisition) error {
			products, err := s.lineOrderables(ctx, r)
			if err != nil {
				return err
			}
			return r.Submit(products, actor.UserID, s.config.SkipAuthorization)
		})
}

// Authorize confirms a submitted requisition
func (s *RequisitionService) Authorize(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	return s.transition(ctx, actor, id, "authorize", actor.Permissions.CanAuthorizeRequisition,
		func(r *entities.Requisition) error {
			products, err := s.lineOrderables(ctx, r)
			if err != nil {
				return err
			}
			return r.Authorize(products, actor.UserID)
		})
}

// Approve approves at the requisition's current supervisory node and moves it
// up the hierarchy, or final-approves it at the top.
func (s *RequisitionService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	return s.transition(ctx, actor, id, "approve", actor.Permissions.CanApproveRequisition,
		func(r *entities.Requisition) error {
			products, err := s.lineOrderables(ctx, r)
			if err != nil {
				return err
			}

			var parent *uuid.UUID
			var supplyLines []entities.SupplyLine
			if r.SupervisoryNodeID != nil {
				node, err := s.referenceData.GetSupervisoryNode(ctx, *r.SupervisoryNodeID)
				if err != nil {
					return fmt.Errorf("failed to load supervisory node %s: %w", *r.SupervisoryNodeID, err)
				}
				parent = node.ParentNodeID
				if parent == nil {
					if supplyLines, err = s.referenceData.GetSupplyLines(ctx, node.ID, r.ProgramID); err != nil {
						return fmt.Errorf("failed to load supply lines: %w", err)
					}
				}
			}
			return r.Approve(parent, products, supplyLines, actor.UserID)
		})
}

// Reject returns a requisition under approval to the facility
func (s *RequisitionService) Reject(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	return s.transition(ctx, actor, id, "reject", actor.Permissions.CanRejectRequisition,
		func(r *entities.Requisition) error {
			products, err := s.lineOrderables(ctx, r)
			if err != nil {
				return err
			}
			return r.Reject(products, actor.UserID)
		})
}

// Skip closes the period without requesting anything
func (s *RequisitionService) Skip(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	return s.transition(ctx, actor, id, "skip", actor.Permissions.CanSkipRequisition,
		func(r *entities.Requisition) error {
			skippable := r.Template != nil && r.Template.PeriodsSkippable
			return r.Skip(skippable, actor.UserID)
		})
}

// Release converts approved requisitions to orders. Permissions are checked
// for the whole batch first; requisitions are then released one by one and
// the first failure stops the batch.
func (s *RequisitionService) Release(ctx context.Context, actor Actor, releasables []entities.ReleasableRequisition) ([]*entities.Requisition, error) {
	if actor.Permissions == nil {
		return nil, &entities.ValidationError{Field: "actor", Reason: "actor has no permissions"}
	}
	if err := actor.Permissions.CanConvertToOrder(releasables); err != nil {
		s.logger.Warn("convert to order denied", logging.ID("user_id", actor.UserID), logging.Err(err))
		return nil, err
	}

	released := make([]*entities.Requisition, 0, len(releasables))
	for _, releasable := range releasables {
		r, err := s.load(ctx, releasable.RequisitionID)
		if err != nil {
			return released, err
		}
		previous := r.Status
		if err := r.Release(actor.UserID); err != nil {
			return released, err
		}
		if releasable.SupplyingDepotID != uuid.Nil {
			depot := releasable.SupplyingDepotID
			r.SupplyingFacilityID = &depot
		}
		if err := s.saveTransition(ctx, r, previous, actor.UserID); err != nil {
			return released, err
		}
		released = append(released, r)
	}
	return released, nil
}

// Delete removes a requisition that has not progressed past submission
func (s *RequisitionService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, r, "delete", actor.Permissions.CanDeleteRequisition); err != nil {
		return err
	}
	if !r.IsDeletable() {
		return &entities.InvalidStateTransitionError{
			Operation: "delete",
			From:      r.Status,
			Allowed: []entities.RequisitionStatus{
				entities.StatusInitiated, entities.StatusRejected, entities.StatusSkipped, entities.StatusSubmitted,
			},
		}
	}
	if err := s.requisitions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete requisition %s: %w", id, err)
	}

	s.logger.Info("requisition deleted", logging.ID("requisition_id", id), logging.ID("author_id", actor.UserID))
	event := events.NewEvent(events.RequisitionDeletedEvent, id, events.RequisitionDeleted{
		RequisitionID: id,
		Status:        r.Status,
		AuthorID:      actor.UserID,
	}, s.clock())
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("delete notification failed", logging.ID("requisition_id", id), logging.Err(err))
	}
	return nil
}

// transition loads a requisition, checks permission, applies the change and
// saves it. A failing check or transition leaves the stored copy untouched.
func (s *RequisitionService) transition(
	ctx context.Context,
	actor Actor,
	id uuid.UUID,
	operation string,
	check func(*entities.Requisition) error,
	apply func(*entities.Requisition) error,
) (*entities.Requisition, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, r, operation, check); err != nil {
		return nil, err
	}

	previous := r.Status
	if err := apply(r); err != nil {
		var stateErr *entities.InvalidStateTransitionError
		if errors.As(err, &stateErr) {
			s.logger.Warn("requisition transition rejected",
				logging.String("operation", operation),
				logging.ID("requisition_id", r.ID),
				logging.Stringer("status", previous),
				logging.Err(err))
		}
		return nil, err
	}
	if err := s.saveTransition(ctx, r, previous, actor.UserID); err != nil {
		return nil, err
	}
	return r, nil
}
