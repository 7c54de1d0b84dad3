package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vsinha/requisition/pkg/application/services/requisition"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/services/permission"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	fixtures "github.com/vsinha/requisition/pkg/infrastructure/testing"
)

func actorFor(assignments permission.UserAssignments) requisition.Actor {
	return requisition.Actor{UserID: assignments.UserID, Permissions: permission.NewServiceForUser(assignments)}
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Printf("❌ Requisition failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger, err := logging.New(logging.Config{Level: "info", Format: logging.FormatConsole})
	if err != nil {
		return err
	}
	defer logger.Sync()

	// A clinic reporting to a district node, escalating to a regional node
	s := fixtures.BuildDistrictScenario()

	store := events.NewMemoryStore(logger)
	notifier := events.NewLoggingNotifier(logger)
	if _, err := store.Subscribe(
		events.NewStatusProcessor(notifier, notifier, notifier, logger),
		events.RequisitionStatusChangedEvent,
	); err != nil {
		return err
	}

	service := requisition.NewRequisitionService(requisition.Config{UpdateStockDate: true},
		s.Requisitions, s.ReferenceData,
		requisition.WithLogger(logger), requisition.WithEventStore(store))

	clerk := actorFor(s.Clerk)
	district := actorFor(s.DistrictManager)
	region := actorFor(s.RegionManager)
	storekeeper := actorFor(s.Storekeeper)

	fmt.Printf("🏥 Initiating requisition for %s...\n", s.Periods[0].Name)
	r, err := service.Initiate(ctx, clerk, requisition.InitiateRequest{
		FacilityID:         s.FacilityID,
		ProgramID:          s.ProgramID,
		ProcessingPeriodID: s.Periods[0].ID,
		SupervisoryNodeID:  s.DistrictNodeID,
	})
	if err != nil {
		return err
	}

	// Stock count for the month
	incoming := r.Clone()
	amox := incoming.FindLineByProductID(s.Orderables[0].ID)
	amox.BeginningBalance = entities.IntPtr(500)
	amox.TotalReceivedQuantity = entities.IntPtr(100)
	amox.StockOnHand = entities.IntPtr(400)
	ors := incoming.FindLineByProductID(s.Orderables[1].ID)
	ors.BeginningBalance = entities.IntPtr(50)
	ors.TotalReceivedQuantity = entities.IntPtr(20)
	ors.StockOnHand = entities.IntPtr(35)
	ors.StockAdjustments = []entities.StockAdjustment{{ReasonID: s.Damage.ID, Quantity: 5}}
	if r, err = service.Update(ctx, clerk, r.ID, incoming); err != nil {
		return err
	}

	steps := []struct {
		name  string
		apply func() (*entities.Requisition, error)
	}{
		{"Submit", func() (*entities.Requisition, error) { return service.Submit(ctx, clerk, r.ID) }},
		{"Authorize", func() (*entities.Requisition, error) { return service.Authorize(ctx, clerk, r.ID) }},
		{"Reject at district", func() (*entities.Requisition, error) { return service.Reject(ctx, district, r.ID) }},
		{"Resubmit", func() (*entities.Requisition, error) { return service.Submit(ctx, clerk, r.ID) }},
		{"Authorize", func() (*entities.Requisition, error) { return service.Authorize(ctx, clerk, r.ID) }},
		{"Approve at district", func() (*entities.Requisition, error) { return service.Approve(ctx, district, r.ID) }},
		{"Approve at region", func() (*entities.Requisition, error) { return service.Approve(ctx, region, r.ID) }},
	}
	for _, step := range steps {
		if r, err = step.apply(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		fmt.Printf("  %-20s -> %s\n", step.name, r.Status)
	}

	released, err := service.Release(ctx, storekeeper, []entities.ReleasableRequisition{{
		RequisitionID:    r.ID,
		SupplyingDepotID: s.WarehouseID,
	}})
	if err != nil {
		return err
	}
	r = released[0]
	fmt.Printf("  %-20s -> %s\n", "Release", r.Status)
	fmt.Println()

	fmt.Println("📋 Line Items:")
	fmt.Printf("%-10s %-10s %-10s %-10s %-10s %-8s %-12s\n",
		"Product", "Consumed", "Adj Cons", "Max", "Approved", "Packs", "Cost")
	for i, orderable := range s.Orderables[:2] {
		li := r.FindLineByProductID(s.Orderables[i].ID)
		fmt.Printf("%-10s %-10d %-10d %-10d %-10d %-8d %-12s\n",
			orderable.ProductCode,
			*li.TotalConsumedQuantity,
			*li.AdjustedConsumption,
			*li.MaximumStockQuantity,
			*li.ApprovedQuantity,
			*li.PacksToShip,
			li.TotalCost)
	}

	total, err := r.TotalCost()
	if err != nil {
		return err
	}
	fmt.Printf("\n💰 Total cost: %s\n", total)
	fmt.Printf("🗂  Status changes recorded: %d\n", len(r.StatusChanges))
	return nil
}
