package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// RequisitionSummary is a read model of a requisition for reports
type RequisitionSummary struct {
	ID                  uuid.UUID                  `json:"id"`
	FacilityID          uuid.UUID                  `json:"facilityId"`
	ProgramID           uuid.UUID                  `json:"programId"`
	ProcessingPeriodID  uuid.UUID                  `json:"processingPeriodId"`
	Status              entities.RequisitionStatus `json:"status"`
	Emergency           bool                       `json:"emergency"`
	Version             int64                      `json:"version"`
	SupervisoryNodeID   *uuid.UUID                 `json:"supervisoryNodeId,omitempty"`
	SupplyingFacilityID *uuid.UUID                 `json:"supplyingFacilityId,omitempty"`

	FullSupplyLines    int `json:"fullSupplyLines"`
	NonFullSupplyLines int `json:"nonFullSupplyLines"`
	SkippedLines       int `json:"skippedLines"`

	FullSupplyCost    entities.Money `json:"fullSupplyCost"`
	NonFullSupplyCost entities.Money `json:"nonFullSupplyCost"`
	TotalCost         entities.Money `json:"totalCost"`

	Lines   []LineSummary   `json:"lines"`
	History []StatusSummary `json:"history"`
}

// LineSummary carries the figures of one line item
type LineSummary struct {
	OrderableID         uuid.UUID       `json:"orderableId"`
	ProductCode         string          `json:"productCode,omitempty"`
	ProductName         string          `json:"productName,omitempty"`
	FullSupply          bool            `json:"fullSupply"`
	Skipped             bool            `json:"skipped"`
	BeginningBalance    *int            `json:"beginningBalance,omitempty"`
	StockOnHand         *int            `json:"stockOnHand,omitempty"`
	AdjustedConsumption *int            `json:"adjustedConsumption,omitempty"`
	AverageConsumption  *int            `json:"averageConsumption,omitempty"`
	MaximumStock        *int            `json:"maximumStockQuantity,omitempty"`
	CalculatedOrder     *int            `json:"calculatedOrderQuantity,omitempty"`
	RequestedQuantity   *int            `json:"requestedQuantity,omitempty"`
	ApprovedQuantity    *int            `json:"approvedQuantity,omitempty"`
	PacksToShip         *int64          `json:"packsToShip,omitempty"`
	TotalCost           *entities.Money `json:"totalCost,omitempty"`
}

// StatusSummary is one entry of the status history
type StatusSummary struct {
	Status   entities.RequisitionStatus `json:"status"`
	AuthorID uuid.UUID                  `json:"authorId"`
	Date     time.Time                  `json:"date"`
}

// NewRequisitionSummary builds a summary; orderables, when given, supply
// product codes and names.
func NewRequisitionSummary(r *entities.Requisition, orderables map[uuid.UUID]entities.Orderable) (*RequisitionSummary, error) {
	summary := &RequisitionSummary{
		ID:                  r.ID,
		FacilityID:          r.FacilityID,
		ProgramID:           r.ProgramID,
		ProcessingPeriodID:  r.ProcessingPeriodID,
		Status:              r.Status,
		Emergency:           r.Emergency,
		Version:             r.Version,
		SupervisoryNodeID:   r.SupervisoryNodeID,
		SupplyingFacilityID: r.SupplyingFacilityID,
		FullSupplyLines:     len(r.NonSkippedFullSupplyLineItems()),
		NonFullSupplyLines:  len(r.NonSkippedNonFullSupplyLineItems()),
		SkippedLines:        len(r.SkippedLineItems()),
	}

	var err error
	if summary.FullSupplyCost, err = r.FullSupplyTotalCost(); err != nil {
		return nil, fmt.Errorf("failed to total full supply cost: %w", err)
	}
	if summary.NonFullSupplyCost, err = r.NonFullSupplyTotalCost(); err != nil {
		return nil, fmt.Errorf("failed to total non full supply cost: %w", err)
	}
	if summary.TotalCost, err = r.TotalCost(); err != nil {
		return nil, fmt.Errorf("failed to total cost: %w", err)
	}

	summary.Lines = make([]LineSummary, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		line := LineSummary{
			OrderableID:         li.OrderableID,
			FullSupply:          li.IsFullSupply(),
			Skipped:             li.Skipped,
			BeginningBalance:    li.BeginningBalance,
			StockOnHand:         li.StockOnHand,
			AdjustedConsumption: li.AdjustedConsumption,
			AverageConsumption:  li.AverageConsumption,
			MaximumStock:        li.MaximumStockQuantity,
			CalculatedOrder:     li.CalculatedOrderQuantity,
			RequestedQuantity:   li.RequestedQuantity,
			ApprovedQuantity:    li.ApprovedQuantity,
			PacksToShip:         li.PacksToShip,
			TotalCost:           li.TotalCost,
		}
		if orderable, ok := orderables[li.OrderableID]; ok {
			line.ProductCode = orderable.ProductCode
			line.ProductName = orderable.FullProductName
		}
		summary.Lines = append(summary.Lines, line)
	}

	summary.History = make([]StatusSummary, len(r.StatusChanges))
	for i, change := range r.StatusChanges {
		summary.History[i] = StatusSummary{Status: change.Status, AuthorID: change.AuthorID, Date: change.CreatedDate}
	}
	return summary, nil
}
