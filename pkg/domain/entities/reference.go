package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommodityTypeIdentifier is the orderable identifier key that links a
// product to its ideal stock amount.
const CommodityTypeIdentifier = "commodityType"

// ProgramOrderable describes how a product participates in a program
type ProgramOrderable struct {
	ProgramID    uuid.UUID `json:"programId"`
	FullSupply   bool      `json:"fullSupply"`
	Active       bool      `json:"active"`
	PricePerPack *Money    `json:"pricePerPack,omitempty"`
	DisplayOrder int       `json:"displayOrder"`
}

// Orderable is a catalog product that can be requisitioned
type Orderable struct {
	ID                    uuid.UUID          `json:"id"`
	ProductCode           string             `json:"productCode"`
	FullProductName       string             `json:"fullProductName"`
	NetContent            int64              `json:"netContent"`
	PackRoundingThreshold int64              `json:"packRoundingThreshold"`
	RoundToZero           bool               `json:"roundToZero"`
	Identifiers           map[string]string  `json:"identifiers,omitempty"`
	Programs              []ProgramOrderable `json:"programs,omitempty"`
}

// CommodityTypeID returns the commodity type identifier, if the product has a valid one
func (o Orderable) CommodityTypeID() (uuid.UUID, bool) {
	raw, ok := o.Identifiers[CommodityTypeIdentifier]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ProgramOrderable returns the product's settings for a program
func (o Orderable) ProgramOrderable(programID uuid.UUID) (ProgramOrderable, bool) {
	for _, po := range o.Programs {
		if po.ProgramID == programID {
			return po, true
		}
	}
	return ProgramOrderable{}, false
}

// PacksToOrder converts a dispensing-unit quantity into whole packs. A
// remainder above the rounding threshold adds a pack; a zero result becomes
// one pack unless the product rounds to zero.
func (o Orderable) PacksToOrder(orderQuantity int64) int64 {
	if orderQuantity <= 0 || o.NetContent <= 0 {
		return 0
	}

	packs := orderQuantity / o.NetContent
	remainder := orderQuantity % o.NetContent

	if remainder > 0 && remainder > o.PackRoundingThreshold {
		packs++
	}

	if packs == 0 && !o.RoundToZero {
		packs = 1
	}

	return packs
}

// ApprovedProduct is a catalog entry approved for a facility type and program
type ApprovedProduct struct {
	ID                uuid.UUID       `json:"id"`
	Orderable         Orderable       `json:"orderable"`
	MaxPeriodsOfStock decimal.Decimal `json:"maxPeriodsOfStock"`
}

// ProofOfDeliveryStatus represents the status of a proof of delivery
type ProofOfDeliveryStatus int

const (
	ProofOfDeliveryInitiated ProofOfDeliveryStatus = iota
	ProofOfDeliveryConfirmed
)

// String method for ProofOfDeliveryStatus enum
func (s ProofOfDeliveryStatus) String() string {
	switch s {
	case ProofOfDeliveryInitiated:
		return "INITIATED"
	case ProofOfDeliveryConfirmed:
		return "CONFIRMED"
	default:
		return "UNKNOWN"
	}
}

// ProofOfDeliveryLineItem records the quantity accepted for one product
type ProofOfDeliveryLineItem struct {
	OrderableID      uuid.UUID `json:"orderableId"`
	QuantityAccepted *int      `json:"quantityAccepted,omitempty"`
}

// ProofOfDelivery is the delivery record of the previous period's order
type ProofOfDelivery struct {
	ID        uuid.UUID                 `json:"id"`
	Status    ProofOfDeliveryStatus     `json:"status"`
	LineItems []ProofOfDeliveryLineItem `json:"lineItems"`
}

// IsSubmitted reports whether the delivery has been confirmed
func (p *ProofOfDelivery) IsSubmitted() bool {
	return p != nil && p.Status == ProofOfDeliveryConfirmed
}

// FindLineByOrderableID returns the delivery line for a product
func (p *ProofOfDelivery) FindLineByOrderableID(orderableID uuid.UUID) (ProofOfDeliveryLineItem, bool) {
	if p == nil {
		return ProofOfDeliveryLineItem{}, false
	}
	for _, line := range p.LineItems {
		if line.OrderableID == orderableID {
			return line, true
		}
	}
	return ProofOfDeliveryLineItem{}, false
}

// StockAdjustmentReason classifies an inventory correction as additive or subtractive
type StockAdjustmentReason struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Additive bool      `json:"additive"`
}

// SupplyLine links a supervisory node and program to the facility that supplies it
type SupplyLine struct {
	ID                  uuid.UUID `json:"id"`
	SupervisoryNodeID   uuid.UUID `json:"supervisoryNodeId"`
	ProgramID           uuid.UUID `json:"programId"`
	SupplyingFacilityID uuid.UUID `json:"supplyingFacilityId"`
}

// SupervisoryNode is a node of the approval hierarchy
type SupervisoryNode struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	FacilityID   uuid.UUID  `json:"facilityId"`
	ParentNodeID *uuid.UUID `json:"parentNodeId,omitempty"`
}

// ProcessingPeriod is a reporting period of a processing schedule
type ProcessingPeriod struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	DurationInMonths int       `json:"durationInMonths"`
}

// ReleasableRequisition pairs an approved requisition with the depot that fulfils it
type ReleasableRequisition struct {
	RequisitionID    uuid.UUID `json:"requisitionId"`
	SupplyingDepotID uuid.UUID `json:"supplyingDepotId"`
}
