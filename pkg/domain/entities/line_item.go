package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockAdjustment records a quantity correction under a given reason
type StockAdjustment struct {
	ID       uuid.UUID `json:"id"`
	ReasonID uuid.UUID `json:"reasonId"`
	Quantity int       `json:"quantity"`
}

// RequisitionLineItem is the per-product row of a requisition. Nullable
// quantities are pointers; a nil value means the field is not set.
type RequisitionLineItem struct {
	ID            uuid.UUID `json:"id"`
	RequisitionID uuid.UUID `json:"requisitionId"`
	OrderableID   uuid.UUID `json:"orderableId"`

	RequestedQuantity            *int   `json:"requestedQuantity,omitempty"`
	RequestedQuantityExplanation string `json:"requestedQuantityExplanation,omitempty"`
	ApprovedQuantity             *int   `json:"approvedQuantity,omitempty"`
	CalculatedOrderQuantity      *int   `json:"calculatedOrderQuantity,omitempty"`
	CalculatedOrderQuantityISA   *int   `json:"calculatedOrderQuantityIsa,omitempty"`

	BeginningBalance          *int `json:"beginningBalance,omitempty"`
	TotalReceivedQuantity     *int `json:"totalReceivedQuantity,omitempty"`
	TotalConsumedQuantity     *int `json:"totalConsumedQuantity,omitempty"`
	StockOnHand               *int `json:"stockOnHand,omitempty"`
	TotalLossesAndAdjustments *int `json:"totalLossesAndAdjustments,omitempty"`
	TotalStockoutDays         *int `json:"totalStockoutDays,omitempty"`
	Total                     *int `json:"total,omitempty"`

	AdjustedConsumption          *int            `json:"adjustedConsumption,omitempty"`
	AverageConsumption           *int            `json:"averageConsumption,omitempty"`
	PreviousAdjustedConsumptions []int           `json:"previousAdjustedConsumptions"`
	MaximumStockQuantity         *int            `json:"maximumStockQuantity,omitempty"`
	MaxPeriodsOfStock            decimal.Decimal `json:"maxPeriodsOfStock"`
	IdealStockAmount             *int            `json:"idealStockAmount,omitempty"`

	PacksToShip  *int64 `json:"packsToShip,omitempty"`
	PricePerPack *Money `json:"pricePerPack,omitempty"`
	TotalCost    *Money `json:"totalCost,omitempty"`

	Skipped          bool              `json:"skipped"`
	NonFullSupply    bool              `json:"nonFullSupply"`
	Remarks          string            `json:"remarks,omitempty"`
	StockAdjustments []StockAdjustment `json:"stockAdjustments,omitempty"`
}

// NewRequisitionLineItem creates an empty line item for a product on a requisition
func NewRequisitionLineItem(requisitionID uuid.UUID, product ApprovedProduct, programID uuid.UUID) *RequisitionLineItem {
	li := &RequisitionLineItem{
		ID:                           uuid.New(),
		RequisitionID:                requisitionID,
		OrderableID:                  product.Orderable.ID,
		MaxPeriodsOfStock:            product.MaxPeriodsOfStock,
		PreviousAdjustedConsumptions: []int{},
	}

	if po, ok := product.Orderable.ProgramOrderable(programID); ok {
		li.NonFullSupply = !po.FullSupply
		if po.PricePerPack != nil {
			price := *po.PricePerPack
			li.PricePerPack = &price
		}
	}

	return li
}

// IsFullSupply reports whether the product is part of the program's full supply list
func (li *RequisitionLineItem) IsFullSupply() bool {
	return !li.NonFullSupply
}

// OrderQuantity returns the quantity that drives pack conversion: the approved
// quantity once set, then the requested quantity, then the calculated one.
func (li *RequisitionLineItem) OrderQuantity() int {
	switch {
	case li.ApprovedQuantity != nil:
		return *li.ApprovedQuantity
	case li.RequestedQuantity != nil:
		return *li.RequestedQuantity
	default:
		return zeroIfNil(li.CalculatedOrderQuantity)
	}
}

// UpdateFrom copies the user-editable fields from an edited copy of the line.
// Identity, product, reference data and previous consumption history are kept.
func (li *RequisitionLineItem) UpdateFrom(other *RequisitionLineItem) {
	if other == nil {
		return
	}
	li.BeginningBalance = copyInt(other.BeginningBalance)
	li.TotalReceivedQuantity = copyInt(other.TotalReceivedQuantity)
	li.TotalConsumedQuantity = copyInt(other.TotalConsumedQuantity)
	li.StockOnHand = copyInt(other.StockOnHand)
	li.RequestedQuantity = copyInt(other.RequestedQuantity)
	li.RequestedQuantityExplanation = other.RequestedQuantityExplanation
	li.TotalStockoutDays = copyInt(other.TotalStockoutDays)
	li.ApprovedQuantity = copyInt(other.ApprovedQuantity)
	li.TotalLossesAndAdjustments = copyInt(other.TotalLossesAndAdjustments)
	li.Total = copyInt(other.Total)
	li.Remarks = other.Remarks
	li.Skipped = other.Skipped
	li.StockAdjustments = append([]StockAdjustment(nil), other.StockAdjustments...)
}

// ClearHiddenColumns nulls every field whose column the template does not display
func (li *RequisitionLineItem) ClearHiddenColumns(template *RequisitionTemplate) {
	for _, column := range AllColumns() {
		field, ok := columnRegistry[column]
		if !ok || field.clear == nil {
			continue
		}
		if !template.IsColumnDisplayed(column) {
			field.clear(li)
		}
	}
}

// ResetApprovedQuantity defaults the approved quantity from the requested or
// calculated order quantity.
func (li *RequisitionLineItem) ResetApprovedQuantity(template *RequisitionTemplate) {
	if template.IsColumnDisplayed(ColumnCalculatedOrderQuantity) && li.RequestedQuantity == nil {
		li.ApprovedQuantity = copyInt(li.CalculatedOrderQuantity)
		return
	}
	li.ApprovedQuantity = copyInt(li.RequestedQuantity)
}

// UpdatePacksToShip converts the order quantity into packs of the product and
// refreshes the total cost.
func (li *RequisitionLineItem) UpdatePacksToShip(product Orderable, defaultPricePerPack Money) {
	packs := product.PacksToOrder(int64(li.OrderQuantity()))
	li.PacksToShip = &packs

	cost := CalculateTotalCost(li, defaultPricePerPack)
	li.TotalCost = &cost
}

// Clone returns a deep copy of the line item
func (li *RequisitionLineItem) Clone() *RequisitionLineItem {
	c := *li
	c.RequestedQuantity = copyInt(li.RequestedQuantity)
	c.ApprovedQuantity = copyInt(li.ApprovedQuantity)
	c.CalculatedOrderQuantity = copyInt(li.CalculatedOrderQuantity)
	c.CalculatedOrderQuantityISA = copyInt(li.CalculatedOrderQuantityISA)
	c.BeginningBalance = copyInt(li.BeginningBalance)
	c.TotalReceivedQuantity = copyInt(li.TotalReceivedQuantity)
	c.TotalConsumedQuantity = copyInt(li.TotalConsumedQuantity)
	c.StockOnHand = copyInt(li.StockOnHand)
	c.TotalLossesAndAdjustments = copyInt(li.TotalLossesAndAdjustments)
	c.TotalStockoutDays = copyInt(li.TotalStockoutDays)
	c.Total = copyInt(li.Total)
	c.AdjustedConsumption = copyInt(li.AdjustedConsumption)
	c.AverageConsumption = copyInt(li.AverageConsumption)
	c.MaximumStockQuantity = copyInt(li.MaximumStockQuantity)
	c.IdealStockAmount = copyInt(li.IdealStockAmount)
	c.PacksToShip = copyInt64(li.PacksToShip)
	if li.PricePerPack != nil {
		price := *li.PricePerPack
		c.PricePerPack = &price
	}
	if li.TotalCost != nil {
		cost := *li.TotalCost
		c.TotalCost = &cost
	}
	if li.PreviousAdjustedConsumptions != nil {
		c.PreviousAdjustedConsumptions = append([]int{}, li.PreviousAdjustedConsumptions...)
	}
	if li.StockAdjustments != nil {
		c.StockAdjustments = append([]StockAdjustment{}, li.StockAdjustments...)
	}
	return &c
}
