package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PreviousRequisition is a read-only snapshot of an earlier requisition for
// the same facility and program, used for balances and consumption trends.
type PreviousRequisition struct {
	ID        uuid.UUID              `json:"id"`
	LineItems []*RequisitionLineItem `json:"lineItems"`
}

// NewPreviousRequisition takes a snapshot of a requisition's line items
func NewPreviousRequisition(r *Requisition) PreviousRequisition {
	snapshot := PreviousRequisition{ID: r.ID, LineItems: make([]*RequisitionLineItem, 0, len(r.LineItems))}
	for _, li := range r.LineItems {
		snapshot.LineItems = append(snapshot.LineItems, li.Clone())
	}
	return snapshot
}

// FindLineByProductID returns the first line for the product, or nil
func (p PreviousRequisition) FindLineByProductID(orderableID uuid.UUID) *RequisitionLineItem {
	for _, li := range p.LineItems {
		if li.OrderableID == orderableID {
			return li
		}
	}
	return nil
}

// Requisition is the aggregate root of the requisition lifecycle. It owns its
// line items and its status history; previous requisitions are snapshots.
type Requisition struct {
	ID                  uuid.UUID         `json:"id"`
	ProgramID           uuid.UUID         `json:"programId"`
	FacilityID          uuid.UUID         `json:"facilityId"`
	ProcessingPeriodID  uuid.UUID         `json:"processingPeriodId"`
	SupervisoryNodeID   *uuid.UUID        `json:"supervisoryNodeId,omitempty"`
	SupplyingFacilityID *uuid.UUID        `json:"supplyingFacilityId,omitempty"`
	Emergency           bool              `json:"emergency"`
	Status              RequisitionStatus `json:"status"`

	LineItems              []*RequisitionLineItem `json:"lineItems"`
	Template               *RequisitionTemplate   `json:"template,omitempty"`
	NumberOfMonthsInPeriod int                    `json:"numberOfMonthsInPeriod"`
	StatusChanges          []StatusChange         `json:"statusChanges"`
	PreviousRequisitions   []PreviousRequisition  `json:"previousRequisitions,omitempty"`

	StockAdjustmentReasons          []StockAdjustmentReason `json:"stockAdjustmentReasons,omitempty"`
	DatePhysicalStockCountCompleted *time.Time              `json:"datePhysicalStockCountCompleted,omitempty"`

	Currency            CurrencyUnit    `json:"currency"`
	DefaultPricePerPack decimal.Decimal `json:"defaultPricePerPack"`

	CreatedDate  time.Time `json:"createdDate"`
	ModifiedDate time.Time `json:"modifiedDate"`
	// Version is compared and incremented by repositories on every save
	Version int64 `json:"version"`

	clock func() time.Time
}

// Option configures a new requisition
type Option func(*Requisition)

// WithID sets a known identifier instead of generating one
func WithID(id uuid.UUID) Option {
	return func(r *Requisition) { r.ID = id }
}

// WithClock sets the time source for status changes and timestamps
func WithClock(clock func() time.Time) Option {
	return func(r *Requisition) { r.clock = clock }
}

// WithCurrency sets the single currency all costs are expressed in
func WithCurrency(currency CurrencyUnit) Option {
	return func(r *Requisition) { r.Currency = currency }
}

// WithDefaultPricePerPack sets the price used for products without one
func WithDefaultPricePerPack(price decimal.Decimal) Option {
	return func(r *Requisition) { r.DefaultPricePerPack = price }
}

// WithSupervisoryNode sets the node that first reviews the requisition
func WithSupervisoryNode(nodeID uuid.UUID) Option {
	return func(r *Requisition) { r.SupervisoryNodeID = &nodeID }
}

// NewRequisition creates a requisition in INITIATED status with no line items
func NewRequisition(facilityID, programID, processingPeriodID uuid.UUID, emergency bool, opts ...Option) (*Requisition, error) {
	if facilityID == uuid.Nil {
		return nil, newValidationError("facilityId", "facility id is required")
	}
	if programID == uuid.Nil {
		return nil, newValidationError("programId", "program id is required")
	}
	if processingPeriodID == uuid.Nil {
		return nil, newValidationError("processingPeriodId", "processing period id is required")
	}

	r := &Requisition{
		ID:                  uuid.New(),
		ProgramID:           programID,
		FacilityID:          facilityID,
		ProcessingPeriodID:  processingPeriodID,
		Emergency:           emergency,
		Status:              StatusInitiated,
		LineItems:           []*RequisitionLineItem{},
		StatusChanges:       []StatusChange{},
		Currency:            DefaultCurrency,
		DefaultPricePerPack: decimal.Zero,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.ID == uuid.Nil {
		return nil, newValidationError("id", "requisition id must not be nil")
	}
	if _, err := ParseCurrencyUnit(string(r.Currency)); err != nil {
		return nil, err
	}

	r.CreatedDate = r.now()
	r.ModifiedDate = r.CreatedDate
	return r, nil
}

// SetClock replaces the time source, e.g. after loading from storage
func (r *Requisition) SetClock(clock func() time.Time) {
	r.clock = clock
}

func (r *Requisition) now() time.Time {
	if r.clock != nil {
		return r.clock().UTC()
	}
	return time.Now().UTC()
}

func (r *Requisition) defaultPricePerPack() Money {
	return NewMoney(r.DefaultPricePerPack, r.Currency)
}

// InitiateParams holds the resolved reference data for Initiate
type InitiateParams struct {
	Template               *RequisitionTemplate
	ApprovedProducts       []ApprovedProduct
	PreviousRequisitions   []PreviousRequisition
	NumberOfMonthsInPeriod int
	ProofOfDelivery        *ProofOfDelivery
	// IdealStockAmounts is keyed by commodity type id
	IdealStockAmounts map[uuid.UUID]int
	InitiatorID       uuid.UUID
	// StockOnHand is keyed by orderable id
	StockOnHand map[uuid.UUID]int
}

// Initiate populates a freshly created requisition with one line per approved
// product. Emergency requisitions start without lines.
func (r *Requisition) Initiate(params InitiateParams) error {
	if r.Status != StatusInitiated || len(r.LineItems) > 0 || len(r.StatusChanges) > 0 {
		return &InvalidStateTransitionError{Operation: "initiate", From: r.Status, Allowed: []RequisitionStatus{StatusInitiated}}
	}
	if params.Template == nil {
		return newValidationError("template", "template is required")
	}
	if params.InitiatorID == uuid.Nil {
		return newValidationError("initiatorId", "initiator id is required")
	}
	if params.NumberOfMonthsInPeriod < 0 {
		return newValidationError("numberOfMonthsInPeriod", "must not be negative, got %d", params.NumberOfMonthsInPeriod)
	}
	for _, product := range params.ApprovedProducts {
		if product.Orderable.ID == uuid.Nil {
			return newValidationError("approvedProducts", "approved product %s has no orderable id", product.ID)
		}
	}

	lineItems := []*RequisitionLineItem{}
	if !r.Emergency {
		for _, product := range params.ApprovedProducts {
			lineItems = append(lineItems, r.initiateLineItem(product, params))
		}
	}

	r.Template = params.Template
	r.NumberOfMonthsInPeriod = params.NumberOfMonthsInPeriod
	r.PreviousRequisitions = params.PreviousRequisitions
	r.LineItems = lineItems

	if n := params.Template.NumberOfPeriodsToAverage; n > 0 {
		r.SetPreviousAdjustedConsumptions(n)
	}

	r.recordStatusChange(params.InitiatorID)
	return nil
}

func (r *Requisition) initiateLineItem(product ApprovedProduct, params InitiateParams) *RequisitionLineItem {
	li := NewRequisitionLineItem(r.ID, product, r.ProgramID)
	orderable := product.Orderable

	if params.Template.IsColumnDisplayed(ColumnBeginningBalance) && len(params.PreviousRequisitions) > 0 {
		latest := params.PreviousRequisitions[len(params.PreviousRequisitions)-1]
		li.BeginningBalance = IntPtr(CalculateBeginningBalance(latest.FindLineByProductID(orderable.ID)))
	}

	if soh, ok := params.StockOnHand[orderable.ID]; ok {
		li.StockOnHand = IntPtr(soh)
	}

	if commodityTypeID, ok := orderable.CommodityTypeID(); ok {
		if isa, ok := params.IdealStockAmounts[commodityTypeID]; ok {
			li.IdealStockAmount = IntPtr(isa)
		}
	}

	if params.ProofOfDelivery.IsSubmitted() {
		if line, ok := params.ProofOfDelivery.FindLineByOrderableID(orderable.ID); ok && line.QuantityAccepted != nil {
			li.TotalReceivedQuantity = IntPtr(*line.QuantityAccepted)
		}
	}

	return li
}

// Submit recalculates the requisition and moves it to SUBMITTED, or straight
// to AUTHORIZED when the authorize step is skipped.
func (r *Requisition) Submit(products []Orderable, submitterID uuid.UUID, skipAuthorize bool) error {
	if !r.Status.IsSubmittable() {
		return &InvalidStateTransitionError{Operation: "submit", From: r.Status, Allowed: []RequisitionStatus{StatusInitiated, StatusRejected}}
	}
	if err := r.validateTransition("submitterId", submitterID); err != nil {
		return err
	}

	r.updateConsumptions()
	if skipAuthorize {
		r.populateApprovedQuantity()
	}
	r.updatePacksAndTotalCost(products)

	if skipAuthorize {
		r.Status = StatusAuthorized
	} else {
		r.Status = StatusSubmitted
	}
	r.recordStatusChange(submitterID)
	return nil
}

// Authorize recalculates the requisition, defaults approved quantities and
// moves it to AUTHORIZED.
func (r *Requisition) Authorize(products []Orderable, authorizerID uuid.UUID) error {
	if r.Status != StatusSubmitted {
		return &InvalidStateTransitionError{Operation: "authorize", From: r.Status, Allowed: []RequisitionStatus{StatusSubmitted}}
	}
	if err := r.validateTransition("authorizerId", authorizerID); err != nil {
		return err
	}

	r.updateConsumptions()
	r.populateApprovedQuantity()
	r.updatePacksAndTotalCost(products)

	r.Status = StatusAuthorized
	r.recordStatusChange(authorizerID)
	return nil
}

// Approve escalates the requisition to the parent node when there is one.
// Otherwise the requisition is final-approved and assigned to the facility
// that supplies its node.
func (r *Requisition) Approve(parentNodeID *uuid.UUID, products []Orderable, supplyLines []SupplyLine, approverID uuid.UUID) error {
	if !r.Status.IsApprovable() {
		return &InvalidStateTransitionError{Operation: "approve", From: r.Status, Allowed: []RequisitionStatus{StatusAuthorized, StatusInApproval}}
	}
	if err := r.validateTransition("approverId", approverID); err != nil {
		return err
	}
	if parentNodeID != nil && *parentNodeID == uuid.Nil {
		return newValidationError("parentNodeId", "parent node id must not be nil")
	}

	r.updateConsumptions()
	r.updatePacksAndTotalCost(products)

	if parentNodeID != nil {
		node := *parentNodeID
		r.SupervisoryNodeID = &node
		r.Status = StatusInApproval
	} else {
		if line, ok := r.findSupplyLine(supplyLines); ok {
			supplyingFacilityID := line.SupplyingFacilityID
			r.SupplyingFacilityID = &supplyingFacilityID
		}
		r.Status = StatusApproved
	}
	r.recordStatusChange(approverID)
	return nil
}

func (r *Requisition) findSupplyLine(supplyLines []SupplyLine) (SupplyLine, bool) {
	for _, line := range supplyLines {
		if line.ProgramID != r.ProgramID {
			continue
		}
		if r.SupervisoryNodeID != nil && line.SupervisoryNodeID != *r.SupervisoryNodeID {
			continue
		}
		return line, true
	}
	return SupplyLine{}, false
}

// Reject sends the requisition back to the facility. Figures are refreshed so
// the next submission starts from current values.
func (r *Requisition) Reject(products []Orderable, rejectorID uuid.UUID) error {
	if !r.Status.IsApprovable() {
		return &InvalidStateTransitionError{Operation: "reject", From: r.Status, Allowed: []RequisitionStatus{StatusAuthorized, StatusInApproval}}
	}
	if err := r.validateTransition("rejectorId", rejectorID); err != nil {
		return err
	}

	r.updateConsumptions()
	r.updatePacksAndTotalCost(products)

	r.Status = StatusRejected
	r.recordStatusChange(rejectorID)
	return nil
}

// Release marks an approved requisition as converted to an order
func (r *Requisition) Release(releaserID uuid.UUID) error {
	if r.Status != StatusApproved {
		return &InvalidStateTransitionError{Operation: "release", From: r.Status, Allowed: []RequisitionStatus{StatusApproved}}
	}
	if releaserID == uuid.Nil {
		return newValidationError("releaserId", "releaser id is required")
	}

	r.Status = StatusReleased
	r.recordStatusChange(releaserID)
	return nil
}

// Skip marks every line skipped and closes the period without a request.
// Only regular requisitions of programs that allow skipping can be skipped.
func (r *Requisition) Skip(periodsSkippable bool, skipperID uuid.UUID) error {
	if r.Status != StatusInitiated {
		return &InvalidStateTransitionError{Operation: "skip", From: r.Status, Allowed: []RequisitionStatus{StatusInitiated}}
	}
	if skipperID == uuid.Nil {
		return newValidationError("skipperId", "skipper id is required")
	}
	if !periodsSkippable {
		return newValidationError("status", "program does not allow skipping periods")
	}
	if r.Emergency {
		return newValidationError("emergency", "emergency requisitions cannot be skipped")
	}

	for _, li := range r.LineItems {
		li.Skipped = true
	}
	r.Status = StatusSkipped
	r.recordStatusChange(skipperID)
	return nil
}

// IsDeletable reports whether the requisition may still be removed
func (r *Requisition) IsDeletable() bool {
	switch r.Status {
	case StatusInitiated, StatusRejected, StatusSkipped, StatusSubmitted:
		return true
	default:
		return false
	}
}

func (r *Requisition) validateTransition(field string, authorID uuid.UUID) error {
	if authorID == uuid.Nil {
		return newValidationError(field, "author id is required")
	}
	if r.Template == nil {
		return newValidationError("template", "requisition has not been initiated with a template")
	}
	return nil
}

func (r *Requisition) recordStatusChange(authorID uuid.UUID) {
	now := r.now()
	r.StatusChanges = append(r.StatusChanges, r.newStatusChange(authorID, now))
	r.ModifiedDate = now
}

// updateConsumptions recalculates every non-skipped line
func (r *Requisition) updateConsumptions() {
	for _, li := range r.NonSkippedLineItems() {
		li.CalculateFields(r.Template, r.StockAdjustmentReasons, r.NumberOfMonthsInPeriod)
	}
}

func (r *Requisition) populateApprovedQuantity() {
	for _, li := range r.LineItems {
		li.ResetApprovedQuantity(r.Template)
	}
}

// updatePacksAndTotalCost refreshes pack counts and costs for lines whose
// product is known
func (r *Requisition) updatePacksAndTotalCost(products []Orderable) {
	byID := make(map[uuid.UUID]Orderable, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	defaultPrice := r.defaultPricePerPack()
	for _, li := range r.NonSkippedLineItems() {
		if product, ok := byID[li.OrderableID]; ok {
			li.UpdatePacksToShip(product, defaultPrice)
		}
	}
}

// Clone returns a deep copy of the aggregate. Previous requisition snapshots
// and the template are shared as they are never mutated.
func (r *Requisition) Clone() *Requisition {
	c := *r
	if r.SupervisoryNodeID != nil {
		node := *r.SupervisoryNodeID
		c.SupervisoryNodeID = &node
	}
	if r.SupplyingFacilityID != nil {
		facility := *r.SupplyingFacilityID
		c.SupplyingFacilityID = &facility
	}
	if r.DatePhysicalStockCountCompleted != nil {
		date := *r.DatePhysicalStockCountCompleted
		c.DatePhysicalStockCountCompleted = &date
	}
	c.LineItems = make([]*RequisitionLineItem, len(r.LineItems))
	for i, li := range r.LineItems {
		c.LineItems[i] = li.Clone()
	}
	c.StatusChanges = append([]StatusChange{}, r.StatusChanges...)
	c.PreviousRequisitions = append([]PreviousRequisition(nil), r.PreviousRequisitions...)
	c.StockAdjustmentReasons = append([]StockAdjustmentReason(nil), r.StockAdjustmentReasons...)
	return &c
}
