package entities

import (
	"time"

	"github.com/google/uuid"
)

// UpdateFrom merges an edited copy of the requisition into this one.
//
// Lines are matched by id. On a regular requisition full supply lines come
// from the catalog: unmatched ones are kept and new ones are ignored. Non full
// supply lines follow the incoming copy. On an emergency requisition only non
// full supply lines survive. Calculated columns are then recomputed and
// hidden columns cleared.
func (r *Requisition) UpdateFrom(incoming *Requisition, reasons []StockAdjustmentReason, updateStockDate bool) error {
	if incoming == nil {
		return newValidationError("requisition", "incoming requisition is required")
	}
	if !r.Status.IsUpdatable() {
		return &InvalidStateTransitionError{
			Operation: "update",
			From:      r.Status,
			Allowed:   UpdatableStatuses(),
		}
	}
	if r.Template == nil {
		return newValidationError("template", "requisition has not been initiated with a template")
	}
	if err := r.validateStockoutDays(incoming.LineItems); err != nil {
		return err
	}

	incomingByID := make(map[uuid.UUID]*RequisitionLineItem, len(incoming.LineItems))
	for _, li := range incoming.LineItems {
		if li != nil && li.ID != uuid.Nil {
			incomingByID[li.ID] = li
		}
	}

	merged := make([]*RequisitionLineItem, 0, len(r.LineItems)+len(incoming.LineItems))
	matched := make(map[uuid.UUID]bool, len(r.LineItems))

	for _, existing := range r.LineItems {
		update, ok := incomingByID[existing.ID]
		if ok {
			matched[existing.ID] = true
			if r.Emergency && existing.IsFullSupply() {
				continue
			}
			existing.UpdateFrom(update)
			merged = append(merged, existing)
			continue
		}
		if !r.Emergency && existing.IsFullSupply() {
			merged = append(merged, existing)
		}
	}

	for _, li := range incoming.LineItems {
		if li == nil || matched[li.ID] || li.IsFullSupply() {
			continue
		}
		added := li.Clone()
		if added.ID == uuid.Nil {
			added.ID = uuid.New()
		}
		added.PreviousAdjustedConsumptions = []int{}
		merged = append(merged, added)
	}

	for _, li := range merged {
		li.RequisitionID = r.ID
	}
	r.LineItems = merged
	r.StockAdjustmentReasons = append([]StockAdjustmentReason(nil), reasons...)

	if updateStockDate {
		r.DatePhysicalStockCountCompleted = copyTime(incoming.DatePhysicalStockCountCompleted)
	}

	r.updateConsumptions()
	for _, li := range r.LineItems {
		li.ClearHiddenColumns(r.Template)
	}

	r.ModifiedDate = r.now()
	return nil
}

// validateStockoutDays rejects stockout day counts outside the period
func (r *Requisition) validateStockoutDays(lines []*RequisitionLineItem) error {
	periodDays := daysPerMonth * r.NumberOfMonthsInPeriod
	for _, li := range lines {
		if li == nil || li.TotalStockoutDays == nil {
			continue
		}
		days := *li.TotalStockoutDays
		if days < 0 || (periodDays > 0 && days > periodDays) {
			return newValidationError("totalStockoutDays",
				"%d stockout days for orderable %s is outside 0..%d", days, li.OrderableID, periodDays)
		}
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
