package entities

import "github.com/google/uuid"

// FindLineByProductID returns the line for the product, or nil when there is none
func (r *Requisition) FindLineByProductID(orderableID uuid.UUID) *RequisitionLineItem {
	for _, li := range r.LineItems {
		if li.OrderableID == orderableID {
			return li
		}
	}
	return nil
}

func (r *Requisition) filterLineItems(keep func(li *RequisitionLineItem) bool) []*RequisitionLineItem {
	result := make([]*RequisitionLineItem, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		if keep(li) {
			result = append(result, li)
		}
	}
	return result
}

// NonSkippedLineItems returns the active lines in their original order
func (r *Requisition) NonSkippedLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return !li.Skipped })
}

// SkippedLineItems returns the skipped lines in their original order
func (r *Requisition) SkippedLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return li.Skipped })
}

func (r *Requisition) FullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return !li.NonFullSupply })
}

func (r *Requisition) NonFullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return li.NonFullSupply })
}

func (r *Requisition) NonSkippedFullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return !li.Skipped && !li.NonFullSupply })
}

func (r *Requisition) NonSkippedNonFullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return !li.Skipped && li.NonFullSupply })
}

func (r *Requisition) SkippedFullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return li.Skipped && !li.NonFullSupply })
}

func (r *Requisition) SkippedNonFullSupplyLineItems() []*RequisitionLineItem {
	return r.filterLineItems(func(li *RequisitionLineItem) bool { return li.Skipped && li.NonFullSupply })
}

// TotalCost sums the cost of all active lines
func (r *Requisition) TotalCost() (Money, error) {
	return r.sumTotalCost(r.NonSkippedLineItems())
}

// FullSupplyTotalCost sums the cost of active full supply lines
func (r *Requisition) FullSupplyTotalCost() (Money, error) {
	return r.sumTotalCost(r.NonSkippedFullSupplyLineItems())
}

// NonFullSupplyTotalCost sums the cost of active non full supply lines
func (r *Requisition) NonFullSupplyTotalCost() (Money, error) {
	return r.sumTotalCost(r.NonSkippedNonFullSupplyLineItems())
}

func (r *Requisition) sumTotalCost(lineItems []*RequisitionLineItem) (Money, error) {
	total := ZeroMoney(r.Currency)
	for _, li := range lineItems {
		if li.TotalCost == nil {
			continue
		}
		sum, err := total.Add(*li.TotalCost)
		if err != nil {
			return Money{}, err
		}
		total = sum
	}
	return total, nil
}

// SetPreviousAdjustedConsumptions fills each line's consumption history from
// the last n previous requisitions, oldest first. Skipped lines and lines
// without an adjusted consumption contribute nothing.
func (r *Requisition) SetPreviousAdjustedConsumptions(n int) {
	previous := r.PreviousRequisitions
	if n <= 0 {
		previous = nil
	} else if n < len(previous) {
		previous = previous[len(previous)-n:]
	}

	for _, li := range r.LineItems {
		history := []int{}
		for _, p := range previous {
			for _, prev := range p.LineItems {
				if prev.OrderableID != li.OrderableID || prev.Skipped || prev.AdjustedConsumption == nil {
					continue
				}
				history = append(history, *prev.AdjustedConsumption)
			}
		}
		li.PreviousAdjustedConsumptions = history
	}
}
