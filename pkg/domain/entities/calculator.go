package entities

import "github.com/shopspring/decimal"

// daysPerMonth is the fixed month length used by adjusted consumption
const daysPerMonth = 30

// CalculateBeginningBalance returns the previous period's stock on hand plus
// its approved quantity, or zero when there is no previous line.
func CalculateBeginningBalance(previous *RequisitionLineItem) int {
	if previous == nil {
		return 0
	}
	return zeroIfNil(previous.StockOnHand) + zeroIfNil(previous.ApprovedQuantity)
}

// CalculateTotalConsumedQuantity returns
// beginning balance + received + losses and adjustments - stock on hand.
func CalculateTotalConsumedQuantity(li *RequisitionLineItem) int {
	return zeroIfNil(li.BeginningBalance) +
		zeroIfNil(li.TotalReceivedQuantity) +
		zeroIfNil(li.TotalLossesAndAdjustments) -
		zeroIfNil(li.StockOnHand)
}

// CalculateTotal returns beginning balance + received
func CalculateTotal(li *RequisitionLineItem) int {
	return zeroIfNil(li.BeginningBalance) + zeroIfNil(li.TotalReceivedQuantity)
}

// CalculateStockOnHand returns
// beginning balance + received + losses and adjustments - consumed.
func CalculateStockOnHand(li *RequisitionLineItem) int {
	return zeroIfNil(li.BeginningBalance) +
		zeroIfNil(li.TotalReceivedQuantity) +
		zeroIfNil(li.TotalLossesAndAdjustments) -
		zeroIfNil(li.TotalConsumedQuantity)
}

// CalculateTotalLossesAndAdjustments sums the line's stock adjustments, adding
// quantities with an additive reason and subtracting the rest. Adjustments
// whose reason is unknown contribute nothing.
func CalculateTotalLossesAndAdjustments(li *RequisitionLineItem, reasons []StockAdjustmentReason) int {
	total := 0
	for _, adjustment := range li.StockAdjustments {
		for _, reason := range reasons {
			if reason.ID != adjustment.ReasonID {
				continue
			}
			if reason.Additive {
				total += adjustment.Quantity
			} else {
				total -= adjustment.Quantity
			}
			break
		}
	}
	return total
}

// CalculateTotalCost multiplies the price per pack, or the default price when
// the line has none, by the packs to ship.
func CalculateTotalCost(li *RequisitionLineItem, defaultPricePerPack Money) Money {
	price := defaultPricePerPack
	if li.PricePerPack != nil {
		price = *li.PricePerPack
	}
	if li.PacksToShip == nil {
		return ZeroMoney(price.Currency)
	}
	return price.Mul(*li.PacksToShip)
}

// CalculateAdjustedConsumption scales consumed quantity up for stockout days.
// The day ratio is rounded up to a whole number before it multiplies the
// consumed quantity.
func CalculateAdjustedConsumption(li *RequisitionLineItem, monthsInPeriod int) int {
	consumed := zeroIfNil(li.TotalConsumedQuantity)
	if consumed == 0 {
		return 0
	}

	totalDays := daysPerMonth * monthsInPeriod
	nonStockoutDays := totalDays - zeroIfNil(li.TotalStockoutDays)
	if nonStockoutDays == 0 {
		return consumed
	}

	divisor := decimal.NewFromInt(int64(nonStockoutDays))
	multiplier, remainder := decimal.NewFromInt(int64(totalDays)).QuoRem(divisor, 0)
	if !remainder.IsZero() && remainder.Sign() == divisor.Sign() {
		multiplier = multiplier.Add(decimal.NewFromInt(1))
	}

	return int(multiplier.Mul(decimal.NewFromInt(int64(consumed))).IntPart())
}

// CalculateAverageConsumption returns the mean of the series rounded to the
// nearest whole unit. Callers must not pass an empty series.
func CalculateAverageConsumption(series []int) int {
	if len(series) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range series {
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}
	return int(sum.Div(decimal.NewFromInt(int64(len(series)))).Round(0).IntPart())
}

// CalculateMaximumStockQuantity returns max periods of stock times average consumption
func CalculateMaximumStockQuantity(li *RequisitionLineItem) int {
	average := decimal.NewFromInt(int64(zeroIfNil(li.AverageConsumption)))
	return int(li.MaxPeriodsOfStock.Mul(average).Round(0).IntPart())
}

// CalculateOrderQuantity returns the shortfall between maximum stock and stock on hand
func CalculateOrderQuantity(li *RequisitionLineItem) int {
	return maxInt(0, zeroIfNil(li.MaximumStockQuantity)-zeroIfNil(li.StockOnHand))
}

// CalculateOrderQuantityISA returns the shortfall against the ideal stock
// amount, or nil when the product has none.
func CalculateOrderQuantityISA(li *RequisitionLineItem) *int {
	if li.IdealStockAmount == nil {
		return nil
	}
	return IntPtr(maxInt(0, *li.IdealStockAmount-zeroIfNil(li.StockOnHand)))
}
