package entities

// calculationContext carries the inputs a column calculation needs beyond the line itself
type calculationContext struct {
	reasons        []StockAdjustmentReason
	monthsInPeriod int
}

// columnField binds a template column to the line item field it controls.
// clear is nil only for price per pack and skipped, which hold product
// reference data and the skip flag rather than a reported value; calculate
// is nil for columns the system never derives.
type columnField struct {
	clear     func(li *RequisitionLineItem)
	calculate func(li *RequisitionLineItem, ctx calculationContext)
}

// calculationOrder lists calculated columns in dependency order
var calculationOrder = []Column{
	ColumnTotalLossesAndAdjustments,
	ColumnStockOnHand,
	ColumnTotalConsumedQuantity,
	ColumnTotal,
	ColumnAdjustedConsumption,
	ColumnAverageConsumption,
	ColumnMaximumStockQuantity,
	ColumnCalculatedOrderQuantity,
	ColumnCalculatedOrderQuantityISA,
}

var columnRegistry = map[Column]columnField{
	ColumnRequestedQuantity: {
		clear: func(li *RequisitionLineItem) { li.RequestedQuantity = nil },
	},
	ColumnRequestedQuantityExplanation: {
		clear: func(li *RequisitionLineItem) { li.RequestedQuantityExplanation = "" },
	},
	ColumnBeginningBalance: {
		clear: func(li *RequisitionLineItem) { li.BeginningBalance = nil },
	},
	ColumnTotalReceivedQuantity: {
		clear: func(li *RequisitionLineItem) { li.TotalReceivedQuantity = nil },
	},
	ColumnTotalConsumedQuantity: {
		clear: func(li *RequisitionLineItem) { li.TotalConsumedQuantity = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.TotalConsumedQuantity = IntPtr(CalculateTotalConsumedQuantity(li))
		},
	},
	ColumnTotalLossesAndAdjustments: {
		clear: func(li *RequisitionLineItem) {
			li.TotalLossesAndAdjustments = nil
			li.StockAdjustments = nil
		},
		calculate: func(li *RequisitionLineItem, ctx calculationContext) {
			li.TotalLossesAndAdjustments = IntPtr(CalculateTotalLossesAndAdjustments(li, ctx.reasons))
		},
	},
	ColumnStockOnHand: {
		clear: func(li *RequisitionLineItem) { li.StockOnHand = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.StockOnHand = IntPtr(CalculateStockOnHand(li))
		},
	},
	ColumnTotalStockoutDays: {
		clear: func(li *RequisitionLineItem) { li.TotalStockoutDays = nil },
	},
	ColumnTotal: {
		clear: func(li *RequisitionLineItem) { li.Total = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.Total = IntPtr(CalculateTotal(li))
		},
	},
	ColumnAdjustedConsumption: {
		clear: func(li *RequisitionLineItem) { li.AdjustedConsumption = nil },
		calculate: func(li *RequisitionLineItem, ctx calculationContext) {
			li.AdjustedConsumption = IntPtr(CalculateAdjustedConsumption(li, ctx.monthsInPeriod))
		},
	},
	ColumnAverageConsumption: {
		clear: func(li *RequisitionLineItem) { li.AverageConsumption = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			series := append([]int{}, li.PreviousAdjustedConsumptions...)
			if li.AdjustedConsumption != nil {
				series = append(series, *li.AdjustedConsumption)
			}
			if len(series) == 0 {
				return
			}
			li.AverageConsumption = IntPtr(CalculateAverageConsumption(series))
		},
	},
	ColumnMaximumStockQuantity: {
		clear: func(li *RequisitionLineItem) { li.MaximumStockQuantity = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.MaximumStockQuantity = IntPtr(CalculateMaximumStockQuantity(li))
		},
	},
	ColumnCalculatedOrderQuantity: {
		clear: func(li *RequisitionLineItem) { li.CalculatedOrderQuantity = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.CalculatedOrderQuantity = IntPtr(CalculateOrderQuantity(li))
		},
	},
	ColumnCalculatedOrderQuantityISA: {
		clear: func(li *RequisitionLineItem) { li.CalculatedOrderQuantityISA = nil },
		calculate: func(li *RequisitionLineItem, _ calculationContext) {
			li.CalculatedOrderQuantityISA = CalculateOrderQuantityISA(li)
		},
	},
	ColumnRemarks: {
		clear: func(li *RequisitionLineItem) { li.Remarks = "" },
	},
	ColumnIdealStockAmount: {
		clear: func(li *RequisitionLineItem) { li.IdealStockAmount = nil },
	},
	ColumnApprovedQuantity: {
		clear: func(li *RequisitionLineItem) { li.ApprovedQuantity = nil },
	},
	ColumnPacksToShip: {
		clear: func(li *RequisitionLineItem) { li.PacksToShip = nil },
	},
	ColumnTotalCost: {
		clear: func(li *RequisitionLineItem) { li.TotalCost = nil },
	},
	ColumnPricePerPack: {},
	ColumnSkipped:      {},
}

// CalculateFields applies every column calculation the template enables: a
// column is derived only when it is displayed and sourced as calculated.
func (li *RequisitionLineItem) CalculateFields(template *RequisitionTemplate, reasons []StockAdjustmentReason, monthsInPeriod int) {
	ctx := calculationContext{reasons: reasons, monthsInPeriod: monthsInPeriod}
	for _, column := range calculationOrder {
		if !template.IsColumnDisplayed(column) || !template.IsColumnCalculated(column) {
			continue
		}
		if field := columnRegistry[column]; field.calculate != nil {
			field.calculate(li, ctx)
		}
	}
}
