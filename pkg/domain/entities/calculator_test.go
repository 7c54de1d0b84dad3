package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBeginningBalance(t *testing.T) {
	assert.Equal(t, 0, CalculateBeginningBalance(nil))
	assert.Equal(t, 15, CalculateBeginningBalance(&RequisitionLineItem{StockOnHand: IntPtr(10), ApprovedQuantity: IntPtr(5)}))
	assert.Equal(t, 10, CalculateBeginningBalance(&RequisitionLineItem{StockOnHand: IntPtr(10)}))
}

func TestConsumedAndStockOnHandAreInverse(t *testing.T) {
	testCases := []struct {
		name      string
		beginning int
		received  int
		losses    int
		onHand    int
	}{
		{"no losses", 100, 50, 0, 30},
		{"negative adjustments", 40, 0, -10, 5},
		{"positive adjustments", 0, 20, 7, 27},
		{"stock exceeds supply", 10, 0, 0, 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			li := &RequisitionLineItem{
				BeginningBalance:          IntPtr(tc.beginning),
				TotalReceivedQuantity:     IntPtr(tc.received),
				TotalLossesAndAdjustments: IntPtr(tc.losses),
				StockOnHand:               IntPtr(tc.onHand),
			}
			consumed := CalculateTotalConsumedQuantity(li)

			derived := &RequisitionLineItem{
				BeginningBalance:          IntPtr(tc.beginning),
				TotalReceivedQuantity:     IntPtr(tc.received),
				TotalLossesAndAdjustments: IntPtr(tc.losses),
				TotalConsumedQuantity:     IntPtr(consumed),
			}
			assert.Equal(t, tc.onHand, CalculateStockOnHand(derived))
		})
	}
}

func TestCalculateTotalIgnoresAdjustments(t *testing.T) {
	li := &RequisitionLineItem{
		BeginningBalance:          IntPtr(12),
		TotalReceivedQuantity:     IntPtr(8),
		TotalLossesAndAdjustments: IntPtr(-100),
	}
	assert.Equal(t, 20, CalculateTotal(li))
	assert.Equal(t, 0, CalculateTotal(&RequisitionLineItem{}))
}

func TestCalculateTotalLossesAndAdjustments(t *testing.T) {
	additive := StockAdjustmentReason{ID: uuid.New(), Name: "Transfer In", Additive: true}
	subtractive := StockAdjustmentReason{ID: uuid.New(), Name: "Damaged", Additive: false}
	reasons := []StockAdjustmentReason{additive, subtractive}

	testCases := []struct {
		name        string
		adjustments []StockAdjustment
		expected    int
	}{
		{"additive", []StockAdjustment{{ReasonID: additive.ID, Quantity: 7}}, 7},
		{"subtractive", []StockAdjustment{{ReasonID: subtractive.ID, Quantity: 7}}, -7},
		{"unknown reason", []StockAdjustment{{ReasonID: uuid.New(), Quantity: 7}}, 0},
		{"mixed", []StockAdjustment{
			{ReasonID: additive.ID, Quantity: 10},
			{ReasonID: subtractive.ID, Quantity: 3},
			{ReasonID: uuid.New(), Quantity: 50},
		}, 7},
		{"none", nil, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			li := &RequisitionLineItem{StockAdjustments: tc.adjustments}
			assert.Equal(t, tc.expected, CalculateTotalLossesAndAdjustments(li, reasons))
		})
	}
}

func TestCalculateTotalCost(t *testing.T) {
	defaultPrice := NewMoney(decimal.RequireFromString("1.25"), DefaultCurrency)

	withPrice := &RequisitionLineItem{PricePerPack: moneyPtr("4.10"), PacksToShip: Int64Ptr(3)}
	assert.True(t, CalculateTotalCost(withPrice, defaultPrice).Equal(NewMoney(decimal.RequireFromString("12.30"), DefaultCurrency)))

	withoutPrice := &RequisitionLineItem{PacksToShip: Int64Ptr(4)}
	assert.True(t, CalculateTotalCost(withoutPrice, defaultPrice).Equal(NewMoney(decimal.RequireFromString("5"), DefaultCurrency)))

	noPacks := &RequisitionLineItem{PricePerPack: moneyPtr("4.10")}
	assert.True(t, CalculateTotalCost(noPacks, defaultPrice).IsZero())
}

func TestCalculateAdjustedConsumption(t *testing.T) {
	testCases := []struct {
		name     string
		consumed *int
		stockout *int
		months   int
		expected int
	}{
		{"no stockout", IntPtr(100), IntPtr(0), 1, 100},
		{"half the period out of stock", IntPtr(100), IntPtr(15), 1, 200},
		{"ratio rounded up before multiplying", IntPtr(100), IntPtr(10), 1, 200},
		{"two month period", IntPtr(50), IntPtr(20), 2, 100},
		{"nothing consumed", IntPtr(0), IntPtr(15), 1, 0},
		{"consumed not set", nil, IntPtr(15), 1, 0},
		{"whole period out of stock", IntPtr(40), IntPtr(30), 1, 40},
		{"stockout not set", IntPtr(40), nil, 1, 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			li := &RequisitionLineItem{TotalConsumedQuantity: tc.consumed, TotalStockoutDays: tc.stockout}
			assert.Equal(t, tc.expected, CalculateAdjustedConsumption(li, tc.months))
		})
	}
}

func TestCalculateAverageConsumption(t *testing.T) {
	assert.Equal(t, 20, CalculateAverageConsumption([]int{10, 20, 30}))
	assert.Equal(t, 16, CalculateAverageConsumption([]int{10, 21}))
	assert.Equal(t, 7, CalculateAverageConsumption([]int{7}))
	assert.Equal(t, 0, CalculateAverageConsumption(nil))
}

func TestCalculateOrderQuantities(t *testing.T) {
	li := &RequisitionLineItem{
		AverageConsumption: IntPtr(15),
		MaxPeriodsOfStock:  decimal.RequireFromString("2.5"),
		StockOnHand:        IntPtr(20),
	}
	li.MaximumStockQuantity = IntPtr(CalculateMaximumStockQuantity(li))
	assert.Equal(t, 38, *li.MaximumStockQuantity)
	assert.Equal(t, 18, CalculateOrderQuantity(li))

	li.StockOnHand = IntPtr(100)
	assert.Equal(t, 0, CalculateOrderQuantity(li))

	assert.Nil(t, CalculateOrderQuantityISA(li))
	li.IdealStockAmount = IntPtr(130)
	assert.Equal(t, 30, *CalculateOrderQuantityISA(li))
}

func TestPacksToOrder(t *testing.T) {
	o := Orderable{NetContent: 10, PackRoundingThreshold: 4}
	assert.Equal(t, int64(0), o.PacksToOrder(0))
	assert.Equal(t, int64(2), o.PacksToOrder(20))
	assert.Equal(t, int64(2), o.PacksToOrder(24))
	assert.Equal(t, int64(3), o.PacksToOrder(25))
	assert.Equal(t, int64(1), o.PacksToOrder(3))

	o.RoundToZero = true
	assert.Equal(t, int64(0), o.PacksToOrder(3))
}
