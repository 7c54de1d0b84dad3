package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// steppingClock returns a clock that advances one second per call
func steppingClock() func() time.Time {
	current := testNow
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func displayedCalculated() ColumnDefinition {
	return ColumnDefinition{Displayed: true, Source: SourceCalculated}
}

func displayedInput() ColumnDefinition {
	return ColumnDefinition{Displayed: true, Source: SourceUserInput}
}

// stockBasedTemplate calculates consumption from user entered stock on hand
func stockBasedTemplate() *RequisitionTemplate {
	return NewRequisitionTemplate(uuid.New(), map[Column]ColumnDefinition{
		ColumnRequestedQuantity:            displayedInput(),
		ColumnRequestedQuantityExplanation: displayedInput(),
		ColumnBeginningBalance:             displayedInput(),
		ColumnTotalReceivedQuantity:        displayedInput(),
		ColumnStockOnHand:                  displayedInput(),
		ColumnTotalStockoutDays:            displayedInput(),
		ColumnTotalConsumedQuantity:        displayedCalculated(),
		ColumnTotalLossesAndAdjustments:    displayedCalculated(),
		ColumnTotal:                        displayedCalculated(),
		ColumnAdjustedConsumption:          displayedCalculated(),
		ColumnAverageConsumption:           displayedCalculated(),
		ColumnMaximumStockQuantity:         displayedCalculated(),
		ColumnCalculatedOrderQuantity:      displayedCalculated(),
		ColumnApprovedQuantity:             displayedInput(),
		ColumnPacksToShip:                  displayedCalculated(),
		ColumnPricePerPack:                 {Displayed: true, Source: SourceReferenceData},
		ColumnTotalCost:                    displayedCalculated(),
		ColumnRemarks:                      displayedInput(),
		ColumnSkipped:                      displayedInput(),
	})
}

func testOrderable(programID uuid.UUID, fullSupply bool, price string) Orderable {
	return Orderable{
		ID:                    uuid.New(),
		ProductCode:           "C" + uuid.NewString()[:4],
		FullProductName:       "Product",
		NetContent:            10,
		PackRoundingThreshold: 5,
		Programs: []ProgramOrderable{{
			ProgramID:    programID,
			FullSupply:   fullSupply,
			Active:       true,
			PricePerPack: moneyPtr(price),
		}},
	}
}

func moneyPtr(amount string) *Money {
	m := NewMoney(decimal.RequireFromString(amount), DefaultCurrency)
	return &m
}

func approved(o Orderable) ApprovedProduct {
	return ApprovedProduct{ID: uuid.New(), Orderable: o, MaxPeriodsOfStock: decimal.NewFromInt(3)}
}

type requisitionFixture struct {
	requisition *Requisition
	products    []Orderable
	template    *RequisitionTemplate
	initiator   uuid.UUID
}

func newRequisitionFixture(t *testing.T, emergency bool, productCount int) requisitionFixture {
	t.Helper()

	programID := uuid.New()
	r, err := NewRequisition(uuid.New(), programID, uuid.New(), emergency, WithClock(steppingClock()))
	require.NoError(t, err)

	template := stockBasedTemplate()
	var products []Orderable
	var approvedProducts []ApprovedProduct
	for i := 0; i < productCount; i++ {
		o := testOrderable(programID, true, "2.50")
		products = append(products, o)
		approvedProducts = append(approvedProducts, approved(o))
	}

	initiator := uuid.New()
	require.NoError(t, r.Initiate(InitiateParams{
		Template:               template,
		ApprovedProducts:       approvedProducts,
		NumberOfMonthsInPeriod: 1,
		InitiatorID:            initiator,
	}))

	return requisitionFixture{requisition: r, products: products, template: template, initiator: initiator}
}
