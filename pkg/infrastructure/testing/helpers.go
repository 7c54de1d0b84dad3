package testing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/services/permission"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/memory"
)

// DistrictScenario is a health facility reporting monthly to a district node
// that escalates to a regional node supplied by one warehouse.
type DistrictScenario struct {
	Requisitions  *memory.RequisitionRepository
	ReferenceData *memory.ReferenceDataRepository

	FacilityID      uuid.UUID
	ProgramID       uuid.UUID
	WarehouseID     uuid.UUID
	DistrictNodeID  uuid.UUID
	RegionNodeID    uuid.UUID
	CommodityTypeID uuid.UUID
	Periods         []entities.ProcessingPeriod

	// Orderables holds two full supply products followed by one non full supply product
	Orderables []entities.Orderable
	Receipts   entities.StockAdjustmentReason
	Damage     entities.StockAdjustmentReason

	Clerk           permission.UserAssignments
	DistrictManager permission.UserAssignments
	RegionManager   permission.UserAssignments
	Storekeeper     permission.UserAssignments
}

func money(amount string) *entities.Money {
	m := entities.NewMoney(decimal.RequireFromString(amount), entities.DefaultCurrency)
	return &m
}

// StockBasedTemplate calculates consumption from the counted stock on hand
func StockBasedTemplate(programID uuid.UUID) *entities.RequisitionTemplate {
	input := entities.ColumnDefinition{Displayed: true, Source: entities.SourceUserInput}
	calculated := entities.ColumnDefinition{Displayed: true, Source: entities.SourceCalculated}

	template := entities.NewRequisitionTemplate(programID, map[entities.Column]entities.ColumnDefinition{
		entities.ColumnRequestedQuantity:            input,
		entities.ColumnRequestedQuantityExplanation: input,
		entities.ColumnBeginningBalance:             input,
		entities.ColumnTotalReceivedQuantity:        input,
		entities.ColumnStockOnHand:                  input,
		entities.ColumnTotalStockoutDays:            input,
		entities.ColumnTotalConsumedQuantity:        calculated,
		entities.ColumnTotalLossesAndAdjustments:    calculated,
		entities.ColumnTotal:                        calculated,
		entities.ColumnAdjustedConsumption:          calculated,
		entities.ColumnAverageConsumption:           calculated,
		entities.ColumnMaximumStockQuantity:         calculated,
		entities.ColumnCalculatedOrderQuantity:      calculated,
		entities.ColumnApprovedQuantity:             input,
		entities.ColumnPacksToShip:                  calculated,
		entities.ColumnPricePerPack:                 {Displayed: true, Source: entities.SourceReferenceData},
		entities.ColumnTotalCost:                    calculated,
		entities.ColumnRemarks:                      input,
		entities.ColumnSkipped:                      input,
	})
	template.PeriodsSkippable = true
	template.NumberOfPeriodsToAverage = 3
	return template
}

// BuildDistrictScenario loads the scenario into fresh in-memory repositories
func BuildDistrictScenario() *DistrictScenario {
	s := &DistrictScenario{
		Requisitions:    memory.NewRequisitionRepository(),
		ReferenceData:   memory.NewReferenceDataRepository(3),
		FacilityID:      uuid.New(),
		ProgramID:       uuid.New(),
		WarehouseID:     uuid.New(),
		DistrictNodeID:  uuid.New(),
		RegionNodeID:    uuid.New(),
		CommodityTypeID: uuid.New(),
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		period := entities.ProcessingPeriod{
			ID:               uuid.New(),
			Name:             start.AddDate(0, i, 0).Format("Jan 2006"),
			StartDate:        start.AddDate(0, i, 0),
			EndDate:          start.AddDate(0, i+1, -1),
			DurationInMonths: 1,
		}
		s.Periods = append(s.Periods, period)
		s.ReferenceData.AddProcessingPeriod(period)
	}

	s.Orderables = []entities.Orderable{
		{
			ID:                    uuid.New(),
			ProductCode:           "AMOX250",
			FullProductName:       "Amoxicillin 250mg",
			NetContent:            100,
			PackRoundingThreshold: 20,
			Identifiers:           map[string]string{entities.CommodityTypeIdentifier: s.CommodityTypeID.String()},
			Programs: []entities.ProgramOrderable{{
				ProgramID: s.ProgramID, FullSupply: true, Active: true, PricePerPack: money("4.50"), DisplayOrder: 1,
			}},
		},
		{
			ID:                    uuid.New(),
			ProductCode:           "ORS",
			FullProductName:       "Oral rehydration salts",
			NetContent:            10,
			PackRoundingThreshold: 5,
			Programs: []entities.ProgramOrderable{{
				ProgramID: s.ProgramID, FullSupply: true, Active: true, PricePerPack: money("1.20"), DisplayOrder: 2,
			}},
		},
		{
			ID:                    uuid.New(),
			ProductCode:           "ZINC20",
			FullProductName:       "Zinc sulfate 20mg",
			NetContent:            50,
			PackRoundingThreshold: 10,
			RoundToZero:           true,
			Programs: []entities.ProgramOrderable{{
				ProgramID: s.ProgramID, FullSupply: false, Active: true, PricePerPack: money("2.00"), DisplayOrder: 3,
			}},
		},
	}

	var products []entities.ApprovedProduct
	for _, orderable := range s.Orderables {
		s.ReferenceData.AddOrderable(orderable)
		if orderable.Programs[0].FullSupply {
			products = append(products, entities.ApprovedProduct{
				ID:                uuid.New(),
				Orderable:         orderable,
				MaxPeriodsOfStock: decimal.NewFromInt(3),
			})
		}
	}
	s.ReferenceData.LoadApprovedProducts(s.ProgramID, products)
	s.ReferenceData.SaveTemplate(StockBasedTemplate(s.ProgramID))

	s.Receipts = entities.StockAdjustmentReason{ID: uuid.New(), Name: "Transfer in", Additive: true}
	s.Damage = entities.StockAdjustmentReason{ID: uuid.New(), Name: "Damaged", Additive: false}
	s.ReferenceData.LoadStockAdjustmentReasons([]entities.StockAdjustmentReason{s.Receipts, s.Damage})

	regionNode := s.RegionNodeID
	s.ReferenceData.AddSupervisoryNode(entities.SupervisoryNode{
		ID: s.DistrictNodeID, Code: "SN-DISTRICT", FacilityID: uuid.New(), ParentNodeID: &regionNode,
	})
	s.ReferenceData.AddSupervisoryNode(entities.SupervisoryNode{
		ID: s.RegionNodeID, Code: "SN-REGION", FacilityID: uuid.New(),
	})
	s.ReferenceData.AddSupplyLine(entities.SupplyLine{
		ID: uuid.New(), SupervisoryNodeID: s.RegionNodeID, ProgramID: s.ProgramID, SupplyingFacilityID: s.WarehouseID,
	})

	s.ReferenceData.SetStockOnHand(s.FacilityID, map[uuid.UUID]int{
		s.Orderables[0].ID: 400,
		s.Orderables[1].ID: 35,
	})
	s.ReferenceData.SetIdealStockAmounts(s.FacilityID, map[uuid.UUID]int{s.CommodityTypeID: 1200})

	s.Clerk = permission.UserAssignments{
		UserID: uuid.New(),
		Rights: []permission.RightAssignment{
			{Right: permission.RequisitionCreate, FacilityID: s.FacilityID, ProgramID: s.ProgramID},
			{Right: permission.RequisitionAuthorize, FacilityID: s.FacilityID, ProgramID: s.ProgramID},
			{Right: permission.RequisitionDelete, FacilityID: s.FacilityID, ProgramID: s.ProgramID},
		},
		Roles: []permission.RoleAssignment{
			{Right: permission.RequisitionCreate, ProgramID: s.ProgramID, FacilityID: s.FacilityID},
			{Right: permission.RequisitionAuthorize, ProgramID: s.ProgramID, FacilityID: s.FacilityID},
			{Right: permission.RequisitionView, ProgramID: s.ProgramID, FacilityID: s.FacilityID},
		},
	}
	s.DistrictManager = s.approverAt(s.DistrictNodeID)
	s.RegionManager = s.approverAt(s.RegionNodeID)
	s.Storekeeper = permission.UserAssignments{
		UserID: uuid.New(),
		Rights: []permission.RightAssignment{{Right: permission.OrdersEdit, WarehouseID: s.WarehouseID}},
	}
	return s
}

func (s *DistrictScenario) approverAt(nodeID uuid.UUID) permission.UserAssignments {
	return permission.UserAssignments{
		UserID: uuid.New(),
		Roles: []permission.RoleAssignment{
			{Right: permission.RequisitionApprove, ProgramID: s.ProgramID, SupervisoryNodeID: nodeID},
			{Right: permission.RequisitionView, ProgramID: s.ProgramID, SupervisoryNodeID: nodeID},
		},
	}
}
