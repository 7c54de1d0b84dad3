package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

// ReferenceDataRepository provides the master data a requisition is built
// from. Lookups of a single record fail with entities.ErrNotFound.
type ReferenceDataRepository interface {
	GetTemplate(ctx context.Context, programID uuid.UUID) (*entities.RequisitionTemplate, error)
	GetApprovedProducts(ctx context.Context, facilityID, programID uuid.UUID) ([]entities.ApprovedProduct, error)
	GetOrderable(ctx context.Context, id uuid.UUID) (*entities.Orderable, error)
	GetStockAdjustmentReasons(ctx context.Context, programID uuid.UUID) ([]entities.StockAdjustmentReason, error)
	GetProcessingPeriod(ctx context.Context, id uuid.UUID) (*entities.ProcessingPeriod, error)
	GetSupervisoryNode(ctx context.Context, id uuid.UUID) (*entities.SupervisoryNode, error)
	GetSupplyLines(ctx context.Context, supervisoryNodeID, programID uuid.UUID) ([]entities.SupplyLine, error)
	// GetProofOfDelivery returns nil without error when the requisition has none
	GetProofOfDelivery(ctx context.Context, requisitionID uuid.UUID) (*entities.ProofOfDelivery, error)
	// GetIdealStockAmounts is keyed by commodity type id
	GetIdealStockAmounts(ctx context.Context, facilityID, processingPeriodID uuid.UUID) (map[uuid.UUID]int, error)
	// GetStockOnHand is keyed by orderable id
	GetStockOnHand(ctx context.Context, facilityID, programID uuid.UUID) (map[uuid.UUID]int, error)
}
