package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// ReferenceDataRepository provides in-memory master data storage
type ReferenceDataRepository struct {
	mu sync.RWMutex

	orderables    []entities.Orderable
	orderablesMap map[uuid.UUID]int

	templates         map[uuid.UUID]*entities.RequisitionTemplate
	approvedProducts  map[uuid.UUID][]entities.ApprovedProduct
	reasons           []entities.StockAdjustmentReason
	periods           map[uuid.UUID]entities.ProcessingPeriod
	supervisoryNodes  map[uuid.UUID]entities.SupervisoryNode
	supplyLines       []entities.SupplyLine
	proofsOfDelivery  map[uuid.UUID]entities.ProofOfDelivery
	idealStockAmounts map[uuid.UUID]map[uuid.UUID]int
	stockOnHand       map[uuid.UUID]map[uuid.UUID]int
}

// NewReferenceDataRepository creates a new in-memory reference data repository
func NewReferenceDataRepository(expectedOrderables int) *ReferenceDataRepository {
	return &ReferenceDataRepository{
		orderables:        make([]entities.Orderable, 0, expectedOrderables),
		orderablesMap:     make(map[uuid.UUID]int, expectedOrderables),
		templates:         make(map[uuid.UUID]*entities.RequisitionTemplate),
		approvedProducts:  make(map[uuid.UUID][]entities.ApprovedProduct),
		periods:           make(map[uuid.UUID]entities.ProcessingPeriod),
		supervisoryNodes:  make(map[uuid.UUID]entities.SupervisoryNode),
		proofsOfDelivery:  make(map[uuid.UUID]entities.ProofOfDelivery),
		idealStockAmounts: make(map[uuid.UUID]map[uuid.UUID]int),
		stockOnHand:       make(map[uuid.UUID]map[uuid.UUID]int),
	}
}

// Verify interface compliance
var _ repositories.ReferenceDataRepository = (*ReferenceDataRepository)(nil)

// AddOrderable adds or replaces a catalog product
func (r *ReferenceDataRepository) AddOrderable(orderable entities.Orderable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index, exists := r.orderablesMap[orderable.ID]; exists {
		r.orderables[index] = orderable
		return
	}
	r.orderablesMap[orderable.ID] = len(r.orderables)
	r.orderables = append(r.orderables, orderable)
}

// LoadApprovedProducts registers the products approved for a program. Their
// orderables are added to the catalog.
func (r *ReferenceDataRepository) LoadApprovedProducts(programID uuid.UUID, products []entities.ApprovedProduct) {
	for _, product := range products {
		r.AddOrderable(product.Orderable)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvedProducts[programID] = append(r.approvedProducts[programID], products...)
}

// SaveTemplate stores the template for its program
func (r *ReferenceDataRepository) SaveTemplate(template *entities.RequisitionTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[template.ProgramID] = template
}

// LoadStockAdjustmentReasons adds reason definitions
func (r *ReferenceDataRepository) LoadStockAdjustmentReasons(reasons []entities.StockAdjustmentReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reasons...)
}

// AddProcessingPeriod adds a reporting period
func (r *ReferenceDataRepository) AddProcessingPeriod(period entities.ProcessingPeriod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[period.ID] = period
}

// AddSupervisoryNode adds a node of the approval hierarchy
func (r *ReferenceDataRepository) AddSupervisoryNode(node entities.SupervisoryNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supervisoryNodes[node.ID] = node
}

// AddSupplyLine adds a supply line
func (r *ReferenceDataRepository) AddSupplyLine(line entities.SupplyLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supplyLines = append(r.supplyLines, line)
}

// SetProofOfDelivery records the delivery of a requisition's order
func (r *ReferenceDataRepository) SetProofOfDelivery(requisitionID uuid.UUID, pod entities.ProofOfDelivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofsOfDelivery[requisitionID] = pod
}

// SetIdealStockAmounts sets a facility's ideal stock amounts by commodity type
func (r *ReferenceDataRepository) SetIdealStockAmounts(facilityID uuid.UUID, amounts map[uuid.UUID]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idealStockAmounts[facilityID] = copyQuantities(amounts)
}

// SetStockOnHand sets a facility's stock card balances by orderable
func (r *ReferenceDataRepository) SetStockOnHand(facilityID uuid.UUID, balances map[uuid.UUID]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stockOnHand[facilityID] = copyQuantities(balances)
}

// GetTemplate returns the program's template
func (r *ReferenceDataRepository) GetTemplate(_ context.Context, programID uuid.UUID) (*entities.RequisitionTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	template, exists := r.templates[programID]
	if !exists {
		return nil, fmt.Errorf("template for program %s: %w", programID, entities.ErrNotFound)
	}
	return template, nil
}

// GetApprovedProducts returns the products approved for the program
func (r *ReferenceDataRepository) GetApprovedProducts(_ context.Context, _ uuid.UUID, programID uuid.UUID) ([]entities.ApprovedProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.ApprovedProduct(nil), r.approvedProducts[programID]...), nil
}

// GetOrderable returns a catalog product
func (r *ReferenceDataRepository) GetOrderable(_ context.Context, id uuid.UUID) (*entities.Orderable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.orderablesMap[id]
	if !exists {
		return nil, fmt.Errorf("orderable %s: %w", id, entities.ErrNotFound)
	}
	orderable := r.orderables[index]
	return &orderable, nil
}

// GetAllOrderables returns the whole catalog in insertion order
func (r *ReferenceDataRepository) GetAllOrderables() []entities.Orderable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.Orderable(nil), r.orderables...)
}

// GetStockAdjustmentReasons returns every reason definition
func (r *ReferenceDataRepository) GetStockAdjustmentReasons(_ context.Context, _ uuid.UUID) ([]entities.StockAdjustmentReason, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.StockAdjustmentReason(nil), r.reasons...), nil
}

// GetProcessingPeriod returns a reporting period
func (r *ReferenceDataRepository) GetProcessingPeriod(_ context.Context, id uuid.UUID) (*entities.ProcessingPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	period, exists := r.periods[id]
	if !exists {
		return nil, fmt.Errorf("processing period %s: %w", id, entities.ErrNotFound)
	}
	return &period, nil
}

// GetSupervisoryNode returns a node of the approval hierarchy
func (r *ReferenceDataRepository) GetSupervisoryNode(_ context.Context, id uuid.UUID) (*entities.SupervisoryNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.supervisoryNodes[id]
	if !exists {
		return nil, fmt.Errorf("supervisory node %s: %w", id, entities.ErrNotFound)
	}
	return &node, nil
}

// GetSupplyLines returns the supply lines serving the node and program
func (r *ReferenceDataRepository) GetSupplyLines(_ context.Context, supervisoryNodeID, programID uuid.UUID) ([]entities.SupplyLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []entities.SupplyLine
	for _, line := range r.supplyLines {
		if line.SupervisoryNodeID == supervisoryNodeID && line.ProgramID == programID {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// GetProofOfDelivery returns the delivery record, or nil when there is none
func (r *ReferenceDataRepository) GetProofOfDelivery(_ context.Context, requisitionID uuid.UUID) (*entities.ProofOfDelivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pod, exists := r.proofsOfDelivery[requisitionID]
	if !exists {
		return nil, nil
	}
	return &pod, nil
}

// GetIdealStockAmounts returns the facility's ideal stock amounts
func (r *ReferenceDataRepository) GetIdealStockAmounts(_ context.Context, facilityID, _ uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyQuantities(r.idealStockAmounts[facilityID]), nil
}

// GetStockOnHand returns the facility's stock card balances
func (r *ReferenceDataRepository) GetStockOnHand(_ context.Context, facilityID, _ uuid.UUID) (map[uuid.UUID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyQuantities(r.stockOnHand[facilityID]), nil
}

func copyQuantities(source map[uuid.UUID]int) map[uuid.UUID]int {
	copied := make(map[uuid.UUID]int, len(source))
	for k, v := range source {
		copied[k] = v
	}
	return copied
}
