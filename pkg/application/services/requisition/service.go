package requisition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services/permission"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
)

// Config holds the settings that apply to every requisition the service handles
type Config struct {
	Currency            entities.CurrencyUnit
	DefaultPricePerPack decimal.Decimal
	// SkipAuthorization makes Submit move straight to AUTHORIZED
	SkipAuthorization bool
	// UpdateStockDate lets edits change the physical stock count date
	UpdateStockDate bool
	// AveragePeriods overrides the template's number of periods to average when positive
	AveragePeriods int
}

// Actor is the user performing an operation together with their permissions
type Actor struct {
	UserID      uuid.UUID
	Permissions *permission.Service
}

// RequisitionService orchestrates the requisition lifecycle: it loads the
// aggregate and its reference data, checks permissions, applies the
// transition, saves with a version check and publishes the resulting event.
type RequisitionService struct {
	config        Config
	requisitions  repositories.RequisitionRepository
	referenceData repositories.ReferenceDataRepository
	events        events.Publisher
	logger        logging.Logger
	clock         func() time.Time
}

// Option configures a RequisitionService
type Option func(*RequisitionService)

// WithClock replaces the wall clock used for new requisitions and events
func WithClock(clock func() time.Time) Option {
	return func(s *RequisitionService) { s.clock = clock }
}

// WithEventStore publishes lifecycle events to the given store
func WithEventStore(store events.Publisher) Option {
	return func(s *RequisitionService) { s.events = store }
}

// WithLogger sets the service logger
func WithLogger(logger logging.Logger) Option {
	return func(s *RequisitionService) { s.logger = logger }
}

// NewRequisitionService creates a service over the given repositories
func NewRequisitionService(
	config Config,
	requisitions repositories.RequisitionRepository,
	referenceData repositories.ReferenceDataRepository,
	opts ...Option,
) *RequisitionService {
	if config.Currency == "" {
		config.Currency = entities.DefaultCurrency
	}
	s := &RequisitionService{
		config:        config,
		requisitions:  requisitions,
		referenceData: referenceData,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.events == nil {
		s.events = events.NewMemoryStore(s.logger)
	}
	s.logger = s.logger.With(logging.String("component", "requisition-service"))
	return s
}

// Get returns a requisition the actor may view
func (s *RequisitionService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*entities.Requisition, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, r, "view", actor.Permissions.CanViewRequisition); err != nil {
		return nil, err
	}
	return r, nil
}

// Search returns requisitions matching the criteria
func (s *RequisitionService) Search(ctx context.Context, criteria repositories.SearchCriteria) (repositories.Page, error) {
	page, err := s.requisitions.Search(ctx, criteria)
	if err != nil {
		return repositories.Page{}, fmt.Errorf("failed to search requisitions: %w", err)
	}
	return page, nil
}

// SearchApproved returns approved requisitions waiting to be converted to orders
func (s *RequisitionService) SearchApproved(ctx context.Context, criteria repositories.SearchCriteria) (repositories.Page, error) {
	criteria.Statuses = []entities.RequisitionStatus{entities.StatusApproved}
	return s.Search(ctx, criteria)
}

func (s *RequisitionService) load(ctx context.Context, id uuid.UUID) (*entities.Requisition, error) {
	r, err := s.requisitions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load requisition %s: %w", id, err)
	}
	r.SetClock(s.clock)
	return r, nil
}

func (s *RequisitionService) authorize(actor Actor, r *entities.Requisition, operation string, check func(*entities.Requisition) error) error {
	if actor.Permissions == nil {
		return &entities.ValidationError{Field: "actor", Reason: "actor has no permissions"}
	}
	if err := check(r); err != nil {
		s.logger.Warn("requisition operation denied",
			logging.String("operation", operation),
			logging.ID("requisition_id", r.ID),
			logging.Stringer("status", r.Status),
			logging.ID("user_id", actor.UserID),
			logging.Err(err))
		return err
	}
	return nil
}

// lineOrderables resolves the orderable of every line item
func (s *RequisitionService) lineOrderables(ctx context.Context, r *entities.Requisition) ([]entities.Orderable, error) {
	seen := make(map[uuid.UUID]bool, len(r.LineItems))
	orderables := make([]entities.Orderable, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		if seen[li.OrderableID] {
			continue
		}
		seen[li.OrderableID] = true
		orderable, err := s.referenceData.GetOrderable(ctx, li.OrderableID)
		if err != nil {
			return nil, fmt.Errorf("failed to load orderable %s: %w", li.OrderableID, err)
		}
		orderables = append(orderables, *orderable)
	}
	return orderables, nil
}

func (s *RequisitionService) template(ctx context.Context, programID uuid.UUID) (*entities.RequisitionTemplate, error) {
	template, err := s.referenceData.GetTemplate(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template for program %s: %w", programID, err)
	}
	if s.config.AveragePeriods > 0 {
		overridden := *template
		overridden.NumberOfPeriodsToAverage = s.config.AveragePeriods
		template = &overridden
	}
	return template, nil
}

// saveTransition persists r and publishes its status change
func (s *RequisitionService) saveTransition(ctx context.Context, r *entities.Requisition, previous entities.RequisitionStatus, authorID uuid.UUID) error {
	if err := s.requisitions.Save(ctx, r); err != nil {
		s.logger.Error("failed to save requisition",
			logging.ID("requisition_id", r.ID),
			logging.Stringer("status", r.Status),
			logging.Err(err))
		return fmt.Errorf("failed to save requisition %s: %w", r.ID, err)
	}

	s.logger.Info("requisition status changed",
		logging.ID("requisition_id", r.ID),
		logging.Stringer("from", previous),
		logging.Stringer("status", r.Status),
		logging.ID("author_id", authorID))

	event := events.NewStatusChangedEvent(r, previous, authorID, s.clock())
	if err := s.events.Publish(ctx, event); err != nil {
		// the transition is already persisted; notification failures are reported only
		s.logger.Warn("status change notification failed",
			logging.ID("requisition_id", r.ID),
			logging.Err(err))
	}
	return nil
}
