package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vsinha/requisition/pkg/application/dto"
	"github.com/vsinha/requisition/pkg/application/services/orchestration"
	"github.com/vsinha/requisition/pkg/application/services/requisition"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services/permission"
	"github.com/vsinha/requisition/pkg/infrastructure/config"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/requisition/pkg/interfaces/cli/output"
)

const (
	startDateLayout = "2006-01"
	// defaultAveragePeriods applies to CSV templates, which carry no averaging setting
	defaultAveragePeriods = 3
)

var (
	runScenarioDir string
	runStart       string
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a scenario through the requisition lifecycle",
		Long: `Loads products, adjustment reasons, the template and per period
entries from a scenario directory, then initiates, fills in, submits,
authorizes, approves and releases one requisition per monthly period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := time.Parse(startDateLayout, runStart)
			if err != nil {
				return fmt.Errorf("invalid --start %q (expected YYYY-MM): %w", runStart, err)
			}
			return NewRunCommand(RunConfig{
				ScenarioDir: runScenarioDir,
				StartDate:   start,
				Settings:    a.settings,
				Logger:      a.logger,
				Output: output.Config{
					Format:    rootFormat,
					OutputDir: rootOutputDir,
					Verbose:   rootVerbose,
					Writer:    a.stdout,
				},
			}).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&runScenarioDir, "scenario", "s", "", "Path to scenario directory containing CSV files")
	cmd.Flags().StringVar(&runStart, "start", "2025-01", "Month of the first period (YYYY-MM)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// RunConfig holds configuration for the run command
type RunConfig struct {
	ScenarioDir string
	StartDate   time.Time
	Settings    config.Config
	Logger      logging.Logger
	Output      output.Config
}

// RunCommand replays a CSV scenario
type RunCommand struct {
	config RunConfig
}

// NewRunCommand creates a new run command with the given configuration
func NewRunCommand(config RunConfig) *RunCommand {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	return &RunCommand{config: config}
}

// Execute runs the replay and writes the released requisitions
func (c *RunCommand) Execute(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	logger := c.config.Logger

	programID := uuid.New()
	scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioDir, programID)
	if err != nil {
		return fmt.Errorf("error loading scenario: %w", err)
	}
	logger.Info("scenario loaded",
		logging.String("dir", c.config.ScenarioDir),
		logging.Int("products", len(scenario.Products)),
		logging.Int("entries", len(scenario.Entries)),
		logging.Int("periods", scenario.Periods()))

	w, err := newWorld(scenario, c.config.Settings.Currency(), c.config.StartDate)
	if err != nil {
		return err
	}

	requisitions, closeStore, err := openRequisitions(ctx, c.config.Settings.DatabasePath)
	if err != nil {
		return err
	}
	defer closeStore()

	store := events.NewMemoryStore(logger)
	notifier := events.NewLoggingNotifier(logger)
	if _, err := store.Subscribe(
		events.NewStatusProcessor(notifier, notifier, notifier, logger),
		events.RequisitionStatusChangedEvent,
	); err != nil {
		return fmt.Errorf("failed to subscribe status processor: %w", err)
	}

	service := requisition.NewRequisitionService(serviceConfig(c.config.Settings), requisitions, w.referenceData,
		requisition.WithLogger(logger), requisition.WithEventStore(store))
	result, err := orchestration.NewReplayOrchestrator(service, w.referenceData, logger).Run(ctx, w.actor, w.request)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	summaries := make([]*dto.RequisitionSummary, 0, len(result.Requisitions))
	for _, r := range result.Requisitions {
		summary, err := dto.NewRequisitionSummary(r, w.orderables)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}

	out := c.config.Output
	out.ElapsedTime = result.Duration
	return output.Generate(summaries, out)
}

func (c *RunCommand) validateInputs() error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("scenario directory is required")
	}
	info, err := os.Stat(c.config.ScenarioDir)
	if err != nil {
		return fmt.Errorf("scenario directory does not exist: %s", c.config.ScenarioDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("scenario path is not a directory: %s", c.config.ScenarioDir)
	}
	return nil
}

func serviceConfig(settings config.Config) requisition.Config {
	return requisition.Config{
		Currency:            settings.Currency(),
		DefaultPricePerPack: settings.PricePerPack(),
		SkipAuthorization:   settings.SkipAuthorization,
		UpdateStockDate:     settings.UpdateStockDate,
		AveragePeriods:      settings.AveragePeriods,
	}
}

// openRequisitions returns a sqlite repository when a database path is set
// and an in-memory one otherwise
func openRequisitions(ctx context.Context, path string) (repositories.RequisitionRepository, func(), error) {
	if path == "" {
		return memory.NewRequisitionRepository(), func() {}, nil
	}
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewRequisitionRepository(db), func() { db.Close() }, nil
}

// world is the reference data a scenario runs against: one facility
// reporting to a single top level node supplied by one warehouse.
type world struct {
	referenceData *memory.ReferenceDataRepository
	orderables    map[uuid.UUID]entities.Orderable
	actor         requisition.Actor
	request       orchestration.ReplayRequest
}

func newWorld(scenario *csv.Scenario, currency entities.CurrencyUnit, start time.Time) (*world, error) {
	w := &world{
		referenceData: memory.NewReferenceDataRepository(len(scenario.Products)),
		orderables:    make(map[uuid.UUID]entities.Orderable, len(scenario.Products)),
		request: orchestration.ReplayRequest{
			FacilityID:        uuid.New(),
			ProgramID:         scenario.ProgramID,
			SupervisoryNodeID: uuid.New(),
			SupplyingDepotID:  uuid.New(),
		},
	}
	ref := w.referenceData
	req := &w.request

	var approved []entities.ApprovedProduct
	stock := make(map[uuid.UUID]int)
	for _, product := range scenario.Products {
		orderable := product.Orderable
		orderable.Programs = append([]entities.ProgramOrderable(nil), orderable.Programs...)
		for i, po := range orderable.Programs {
			if po.PricePerPack != nil {
				price := entities.NewMoney(po.PricePerPack.Amount, currency)
				orderable.Programs[i].PricePerPack = &price
			}
		}
		ref.AddOrderable(orderable)
		w.orderables[orderable.ID] = orderable
		if product.FullSupply() {
			approved = append(approved, entities.ApprovedProduct{
				ID:                uuid.New(),
				Orderable:         orderable,
				MaxPeriodsOfStock: product.MaxPeriodsOfStock,
			})
		}
		if product.StockOnHand != nil {
			stock[orderable.ID] = *product.StockOnHand
		}
	}
	ref.LoadApprovedProducts(req.ProgramID, approved)
	ref.SetStockOnHand(req.FacilityID, stock)
	template := *scenario.Template
	if template.NumberOfPeriodsToAverage == 0 {
		template.NumberOfPeriodsToAverage = defaultAveragePeriods
	}
	ref.SaveTemplate(&template)
	ref.LoadStockAdjustmentReasons(scenario.Reasons)

	ref.AddSupervisoryNode(entities.SupervisoryNode{ID: req.SupervisoryNodeID, Code: "SN-1", FacilityID: uuid.New()})
	ref.AddSupplyLine(entities.SupplyLine{
		ID:                  uuid.New(),
		SupervisoryNodeID:   req.SupervisoryNodeID,
		ProgramID:           req.ProgramID,
		SupplyingFacilityID: req.SupplyingDepotID,
	})

	for i := 0; i < scenario.Periods(); i++ {
		begin := start.AddDate(0, i, 0)
		period := entities.ProcessingPeriod{
			ID:               uuid.New(),
			Name:             begin.Format("Jan 2006"),
			StartDate:        begin,
			EndDate:          begin.AddDate(0, 1, -1),
			DurationInMonths: 1,
		}
		ref.AddProcessingPeriod(period)

		input := orchestration.PeriodInput{ProcessingPeriodID: period.ID}
		for _, entry := range scenario.EntriesFor(i) {
			line, err := lineEntry(scenario, entry)
			if err != nil {
				return nil, err
			}
			input.Lines = append(input.Lines, line)
		}
		req.Periods = append(req.Periods, input)
	}

	w.actor = operator(req.FacilityID, req.ProgramID, req.SupervisoryNodeID)
	return w, nil
}

func lineEntry(scenario *csv.Scenario, entry csv.Entry) (orchestration.LineEntry, error) {
	product, ok := scenario.ProductByCode(entry.ProductCode)
	if !ok {
		return orchestration.LineEntry{}, fmt.Errorf("unknown product_code %s", entry.ProductCode)
	}
	line := orchestration.LineEntry{
		OrderableID:                  product.Orderable.ID,
		BeginningBalance:             entry.BeginningBalance,
		TotalReceivedQuantity:        entry.TotalReceivedQuantity,
		StockOnHand:                  entry.StockOnHand,
		TotalConsumedQuantity:        entry.TotalConsumedQuantity,
		TotalStockoutDays:            entry.TotalStockoutDays,
		RequestedQuantity:            entry.RequestedQuantity,
		RequestedQuantityExplanation: entry.RequestedQuantityExplanation,
	}
	for _, adjustment := range entry.Adjustments {
		reason, ok := scenario.ReasonByName(adjustment.Reason)
		if !ok {
			return orchestration.LineEntry{}, fmt.Errorf("unknown adjustment reason %s", adjustment.Reason)
		}
		line.StockAdjustments = append(line.StockAdjustments, entities.StockAdjustment{
			ID:       uuid.New(),
			ReasonID: reason.ID,
			Quantity: adjustment.Quantity,
		})
	}
	return line, nil
}

// operator is a single user holding every right the replay needs
func operator(facilityID, programID, nodeID uuid.UUID) requisition.Actor {
	assignments := permission.UserAssignments{
		UserID: uuid.New(),
		Rights: []permission.RightAssignment{
			{Right: permission.RequisitionCreate, FacilityID: facilityID, ProgramID: programID},
			{Right: permission.RequisitionAuthorize, FacilityID: facilityID, ProgramID: programID},
			{Right: permission.RequisitionDelete, FacilityID: facilityID, ProgramID: programID},
			{Right: permission.OrdersEdit},
		},
		Roles: []permission.RoleAssignment{
			{Right: permission.RequisitionCreate, ProgramID: programID, FacilityID: facilityID},
			{Right: permission.RequisitionAuthorize, ProgramID: programID, FacilityID: facilityID},
			{Right: permission.RequisitionView, ProgramID: programID, FacilityID: facilityID},
			{Right: permission.RequisitionApprove, ProgramID: programID, SupervisoryNodeID: nodeID},
		},
	}
	return requisition.Actor{UserID: assignments.UserID, Permissions: permission.NewServiceForUser(assignments)}
}
