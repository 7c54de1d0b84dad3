package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vsinha/requisition/pkg/application/dto"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/requisition/pkg/interfaces/cli/output"
)

var (
	showFacility  string
	showProgram   string
	showStatuses  []string
	showEmergency bool
	showPage      int
	showPageSize  int
)

func newShowCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Search requisitions stored in a sqlite database",
		Long: `Lists requisitions saved by earlier runs with --db, filtered by
facility, program, status and emergency flag, oldest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := showCriteria(cmd.Flags().Changed("emergency"))
			if err != nil {
				return err
			}
			return NewShowCommand(ShowConfig{
				DatabasePath: a.settings.DatabasePath,
				Criteria:     criteria,
				Logger:       a.logger,
				Output: output.Config{
					Format:    rootFormat,
					OutputDir: rootOutputDir,
					Verbose:   rootVerbose,
					Writer:    a.stdout,
				},
			}).Execute(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&showFacility, "facility", "", "Facility id")
	flags.StringVar(&showProgram, "program", "", "Program id")
	flags.StringSliceVar(&showStatuses, "status", nil, "Statuses to include, e.g. APPROVED,RELEASED")
	flags.BoolVar(&showEmergency, "emergency", false, "Only emergency (true) or regular (false) requisitions")
	flags.IntVar(&showPage, "page", 0, "Zero based page number")
	flags.IntVar(&showPageSize, "page-size", 0, "Page size; zero returns every match")
	return cmd
}

func showCriteria(emergencySet bool) (repositories.SearchCriteria, error) {
	criteria := repositories.SearchCriteria{Page: showPage, PageSize: showPageSize}

	var err error
	if showFacility != "" {
		if criteria.FacilityID, err = uuid.Parse(showFacility); err != nil {
			return criteria, fmt.Errorf("invalid --facility: %w", err)
		}
	}
	if showProgram != "" {
		if criteria.ProgramID, err = uuid.Parse(showProgram); err != nil {
			return criteria, fmt.Errorf("invalid --program: %w", err)
		}
	}
	for _, name := range showStatuses {
		status, err := entities.ParseRequisitionStatus(strings.TrimSpace(name))
		if err != nil {
			return criteria, fmt.Errorf("invalid --status: %w", err)
		}
		criteria.Statuses = append(criteria.Statuses, status)
	}
	if emergencySet {
		emergency := showEmergency
		criteria.Emergency = &emergency
	}
	return criteria, nil
}

// ShowConfig holds configuration for the show command
type ShowConfig struct {
	DatabasePath string
	Criteria     repositories.SearchCriteria
	Logger       logging.Logger
	Output       output.Config
}

// ShowCommand prints requisitions from a database
type ShowCommand struct {
	config ShowConfig
}

// NewShowCommand creates a new show command with the given configuration
func NewShowCommand(config ShowConfig) *ShowCommand {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	return &ShowCommand{config: config}
}

// Execute searches the database and writes the matches
func (c *ShowCommand) Execute(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.config.DatabasePath == "" {
		return fmt.Errorf("validation error: a database path is required (--db or database_path)")
	}

	db, err := sqlite.Open(ctx, c.config.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	page, err := sqlite.NewRequisitionRepository(db).Search(ctx, c.config.Criteria)
	if err != nil {
		return err
	}
	c.config.Logger.Debug("requisitions found",
		logging.Int("total", page.TotalElements),
		logging.Int("page_items", len(page.Items)))

	summaries := make([]*dto.RequisitionSummary, 0, len(page.Items))
	for _, r := range page.Items {
		summary, err := dto.NewRequisitionSummary(r, nil)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}
	return output.Generate(summaries, c.config.Output)
}
