package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vsinha/requisition/pkg/infrastructure/config"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
)

var (
	rootConfigPath string
	rootLogLevel   string
	rootLogFormat  string
	rootDBPath     string
	rootFormat     string
	rootOutputDir  string
	rootVerbose    bool
)

// app carries what the persistent flags resolve to
type app struct {
	settings config.Config
	logger   logging.Logger
	stdout   io.Writer
}

// NewRootCommand builds the requisition command tree
func NewRootCommand() *cobra.Command {
	a := &app{logger: logging.NewNop()}

	root := &cobra.Command{
		Use:   "requisition",
		Short: "Replay and inspect facility requisitions",
		Long: `Drives requisitions through initiate, submit, authorize, approve and
release using facility reports from CSV files, and reports the results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "Path to a YAML settings file")
	flags.StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&rootLogFormat, "log-format", "", "Log format: console, json")
	flags.StringVar(&rootDBPath, "db", "", "Path to a sqlite database for requisitions")
	flags.StringVarP(&rootFormat, "format", "f", "text", "Output format: text, json, csv")
	flags.StringVarP(&rootOutputDir, "output", "o", "", "Output directory for results (optional)")
	flags.BoolVarP(&rootVerbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(newRunCommand(a), newShowCommand(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	settings, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}
	if rootLogLevel != "" {
		settings.LogLevel = rootLogLevel
	}
	if rootLogFormat != "" {
		settings.LogFormat = rootLogFormat
	}
	if rootDBPath != "" {
		settings.DatabasePath = rootDBPath
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(settings.Logging())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.settings = settings
	a.logger = logger
	a.stdout = cmd.OutOrStdout()
	return nil
}
