package cmd

import (
	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/core/logger"
	"github.com/semlayer/semlayer/core/parser"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:           "validate [path]",
	Short:         "Validate a semlayer configuration",
	RunE:          validateConfig,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration file (default semlayer.yaml)")
	validateCmd.Flags().StringVarP(&source, "source", "s", "", "Configuration as a YAML string (alternative to --file)")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	log := logger.New("validate")
	if err := resolveConfigPathArg("validate", args); err != nil {
		return err
	}

	cfg, loadFrom, err := loadConfiguration()
	if err != nil {
		return err
	}

	printValidationSummary(log, loadFrom, cfg)
	log.Successf("Configuration is valid: %s", loadFrom)
	return nil
}

func printValidationSummary(log *logger.Logger, loadFrom string, cfg *parser.Config) {
	log.Info("Validation report:")
	log.Infof("  root config: %s", loadFrom)
	if cfg.Name != "" {
		log.Infof("  name: %s", cfg.Name)
	}

	log.Infof("  project store: %s", cfg.Projects.Driver)
	if len(cfg.Projects.Projects) > 0 {
		log.Infof("  projects (%d):", len(cfg.Projects.Projects))
		for _, p := range cfg.Projects.Projects {
			conn := p.SemanticLayer.WithDefaults(cfg.SemanticLayer.Defaults())
			log.Infof("    - %s: %s", p.UUID, describeBackend(conn.DbtCloud.Configured(), conn.Cube.Configured()))
		}
	}

	defaults := cfg.SemanticLayer.Defaults()
	log.Infof("  default semantic layer: %s", describeBackend(defaults.DbtCloud.Configured(), defaults.Cube.Configured()))
	log.Infof("  job store: %s (ttl %s)", cfg.Jobs.Store, cfg.Jobs.TTL)
	log.Infof("  scheduler: %d worker(s), job timeout %s", cfg.Scheduler.Workers, cfg.Scheduler.JobTimeout)
	log.Infof("  results storage: %s", cfg.Storage.Backend)
	if cfg.RateLimit.Requests > 0 {
		log.Infof("  rate limit: %d request(s) per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		log.Info("  rate limit: disabled")
	}
}

// describeBackend names the client a project would use, dbt Cloud first
func describeBackend(dbtCloud, cube bool) string {
	switch {
	case dbtCloud:
		return "dbt Cloud"
	case cube:
		return "Cube"
	default:
		return "not configured"
	}
}
