package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/core/cli/internal"
	"github.com/semlayer/semlayer/core/logger"
	"github.com/semlayer/semlayer/core/parser"
	"github.com/semlayer/semlayer/core/runtime"
)

var watch bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:           "start [path]",
	Short:         "Run the semlayer gateway",
	RunE:          startServer,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration file (default semlayer.yaml)")
	startCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides config file and PORT env var)")
	startCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG (overrides config file)")
	startCmd.Flags().BoolVarP(&verbose, "verbose", "", false, "Enable verbose logging (sets log level to DEBUG)")
	startCmd.Flags().StringVarP(&source, "source", "s", "", "Configuration as a YAML string (alternative to --file)")
	startCmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides SEMLAYER_LOG_TAGS env var")
	startCmd.Flags().BoolVar(&logFile, "log-file", false, "Also write logs to a file in $SEMLAYER_LOG_DIR (default <tmp>/semlayer/logs)")
	startCmd.Flags().BoolVar(&watch, "watch", false, "Watch the configuration and .env files and reload on changes")
}

func startServer(cmd *cobra.Command, args []string) error {
	if err := resolveConfigPathArg("start", args); err != nil {
		return err
	}
	if watch {
		return startServerWithWatch()
	}
	rt, err := PrepareRuntime()
	if err != nil {
		return err
	}
	return rt.Start()
}

// resolveConfigPathArg accepts a directory (holding semlayer.yaml) or a file
func resolveConfigPathArg(command string, args []string) error {
	log := logger.New(command)
	if len(args) == 0 {
		return nil
	}
	if source != "" {
		return log.Errorf("cannot combine path argument with --source")
	}
	if configFile != "" {
		return log.Errorf("cannot combine path argument with --file")
	}

	target := args[0]
	info, err := os.Stat(target)
	if err != nil {
		return log.Errorf("invalid %s path %q: %w", command, target, err)
	}

	if info.IsDir() {
		configFile = filepath.Join(target, internal.DefaultConfigFile)
		return nil
	}
	configFile = target
	return nil
}

func startServerWithWatch() error {
	log := logger.New("watch")

	if source != "" {
		return log.Errorf("--watch does not support --source; use a configuration file")
	}
	if configFile == "" {
		configFile = internal.DefaultConfigFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := newConfigWatcher(configFile, reloadDebounce)
	if err != nil {
		return log.Errorf("failed to watch %s: %w", configFile, err)
	}
	defer w.Close()
	go w.run(ctx)
	log.Infof("Watching %s for changes", configFile)

	rt, err := PrepareRuntime()
	if err != nil {
		return err
	}
	if err := rt.StartAsync(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return rt.Stop()
		case <-w.reloads:
			log.Infof("Changes detected, reloading")
			next, err := PrepareRuntime()
			if err != nil {
				log.Warnf("Reload failed, keeping current server running: %v", err)
				continue
			}
			// Both runtimes bind the same port, so the old one stops first.
			// Running jobs drain; job statuses survive only with the redis job store.
			if err := rt.Stop(); err != nil {
				return log.Errorf("failed to stop server for reload: %w", err)
			}
			if err := next.StartAsync(); err != nil {
				return log.Errorf("failed to start reloaded server: %w", err)
			}
			rt = next
			log.Successf("Server reloaded")
		}
	}
}

// applyLogFlags sets level, tag filter and log file from the flags before the
// config is read. It returns the log file path when --log-file is set.
func applyLogFlags() (string, error) {
	switch {
	case verbose:
		logger.SetLogLevel(logger.LogLevelDebug)
	case logLevel > 0:
		logger.SetLogLevel(logLevel)
	default:
		logger.SetLogLevel(logger.LogLevelInfo)
	}

	if tags := envOr("SEMLAYER_LOG_TAGS", "", logTags); tags != "" {
		logger.SetTagFilter(tags)
	}

	if !logFile {
		return "", nil
	}
	return logger.SetLogFile()
}

// PrepareRuntime loads and validates the configuration and builds a runtime
// ready to start
func PrepareRuntime() (*runtime.Runtime, error) {
	log := logger.New("main")

	filePath, err := applyLogFlags()
	if err != nil {
		return nil, log.Errorf("failed to initialize log file: %w", err)
	}
	if filePath != "" {
		log.Infof("Log file: %s", filePath)
	}

	cfg, loadFrom, err := loadConfiguration()
	if err != nil {
		return nil, err
	}
	if logLevel == 0 && !verbose {
		logger.SetLogLevel(internal.ResolveLogLevel(verbose, logLevel, cfg))
	}
	log.Infof("Configuration loaded from %s", loadFrom)
	logConfigSummary(log, cfg)

	rt, err := runtime.NewRuntime(cfg, internal.ResolvePort(port, cfg), runtime.WithVersion(GetVersion()))
	if err != nil {
		return nil, log.Errorf("failed to initialize runtime: %w", err)
	}
	log.Debugf("Runtime initialized, public URL %s", rt.BaseURL())
	return rt, nil
}

// loadConfiguration reads --source or the config file, loading .env files
// from the config file's directory first
func loadConfiguration() (*parser.Config, string, error) {
	log := logger.New("config")

	if source != "" {
		if configFile != "" {
			return nil, "", log.ConfigErrorf("cannot specify both --file and --source flags")
		}
		LoadEnvFiles(".")
		cfg, err := internal.LoadConfigFromString(source)
		if err != nil {
			return nil, "", log.ConfigErrorf("%w", err)
		}
		return cfg, "source", nil
	}

	if configFile == "" {
		configFile = internal.DefaultConfigFile
	}
	LoadEnvFiles(filepath.Dir(configFile))

	cfg, err := internal.LoadConfig(configFile)
	if err != nil {
		var verrs *parser.ValidationErrors
		if errors.As(err, &verrs) {
			err = fmt.Errorf("%w\n%s", err, verrs.Format())
		}
		return nil, "", log.ConfigErrorf("%w", err)
	}
	return cfg, configFile, nil
}

func logConfigSummary(log *logger.Logger, cfg *parser.Config) {
	if cfg.Name != "" {
		log.Debugf("Name: %s", cfg.Name)
	}
	log.Debugf("Projects: %s store", cfg.Projects.Driver)
	if len(cfg.Projects.Projects) > 0 {
		for _, p := range cfg.Projects.Projects {
			log.Debugf("  Project: %s (organization %s)", p.UUID, p.OrganizationUUID)
		}
	}
	log.Debugf("Jobs: %s store, ttl %s", cfg.Jobs.Store, cfg.Jobs.TTL)
	log.Debugf("Scheduler: %d worker(s), queue %d, job timeout %s", cfg.Scheduler.Workers, cfg.Scheduler.QueueSize, cfg.Scheduler.JobTimeout)
	log.Debugf("Results storage: %s", cfg.Storage.Backend)
	if cfg.RateLimit.Requests > 0 {
		log.Debugf("Rate limit: %d request(s) per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
}
