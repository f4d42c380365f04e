package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version stores the version string, set via SetVersion()
var version = "dev"

// SetVersion sets the version string (called from main.init())
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version string
func GetVersion() string {
	return version
}

var (
	configFile  string
	source      string
	port        string
	logLevel    int
	verbose     bool
	logTags     string
	logFile     bool
	showVersion bool

	// API client flags
	apiURL      string
	apiToken    string
	projectUUID string
	jsonOutput  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "semlayer",
	Short:         "semlayer\nSemantic viewer gateway for Cube and dbt Cloud",
	SilenceUsage:  true,
	SilenceErrors: true, // cli.Execute logs the error once under its tag
}

// completionCmd is a hidden command generating shell completions
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for semlayer.
Hidden from help.`,
	Hidden:       true,
	ValidArgs:    []string{"bash", "zsh", "fish", "powershell"},
	Args:         cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletion(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(completionCmd)
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print the installed version and exit")

	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "", "Gateway URL used by client commands (default $SEMLAYER_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Session token used by client commands (default $SEMLAYER_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&projectUUID, "project", "", "Project UUID used by client commands (default $SEMLAYER_PROJECT)")

	// Root command should only print help.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		}
		return cmd.Help()
	}
}

// envFileNames lists the env files read from one directory, most specific
// first. SEMLAYER_ENV=staging reads .env.staging instead of .env.development.
func envFileNames() []string {
	stage := os.Getenv("SEMLAYER_ENV")
	if stage == "" {
		stage = "development"
	}
	return []string{".env.local", ".env." + stage, ".env"}
}

func envSearchDirs(fromDir string) []string {
	var dirs []string
	if fromDir != "" {
		dirs = append(dirs, fromDir)
	}
	dirs = append(dirs, ".")
	if execPath, err := os.Executable(); err == nil {
		if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = realPath
		}
		dirs = append(dirs, filepath.Dir(execPath))
	}
	return dirs
}

// LoadEnvFiles loads the env files of the first directory that has any,
// trying fromDir, the working directory, then the executable's directory.
// Variables already in the environment are never overridden, and a more
// specific file wins over .env. It returns the files it loaded.
func LoadEnvFiles(fromDir string) []string {
	for _, dir := range envSearchDirs(fromDir) {
		var found []string
		for _, name := range envFileNames() {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
			}
		}
		if len(found) == 0 {
			continue
		}
		if err := godotenv.Load(found...); err == nil {
			return found
		}
	}
	return nil
}

// envOr returns flag when set, then the variable key, then fallback
func envOr(key, fallback, flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
