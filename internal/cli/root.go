package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cn1tools/cn1update/internal/branding"
	"github.com/cn1tools/cn1update/internal/config"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/runlock"
	"github.com/cn1tools/cn1update/internal/updater"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbose bool
	noColor bool
)

// forceToken is the optional trailing argument that bypasses the refresh
// interval.
const forceToken = "force"

var rootCmd = &cobra.Command{
	Use:   branding.CLIName() + " [project...] [force]",
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps the shared Codename One toolchain in ~/.codenameone current
with the update server and copies the libraries into the given projects.

The remote manifest is consulted at most once per refresh interval (24h by
default); pass "force" as the last argument to check now.

  ` + branding.CLIName() + `                      # refresh the shared cache if due
  ` + branding.CLIName() + ` ~/MyApp              # ...and update ~/MyApp/lib
  ` + branding.CLIName() + ` ~/MyApp force        # check the server now`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupOutput(os.Stderr)
	},
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, statusError(err.Error()))
	}
	return err
}

func setupOutput(w *os.File) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	level := slog.LevelInfo
	if verbose || config.Get(config.KeyVerbose) == "true" {
		level = slog.LevelDebug
	}
	logging.SetDefault(logging.New(logging.Options{Level: level, Output: w}))
}

// parseArgs splits positional arguments into project paths and the force
// token, which is only recognized as the last argument.
func parseArgs(args []string) (projects []string, force bool) {
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], forceToken) {
		force = true
		args = args[:n-1]
	}
	return args, force
}

// selfPath resolves the running executable, following symlinks.
func selfPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		return resolved
	}
	return exe
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(buildVersion, selfPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	projects, force := parseArgs(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []updater.Option{updater.WithLogger(logging.Default())}
	if !verbose {
		opts = append(opts, updater.WithProgress(os.Stderr))
	}
	u, err := updater.New(cfg, opts...)
	if err != nil {
		return err
	}

	report, err := u.Run(cmd.Context(), projects, force)
	if errors.Is(err, runlock.ErrBusy) {
		fmt.Fprintln(cmd.ErrOrStderr(), statusWarning("Another update is already running; try again later."))
		return err
	}
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("update finished with errors")
	}
	return nil
}
