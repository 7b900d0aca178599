package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/teams-kdbx/internal/config"
	"github.com/tonimelisma/teams-kdbx/internal/locale"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the persistent flag values.
type CLIFlags struct {
	ConfigPath  string
	DataDir     string
	Locale      string
	NativeHost  bool
	HostHandoff bool
	JSON        bool
	Verbose     bool
	Quiet       bool
}

// CLIContext is built once per invocation by the root pre-run and carried on
// the command's context.
type CLIContext struct {
	Flags   CLIFlags
	Cfg     *config.Config
	Logger  *slog.Logger
	Printer *locale.Printer
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext installed by the root pre-run. Every
// RunE executes after it, so a missing value is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("cli context not initialized")
	}

	return cc
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:   "teams-kdbx",
		Short: "Open KDBX databases stored in SharePoint and Teams",
		Long: `Open KDBX password databases kept in SharePoint document libraries
(the Files tab of a Microsoft Teams channel) or in OneDrive.

SharePoint files are addressed by their browser URL, e.g.
https://contoso.sharepoint.com/sites/IT/Accounts/IT.kdbx.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd, flags, os.Stderr)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.DataDir, "data-dir", "", "directory for the token store and file cache")
	pf.StringVar(&flags.Locale, "locale", "", "message language (en, de)")
	pf.BoolVar(&flags.NativeHost, "native-host", false, "running under a desktop launcher; disables auto-open")
	pf.BoolVar(&flags.HostHandoff, "host-handoff", false, "complete sign-in through the host pages instead of a direct popup")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext resolves configuration through the four-layer chain and
// builds the logger and message printer.
func newCLIContext(cmd *cobra.Command, flags CLIFlags, logOut io.Writer) (*CLIContext, error) {
	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	// Only explicitly set flags override lower layers.
	if cmd.Flags().Changed("data-dir") {
		cli.DataDir = &flags.DataDir
	}

	if cmd.Flags().Changed("native-host") {
		cli.NativeHost = &flags.NativeHost
	}

	if cmd.Flags().Changed("locale") {
		cli.Locale = &flags.Locale
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &CLIContext{
		Flags:   flags,
		Cfg:     cfg,
		Logger:  buildLogger(cfg.LoggingConfig, flags, logOut),
		Printer: locale.New(cfg.Locale),
	}, nil
}

// buildLogger creates the logger. The config-file level is the baseline;
// --verbose and --quiet override it. Format "auto" writes text to a terminal
// and JSON otherwise.
func buildLogger(lc config.LoggingConfig, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo

	switch lc.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(lc.LogFormat, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func useJSONLogs(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
