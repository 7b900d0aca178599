package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/teams-kdbx/internal/app"
	"github.com/tonimelisma/teams-kdbx/internal/autoopen"
	"github.com/tonimelisma/teams-kdbx/internal/launch"
	"github.com/tonimelisma/teams-kdbx/internal/locale"
)

// errOpenFailed is returned after the open-error alert has been printed.
var errOpenFailed = errors.New("open failed")

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <page-url>",
		Short: "Open the database named by a page URL's launch parameters",
		Long: `Open the database named by the storage and path parameters of a page URL,
for example:

  teams-kdbx open 'https://app.example/?storage=teams&path=https%3A%2F%2Fcontoso.sharepoint.com%2Fsites%2FIT%2FAccounts%2FIT.kdbx'

A teamsAuth=true parameter completes sign-in through the host pages. Nothing
happens when either parameter is missing or when running under a native host.`,
		Args: cobra.ExactArgs(1),
		RunE: runOpen,
	}
}

func runOpen(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	params, err := launch.Parse(args[0])
	if err != nil {
		return err
	}

	s, err := NewSession(ctx, cc, params)
	if err != nil {
		return err
	}
	defer s.Close()

	notifier := &cliNotifier{
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		printer: cc.Printer,
		json:    cc.Flags.JSON,
	}

	trigger := autoopen.New(s.Model, notifier, cc.Printer, cc.Cfg.NativeHost, cc.Logger)
	if !trigger.Run(ctx, params) {
		cc.Statusf("Nothing to open.\n")
		return nil
	}

	if notifier.failed {
		return errOpenFailed
	}

	return nil
}

// cliNotifier renders auto-open outcomes on the terminal.
type cliNotifier struct {
	out     io.Writer
	errOut  io.Writer
	printer *locale.Printer
	json    bool
	failed  bool
}

func (n *cliNotifier) Error(a autoopen.Alert) {
	n.failed = true

	fmt.Fprintf(n.errOut, "%s\n%s\n\n    %s\n", a.Header, a.Body, a.Pre)
}

// openedOutput is the JSON schema for `open --json`.
type openedOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Storage   string `json:"storage"`
	Path      string `json:"path"`
	Rev       string `json:"rev"`
	Size      int    `json:"size"`
	CachePath string `json:"cache_path"`
}

func (n *cliNotifier) Opened(f *app.OpenedFile) {
	if n.json {
		enc := json.NewEncoder(n.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(openedOutput{
			ID: f.ID, Name: f.Name, Storage: f.Storage, Path: f.Path,
			Rev: f.Rev, Size: f.Size, CachePath: f.CachePath,
		})

		return
	}

	fmt.Fprintln(n.out, n.printer.T(locale.FileOpened, f.Name, f.Size))
	fmt.Fprintf(n.out, "Cached at %s\n", f.CachePath)
}
