package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/teams-kdbx/internal/app"
	"github.com/tonimelisma/teams-kdbx/internal/storage"
)

// maxParallelStats bounds concurrent stat calls.
const maxParallelStats = 4

const localFilePerms = 0o600

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <url-or-path>...",
		Short: "Show the revision, size, and modification time of files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runStat,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <url-or-path> [local-path]",
		Short: "Download a database",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> <url-or-path>",
		Short: "Upload a database",
		Long: `Upload a database. With --rev the upload only succeeds while the remote
file is still at that revision.`,
		Args: cobra.ExactArgs(2),
		RunE: runPut,
	}

	cmd.Flags().String("rev", "", "expected remote revision (eTag)")
	cmd.Flags().Bool("force", false, "upload even if the file is not a KDBX database")

	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Print the Graph item path for a SharePoint file URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
}

// statOutput is the JSON schema for `stat --json`.
type statOutput struct {
	Path       string `json:"path"`
	Rev        string `json:"rev"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// runStat stats every argument concurrently. Each call authorizes and
// resolves on its own.
func runStat(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	s, err := NewSession(ctx, cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	stats := make([]storage.Stat, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelStats)

	for i, p := range args {
		g.Go(func() error {
			st, err := s.Provider(p).Stat(gctx, p)
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}

			stats[i] = st

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printStatJSON(cmd.OutOrStdout(), args, stats)
	}

	rows := make([][]string, len(args))
	for i, p := range args {
		rows[i] = []string{p, stats[i].Rev, formatSize(stats[i].Size), formatTime(stats[i].ModifiedAt)}
	}

	printTable(cmd.OutOrStdout(), []string{"PATH", "REV", "SIZE", "MODIFIED"}, rows)

	return nil
}

func printStatJSON(w io.Writer, paths []string, stats []storage.Stat) error {
	out := make([]statOutput, len(paths))
	for i, p := range paths {
		out[i] = statOutput{
			Path:       p,
			Rev:        stats[i].Rev,
			Size:       stats[i].Size,
			ModifiedAt: stats[i].ModifiedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	remote := args[0]

	local := localName(remote)
	if len(args) == 2 {
		local = args[1]
	}

	s, err := NewSession(ctx, cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	data, stat, err := s.Provider(remote).Load(ctx, remote)
	if err != nil {
		return err
	}

	if err := os.WriteFile(local, data, localFilePerms); err != nil {
		return fmt.Errorf("writing %s: %w", local, err)
	}

	cc.Logger.Debug("downloaded", "path", remote, "rev", stat.Rev)
	cc.Statusf("Downloaded %s (%s, rev %s)\n", local, formatSize(int64(len(data))), stat.Rev)

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	local, remote := args[0], args[1]
	rev, _ := cmd.Flags().GetString("rev")
	force, _ := cmd.Flags().GetBool("force")

	data, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("reading %s: %w", local, err)
	}

	if !force && !app.IsKDBX(data) {
		return fmt.Errorf("%s is not a KDBX database (use --force to upload anyway)", local)
	}

	s, err := NewSession(ctx, cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	stat, err := s.Provider(remote).Save(ctx, remote, data, rev)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printStatJSON(cmd.OutOrStdout(), []string{remote}, []storage.Stat{stat})
	}

	cc.Statusf("Uploaded %s (%s, rev %s)\n", remote, formatSize(stat.Size), stat.Rev)

	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	s, err := NewSession(ctx, cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.Teams.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), p.String())

	return nil
}

// localName is the last path segment of a remote URL or path.
func localName(remote string) string {
	if i := strings.IndexAny(remote, "?#"); i >= 0 {
		remote = remote[:i]
	}

	return path.Base(strings.TrimRight(remote, "/"))
}
