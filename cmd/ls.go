package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"zadapt/internal/adapter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	lsAll   bool
	lsMatch string
	lsHuman bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [uss-path]",
	Short: "List a USS directory",
	Long: `List the entries of a USS directory. Without a path the profile's
uss_home is listed.

Examples:
  zadapt ls                          # list uss_home
  zadapt ls /u/ibmuser --all         # include dot-files
  zadapt ls /u/ibmuser --match '*.{c,h}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "include entries starting with '.'")
	lsCmd.Flags().StringVar(&lsMatch, "match", "", "only show names matching this glob")
	lsCmd.Flags().BoolVarP(&lsHuman, "human", "H", false, "print sizes like 1.2 kB")
}

func runLs(cmd *cobra.Command, args []string) error {
	if lsMatch != "" && !doublestar.ValidatePattern(lsMatch) {
		return fmt.Errorf("invalid --match pattern: %s", lsMatch)
	}

	profile, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	path := profile.USSHome
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no path given and profile has no uss_home")
	}

	entries, err := newUSSAdapter(conn).List(cmd.Context(), path, lsAll)
	if err != nil {
		return err
	}
	entries = filterEntries(entries, lsMatch)

	return render(os.Stdout, entries, func(tw *tabwriter.Writer) { printEntries(tw, entries, lsHuman) })
}

// filterEntries keeps the entries whose name matches pattern. The pattern
// must already be valid.
func filterEntries(entries []adapter.UnixEntry, pattern string) []adapter.UnixEntry {
	if pattern == "" {
		return entries
	}
	kept := entries[:0:0]
	for _, e := range entries {
		if doublestar.MatchUnvalidated(pattern, e.Name) {
			kept = append(kept, e)
		}
	}
	return kept
}

func printEntries(tw *tabwriter.Writer, entries []adapter.UnixEntry, human bool) {
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			typeChar(e)+e.Permissions, e.User, e.Group, formatSize(e.Size, human),
			e.LastModified.Format("2006-01-02 15:04"), displayName(e))
	}
}

func typeChar(e adapter.UnixEntry) string {
	switch {
	case e.Symlink:
		return "l"
	case e.Directory:
		return "d"
	default:
		return "-"
	}
}

func displayName(e adapter.UnixEntry) string {
	name := e.Name
	if e.Directory {
		name += "/"
	}
	if e.Symlink {
		name += " -> " + e.LinkPath
	}
	return name
}

func formatSize(size int64, human bool) string {
	if human && size >= 0 {
		return humanize.Bytes(uint64(size))
	}
	return strconv.FormatInt(size, 10)
}
