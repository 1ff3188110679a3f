package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/cn1tools/cn1update/internal/config"
	"github.com/cn1tools/cn1update/internal/ledger"
	"github.com/cn1tools/cn1update/internal/runlock"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show synced versions and refresh times",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := ledger.Load(cfg.LedgerPath())
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), cfg, l, time.Now())
		return nil
	},
}

func printStatus(w io.Writer, cfg *config.Config, l *ledger.Ledger, now time.Time) {
	fmt.Fprintf(w, "%s %s\n", bold("Cache:"), cfg.Home)
	fmt.Fprintf(w, "%s %s\n", bold("Last update:"), describeRefresh(l.LastUpdate, now, cfg.RefreshInterval))
	fmt.Fprintf(w, "%s %s\n", bold("Last skin update:"), describeRefresh(l.LastSkinUpdate, now, cfg.SkinRefreshInterval))

	if h, err := runlock.ReadHolder(cfg.LockPath()); err == nil {
		fmt.Fprintln(w, statusWarning(fmt.Sprintf("run %s (pid %d) in progress since %s",
			h.ID, h.PID, h.Started.Format(time.RFC3339))))
	} else if !os.IsNotExist(err) {
		fmt.Fprintln(w, statusWarning(fmt.Sprintf("unreadable run lock: %v", err)))
	}

	if len(l.Versions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Artifacts"))
		for _, key := range sortedKeys(l.Versions) {
			fmt.Fprintf(w, "  %-28s %s\n", key, l.Versions[key])
		}
	}
	if len(l.Resources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Skins"))
		paths := make([]string, 0, len(l.Resources))
		for p := range l.Resources {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(w, "  %-28s %d\n", p, l.Resources[p])
		}
	}
}

func describeRefresh(last, now time.Time, interval time.Duration) string {
	if last.IsZero() {
		return dim("never")
	}
	s := last.Local().Format(time.RFC1123)
	if ledger.Due(last, now, interval) {
		return s + " " + warning("(due)")
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
