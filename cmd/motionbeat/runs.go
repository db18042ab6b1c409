package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/motionbeat/internal/config"
	"github.com/kikiluvv/motionbeat/internal/storage"
)

var (
	runsLimit  int
	runsExport outputFlags
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored analysis runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.Store) error {
			runs, err := store.ListRuns(cmd.Context(), runsLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tINPUT\tFRAMES\tPEAKS\tTRUNCATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\n",
					r.ID[:min(8, len(r.ID))], r.CreatedAt.Local().Format(time.DateTime),
					filepath.Base(r.Input), r.Diagnostics.DecodedFrames, r.Peaks, r.Diagnostics.Truncated)
			}
			return w.Flush()
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run id]",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.Store) error {
			id, err := store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			run, table, err := store.LoadRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			printf(cmd, "input:     %s\n", run.Input)
			printf(cmd, "created:   %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			printf(cmd, "video:     %dx%d @ %.3f fps\n", run.Info.Width, run.Info.Height, run.Info.FPS)
			printSummary(cmd, run.ID, table)
			return nil
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export [run id]",
	Short: "Export a stored run's motion table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runsExport == (outputFlags{}) {
			return fmt.Errorf("nothing to export: pass --csv, --json, --plot or --html")
		}
		return withStore(cmd, func(store *storage.Store) error {
			id, err := store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			run, table, err := store.LoadRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeOutputs(run.Info, table, filepath.Base(run.Input), runsExport)
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run id]",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.Store) error {
			id, err := store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteRun(cmd.Context(), id); err != nil {
				return err
			}
			printf(cmd, "deleted %s\n", id)
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list (0 for all)")

	f := runsExportCmd.Flags()
	f.StringVar(&runsExport.csv, "csv", "", "write the motion table as CSV")
	f.StringVar(&runsExport.json, "json", "", "write the motion table as JSON")
	f.StringVar(&runsExport.plot, "plot", "", "write a score plot (png, svg or pdf)")
	f.StringVar(&runsExport.html, "html", "", "write an interactive HTML chart")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsExportCmd, runsDeleteCmd)
}

func withStore(cmd *cobra.Command, fn func(*storage.Store) error) error {
	store, err := openStore(config.FromContext(cmd.Context()))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
