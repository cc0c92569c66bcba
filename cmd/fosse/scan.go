package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the media root and update the catalog",
	Long: `Walks the media root, records every notebook and video, removes what
has disappeared and recomputes videos whose inherited configuration changed.
The catalog is updated in a single transaction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireRoot(); err != nil {
			return err
		}

		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signalContext()
		defer stop()

		s := do.MustInvoke[*scanner.Scanner](a.injector)
		result, err := s.Scan(ctx, cfg.Root)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printScanResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func printScanResult(w io.Writer, r *scanner.ScanResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scan %s of %s finished in %s\n", r.ScanID, r.Root, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "Videos\tadded %d\tupdated %d\tunchanged %d\tremoved %d\tskipped %d\tcascaded %d\n",
		r.Added, r.Updated, r.Unchanged, r.Removed, r.Skipped, r.Cascaded)
	fmt.Fprintf(tw, "Notebooks\tadded %d\tupdated %d\tremoved %d\tfailed %d\n",
		r.NotebooksAdded, r.NotebooksUpdated, r.NotebooksRemoved, r.NotebooksFailed)
	_ = tw.Flush()

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\n%d problem(s):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", e.Phase, e.Path, e.Message)
		}
	}
}
