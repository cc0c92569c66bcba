package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/di/providers"
	"github.com/fosse-media/fosse/internal/scanner"
)

var watchInitialScan bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan the media root whenever it changes",
	Long: `Watches the media root and runs a scan once changes to notebooks, videos
or directories have settled. Rescans are at least watch.min_interval apart.`,
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

		if watchInitialScan {
			s := do.MustInvoke[*scanner.Scanner](a.injector)
			result, err := s.Scan(ctx, cfg.Root)
			if err != nil {
				return err
			}
			printScanResult(cmd.OutOrStdout(), result)
		}

		if _, err := do.Invoke[*providers.FileWatcherHandle](a.injector); err != nil {
			return err
		}

		<-ctx.Done()
		a.log.Info("shutting down")
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", true, "scan once before watching")
	rootCmd.AddCommand(watchCmd)
}
