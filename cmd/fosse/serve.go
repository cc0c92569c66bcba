package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/di/providers"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	Long: `Starts the HTTP API. When scan.schedule is set the media root is also
rescanned on that cron schedule, and --watch rescans it on file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := do.Invoke[*providers.HTTPServerHandle](a.injector); err != nil {
			return err
		}
		if _, err := do.Invoke[*providers.SchedulerHandle](a.injector); err != nil {
			return err
		}
		if serveWatch {
			if _, err := do.Invoke[*providers.FileWatcherHandle](a.injector); err != nil {
				return err
			}
		}

		ctx, stop := signalContext()
		defer stop()
		<-ctx.Done()

		a.log.Info("shutting down")
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "listen port (default 8080)")
	f.String("schedule", "", `cron schedule for rescans, e.g. "@hourly"`)
	f.BoolVar(&serveWatch, "watch", false, "rescan when files under the root change")
	rootCmd.AddCommand(serveCmd)
}
