package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/di"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/scanner"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the configuration and every notebook under the media root",
	Long: `Parses every notebook under the media root and reports the ones that
fail. The catalog is not opened.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireRoot(); err != nil {
			return err
		}

		// Only the logger is needed; the catalog stays closed.
		injector := di.NewContainer(cfg)
		log, err := do.Invoke[*logger.Logger](injector)
		if err != nil {
			return err
		}
		defer log.Close()

		s := scanner.New(nil, nil, scanner.Options{
			NotebookFilename: cfg.NotebookFilename,
			VideoExtensions:  cfg.VideoExtensions,
			SkipHiddenDirs:   cfg.Scan.SkipHiddenDirs,
		}, log.Component("check"))

		ctx, stop := signalContext()
		defer stop()

		result, err := s.Check(ctx, cfg.Root)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := printJSON(out, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Root:        %s\n", result.Root)
			fmt.Fprintf(out, "Database:    %s\n", cfg.DBFile)
			fmt.Fprintf(out, "Directories: %d\n", result.Directories)
			fmt.Fprintf(out, "Notebooks:   %d\n", result.Notebooks)
			fmt.Fprintf(out, "Videos:      %d\n", result.Videos)
			for _, f := range result.Failures {
				fmt.Fprintf(out, "FAIL %s: %s\n", f.Path, f.Message)
			}
		}

		if !result.OK() {
			return fmt.Errorf("%d notebook(s) or directories could not be read", len(result.Failures))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
