package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/di"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/logger"
)

var (
	configFile string
	jsonOutput bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "fosse",
	Short:         "Catalog a video library described by per-directory notebooks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	pf.String("root", "", "media root directory")
	pf.String("db-file", "", "catalog database file")
	pf.String("log-file", "", "also append logs to this file")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("env", "", "development, staging or production")
	pf.String("notebook-filename", "", "notebook file name looked for in every directory")
	pf.String("ffprobe-path", "", "ffprobe binary")
	pf.Int("workers", 0, "parallel metadata extractions per directory")
	pf.String("search-path", "", "full-text index directory (empty disables search)")
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(err)
	}
	return 0
}

// exitCode distinguishes a bad invocation from a failed run.
func exitCode(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeValidation, errors.CodeRootNotFound:
		return 2
	default:
		return 1
	}
}

// app is a bootstrapped container for one command invocation.
type app struct {
	injector *do.RootScope
	log      *logger.Logger
}

func startApp() (*app, error) {
	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return nil, err
	}
	return &app{
		injector: injector,
		log:      do.MustInvoke[*logger.Logger](injector),
	}, nil
}

func (a *app) close() {
	if err := a.injector.Shutdown(); err != nil {
		a.log.Error("shutdown error", "error", err)
	}
	_ = a.log.Close()
}

func requireRoot() error {
	if cfg.Root == "" {
		return errors.Validation("no media root: set root in " + config.DefaultFile + " or pass --root")
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
