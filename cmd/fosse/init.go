package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/notebook"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create the catalog database and a starter notebook",
	Long: `Creates the catalog database if it does not exist and writes a starter
notebook into dir (default: the media root, else the working directory).
An existing notebook is never overwritten, so init can be run repeatedly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Root
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			dir = "."
		}
		dir, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}

		// Opening the catalog creates the schema.
		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Catalog ready at %s\n", cfg.DBFile)

		path := filepath.Join(dir, cfg.NotebookFilename)
		created, err := writeStarterNotebook(path, filepath.Base(dir))
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "Wrote starter notebook %s\n", path)
		} else {
			fmt.Fprintf(out, "Notebook %s already exists, left unchanged\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// writeStarterNotebook creates path exclusively. It reports false when a
// file is already there.
func writeStarterNotebook(path, name string) (bool, error) {
	data, err := notebook.Starter(name)
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create notebook: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, fmt.Errorf("write notebook: %w", err)
	}
	return true, f.Close()
}
