package main

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fosse-media/fosse/internal/di/providers"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Show the effective configuration of a file",
	Long: `Merges the catalogued notebooks on the file's ancestor directories, the
deepest winning per key, and prints the result with the contributing
directories. Only committed catalog state is read; run scan first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.close()

		storeHandle := do.MustInvoke[*providers.StoreHandle](a.injector)
		resolved, err := storeHandle.ResolveEffectiveConfig(cmd.Context(), path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]any{
				"path":    path,
				"config":  resolved.Merged(),
				"sources": resolved.Sources,
			})
		}

		fmt.Fprintf(out, "# %s\n", path)
		if resolved.IsEmpty() {
			fmt.Fprintln(out, "# no notebook applies")
			return nil
		}
		for _, src := range resolved.Sources {
			fmt.Fprintf(out, "# from %s\n", src)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(resolved.Merged()); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
