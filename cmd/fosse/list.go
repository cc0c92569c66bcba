package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/fosse-media/fosse/internal/di/providers"
	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/store"
)

var listFlags struct {
	genre    string
	subgenre string
	platform string
	title    string
	prefix   string
	limit    int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued videos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := startApp()
		if err != nil {
			return err
		}
		defer a.close()

		storeHandle := do.MustInvoke[*providers.StoreHandle](a.injector)
		page, err := storeHandle.ListVideos(cmd.Context(), store.VideoFilter{
			Genre:      listFlags.genre,
			Subgenre:   listFlags.subgenre,
			Platform:   listFlags.platform,
			Title:      listFlags.title,
			PathPrefix: listFlags.prefix,
		}, store.PaginationParams{Limit: listFlags.limit})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, page)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tGENRE\tSUBGENRE\tPLATFORM\tTITLE\tDURATION\tRECORDED")
		for _, v := range page.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				v.FilePath, dash(v.Genre), dash(v.Subgenre), dash(v.Platform), dash(v.Title),
				formatDuration(v.DurationSeconds), formatRecorded(v))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if page.HasMore {
			fmt.Fprintf(out, "\nshowing %d of %d videos, raise --limit to see more\n", len(page.Items), page.Total)
		}
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.genre, "genre", "", "only videos in this genre")
	f.StringVar(&listFlags.subgenre, "subgenre", "", "only videos in this subgenre")
	f.StringVar(&listFlags.platform, "platform", "", "only videos on this platform")
	f.StringVar(&listFlags.title, "title", "", "only videos with this title")
	f.StringVar(&listFlags.prefix, "prefix", "", "only videos under this directory")
	f.IntVar(&listFlags.limit, "limit", 50, "maximum number of videos")
	rootCmd.AddCommand(listCmd)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatRecorded(v *domain.Video) string {
	if v.RecordingDate == nil {
		return "-"
	}
	return v.RecordingDate.Format(domain.RecordingDateLayout)
}
