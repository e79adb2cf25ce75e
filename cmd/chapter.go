package cmd

import (
	"fmt"
	"strconv"

	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/spf13/cobra"
)

func newChapterCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chapter <chapter-id>",
		Short:   "Show a chapter's pages and their translation status",
		Example: `  inkwash chapter 42`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapter, err := opts.client().FetchChapter(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			title := chapter.Title
			if title == "" {
				title = chapter.ID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d pages)\n", title, chapter.AggregateStatus(), len(chapter.Pages))
			if chapter.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Last error: %s\n", chapter.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPages(chapter.Pages))
			return nil
		},
	}
	return cmd
}

func renderPages(pages []models.Page) string {
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{
			strconv.Itoa(p.Number),
			p.ID,
			string(p.Status),
			yesNo(p.Erased()),
			yesNo(p.TranslatedImageURL != ""),
		})
	}
	return renderTable(
		[]string{"#", "Page", "Status", "Erased", "Translated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
