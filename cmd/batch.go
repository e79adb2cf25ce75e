package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwash-dev/inkwash/internal/batch"
	"github.com/inkwash-dev/inkwash/internal/joblog"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/spf13/cobra"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var (
		force   bool
		lang    string
		pageIDs []string
	)

	cmd := &cobra.Command{
		Use:   "batch <chapter-id>",
		Short: "Translate a whole chapter with the automatic pipeline",
		Long: `Submits a chapter to the server's automatic OCR, translate and inpaint pipeline
and polls the chapter until every page is translated, the server reports a
failure, or the polling time limit is reached.

Interrupting the command stops polling; the server keeps working on the job.
The outcome is appended to the job log.`,
		Example: `  # Translate every pending page of a chapter into English
  inkwash batch 42

  # Re-run an already translated chapter into French
  inkwash batch 42 --force --lang fr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			chapterID := args[0]
			if lang == "" {
				lang = cfg.Batch.TargetLanguage
			}

			client := opts.client()
			done := make(chan batch.Event, 1)
			poller := batch.NewPoller(client, client, batch.Config{
				Interval:    cfg.PollInterval(),
				MaxDuration: cfg.MaxDuration(),
				OnEvent: func(ev batch.Event) {
					done <- ev
				},
			})

			job, err := poller.Start(cmd.Context(), batch.Scope{
				ChapterID:      chapterID,
				PageIDs:        pageIDs,
				TargetLanguage: lang,
			}, force)
			if err != nil {
				if errors.Is(err, batch.ErrNothingPending) {
					fmt.Fprintf(cmd.OutOrStdout(), "Chapter %s has no pending pages; use --force to translate it again\n", chapterID)
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted chapter %s (job %s), polling every %s for up to %s\n",
				chapterID, job.ID, cfg.PollInterval(), cfg.MaxDuration())

			var ev batch.Event
			select {
			case ev = <-done:
			case <-cmd.Context().Done():
				if _, err := poller.Cancel(chapterID); err != nil && !errors.Is(err, batch.ErrNoJob) {
					slog.Warn("Failed to cancel polling", "chapter_id", chapterID, "err", err)
				}
				ev = <-done
			}

			if cfg.JobLog.Path != "" {
				if err := joblog.Append(cfg.JobLog.Path, ev.Job); err != nil {
					slog.Error("Failed to append job log", "path", cfg.JobLog.Path, "err", err)
				}
			}

			return reportOutcome(cmd, ev)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Submit even when every page is already translated")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Target language (default from config)")
	cmd.Flags().StringSliceVar(&pageIDs, "pages", nil, "Page IDs to record on the job (the server translates the whole chapter)")

	return cmd
}

func reportOutcome(cmd *cobra.Command, ev batch.Event) error {
	out := cmd.OutOrStdout()
	job := ev.Job
	elapsed := job.FinishedAt.Sub(job.SubmittedAt).Round(time.Second)

	switch job.Status {
	case models.JobCompleted:
		fmt.Fprintf(out, "Chapter %s translated after %d checks (%s)\n", job.ChapterID, job.PollCount, elapsed)
		if ev.Chapter != nil {
			fmt.Fprintln(out, renderPages(ev.Chapter.Pages))
		}
		return nil
	case models.JobCanceled:
		fmt.Fprintf(out, "Stopped polling chapter %s; the server may still finish the job\n", job.ChapterID)
		return nil
	case models.JobTimeout:
		return fmt.Errorf("chapter %s did not finish within %s; the server may still complete it", job.ChapterID, elapsed)
	default:
		return ev.Err
	}
}
