package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/inkwash-dev/inkwash/internal/joblog"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		logPath   string
		chapterID string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize batch jobs from the job log",
		Long: `Reads the job log (YAML or Parquet, chosen by file extension) and prints
one row per batch job with its outcome, poll count and duration.`,
		Example: `  # Report on the configured job log
  inkwash report

  # Report on an exported Parquet log for one chapter
  inkwash report --log jobs.parquet --chapter 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath == "" {
				logPath = opts.cfg.JobLog.Path
			}
			if logPath == "" {
				return fmt.Errorf("no job log configured; pass --log")
			}

			jobs, err := joblog.Load(logPath)
			if err != nil {
				return err
			}
			if chapterID != "" {
				filtered := jobs[:0]
				for _, j := range jobs {
					if j.ChapterID == chapterID {
						filtered = append(filtered, j)
					}
				}
				jobs = filtered
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
			fmt.Fprintln(cmd.OutOrStdout(), summarizeJobs(jobs))
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "Job log path (default from config)")
	cmd.Flags().StringVar(&chapterID, "chapter", "", "Only show jobs for this chapter")

	return cmd
}

func renderJobs(jobs []models.TranslationJob) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		duration := "-"
		if !j.SubmittedAt.IsZero() && !j.FinishedAt.IsZero() {
			duration = j.FinishedAt.Sub(j.SubmittedAt).Round(time.Second).String()
		}
		submitted := "-"
		if !j.SubmittedAt.IsZero() {
			submitted = j.SubmittedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			j.ID,
			j.ChapterID,
			j.TargetLanguage,
			string(j.Status),
			strconv.Itoa(j.PollCount),
			submitted,
			duration,
			j.LastError,
		})
	}
	return renderTable(
		[]string{"Job", "Chapter", "Lang", "Status", "Polls", "Submitted", "Duration", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func summarizeJobs(jobs []models.TranslationJob) string {
	counts := make(map[models.JobStatus]int)
	for _, j := range jobs {
		counts[j.Status]++
	}
	return fmt.Sprintf("%d jobs: %d completed, %d failed, %d timed out, %d canceled",
		len(jobs), counts[models.JobCompleted], counts[models.JobFailed], counts[models.JobTimeout], counts[models.JobCanceled])
}
