package joblog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/inkwash-dev/inkwash/internal/models"
)

func sampleJobs() []models.TranslationJob {
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.TranslationJob{
		{
			ID:             "job-1",
			ChapterID:      "ch1",
			PageIDs:        []string{"p2", "p5"},
			TargetLanguage: "en",
			Status:         models.JobCompleted,
			PollCount:      12,
			SubmittedAt:    submitted,
			FinishedAt:     submitted.Add(time.Minute),
		},
		{
			ID:             "job-2",
			ChapterID:      "ch2",
			TargetLanguage: "fr",
			Force:          true,
			Status:         models.JobTimeout,
			PollCount:      119,
			LastError:      "batch polling reached its time limit",
			SubmittedAt:    submitted,
			FinishedAt:     submitted.Add(10 * time.Minute),
		},
	}
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"jobs.yaml", "jobs.yml", "jobs.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := sampleJobs()

			if err := Save(path, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("Expected %d jobs, got %d", len(want), len(got))
			}
			for i := range want {
				w, g := want[i], got[i]
				if g.ID != w.ID || g.ChapterID != w.ChapterID || g.Status != w.Status || g.PollCount != w.PollCount {
					t.Errorf("Job %d mismatch: got %+v want %+v", i, g, w)
				}
				if g.Force != w.Force || g.LastError != w.LastError || g.TargetLanguage != w.TargetLanguage {
					t.Errorf("Job %d field mismatch: got %+v want %+v", i, g, w)
				}
				if !slices.Equal(g.PageIDs, w.PageIDs) {
					t.Errorf("Job %d pages: got %v want %v", i, g.PageIDs, w.PageIDs)
				}
				if !g.SubmittedAt.Equal(w.SubmittedAt) || !g.FinishedAt.Equal(w.FinishedAt) {
					t.Errorf("Job %d times: got %v/%v want %v/%v", i, g.SubmittedAt, g.FinishedAt, w.SubmittedAt, w.FinishedAt)
				}
			}
		})
	}
}

func TestAppendReplacesByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	jobs := sampleJobs()

	if err := Append(path, jobs[0]); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	updated := jobs[0]
	updated.PollCount = 20
	if err := Append(path, jobs[1], updated); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(got))
	}
	if got[0].ID != "job-1" || got[0].PollCount != 20 {
		t.Errorf("Expected job-1 replaced in place, got %+v", got[0])
	}
}

func TestLoadMissingAndUnsupported(t *testing.T) {
	dir := t.TempDir()

	jobs, err := Load(filepath.Join(dir, "absent.parquet"))
	if err != nil || len(jobs) != 0 {
		t.Errorf("Expected empty log for missing file, got %v, %v", jobs, err)
	}

	path := filepath.Join(dir, "jobs.csv")
	if err := os.WriteFile(path, []byte("id\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected unsupported format error")
	}
}

func TestConcurrentAppendKeepsEveryJob(t *testing.T) {
	for _, name := range []string{"jobs.yaml", "jobs.parquet"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, name)

			const writers = 20
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					job := sampleJobs()[0]
					job.ID = fmt.Sprintf("job-%02d", i)
					job.ChapterID = fmt.Sprintf("ch%d", i)
					errs <- Append(path, job)
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed after concurrent appends: %v", err)
			}
			if len(got) != writers {
				t.Errorf("Expected %d jobs, got %d", writers, len(got))
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("Expected only the log file to remain, got %d entries", len(entries))
			}
		})
	}
}
