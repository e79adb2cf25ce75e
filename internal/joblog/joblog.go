// Package joblog persists finished batch jobs to a YAML or Parquet file,
// chosen by the file extension.
package joblog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Entry is one job as written to the YAML log
type Entry struct {
	ID             string    `yaml:"id"`
	ChapterID      string    `yaml:"chapterid"`
	PageIDs        []string  `yaml:"pageids,omitempty"`
	TargetLanguage string    `yaml:"targetlanguage"`
	Force          bool      `yaml:"force"`
	Status         string    `yaml:"status"`
	PollCount      int       `yaml:"pollcount"`
	LastError      string    `yaml:"lasterror,omitempty"`
	SubmittedAt    time.Time `yaml:"submittedat"`
	FinishedAt     time.Time `yaml:"finishedat"`
}

// Document is the top-level YAML layout
type Document struct {
	Jobs []Entry `yaml:"jobs"`
}

type row struct {
	ID             string   `parquet:"id"`
	ChapterID      string   `parquet:"chapter_id"`
	PageIDs        []string `parquet:"page_ids,list"`
	TargetLanguage string   `parquet:"target_language"`
	Force          bool     `parquet:"force"`
	Status         string   `parquet:"status"`
	PollCount      int64    `parquet:"poll_count"`
	LastError      string   `parquet:"last_error"`
	SubmittedAtMs  int64    `parquet:"submitted_at_ms"`
	FinishedAtMs   int64    `parquet:"finished_at_ms"`
}

// writeMu serializes writers; readers see whole files because writes land by rename
var writeMu sync.Mutex

func format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".parquet":
		return "parquet", nil
	default:
		return "", fmt.Errorf("unsupported job log format: %s (supported: .yaml, .yml, .parquet)", ext)
	}
}

// Load reads every job in the log. A missing file yields no jobs.
func Load(path string) ([]models.TranslationJob, error) {
	kind, err := format(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if kind == "parquet" {
		return loadParquet(path)
	}
	return loadYAML(path)
}

// Save replaces the log with jobs
func Save(path string, jobs []models.TranslationJob) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	return save(path, jobs)
}

func save(path string, jobs []models.TranslationJob) error {
	kind, err := format(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create job log directory: %w", err)
		}
	}
	if kind == "parquet" {
		return writeAtomic(path, func(w io.Writer) error { return writeParquet(w, jobs) })
	}
	return writeAtomic(path, func(w io.Writer) error { return writeYAML(w, jobs) })
}

// writeAtomic writes to a temp file next to path and renames it into place
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp job log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp job log: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set job log permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace job log: %w", err)
	}
	return nil
}

// Append adds jobs to the log, replacing entries with the same ID
func Append(path string, jobs ...models.TranslationJob) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	existing, err := Load(path)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(existing))
	for i, job := range existing {
		index[job.ID] = i
	}
	for _, job := range jobs {
		if i, ok := index[job.ID]; ok {
			existing[i] = job
			continue
		}
		index[job.ID] = len(existing)
		existing = append(existing, job)
	}

	if err := save(path, existing); err != nil {
		return err
	}
	slog.Debug("Appended to job log", "path", path, "added", len(jobs), "total", len(existing))
	return nil
}

func loadYAML(path string) ([]models.TranslationJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job log: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse job log: %w", err)
	}
	jobs := make([]models.TranslationJob, 0, len(doc.Jobs))
	for _, e := range doc.Jobs {
		jobs = append(jobs, models.TranslationJob{
			ID:             e.ID,
			ChapterID:      e.ChapterID,
			PageIDs:        e.PageIDs,
			TargetLanguage: e.TargetLanguage,
			Force:          e.Force,
			Status:         models.JobStatus(e.Status),
			PollCount:      e.PollCount,
			LastError:      e.LastError,
			SubmittedAt:    e.SubmittedAt,
			FinishedAt:     e.FinishedAt,
		})
	}
	return jobs, nil
}

func writeYAML(w io.Writer, jobs []models.TranslationJob) error {
	doc := Document{Jobs: make([]Entry, 0, len(jobs))}
	for _, j := range jobs {
		doc.Jobs = append(doc.Jobs, Entry{
			ID:             j.ID,
			ChapterID:      j.ChapterID,
			PageIDs:        j.PageIDs,
			TargetLanguage: j.TargetLanguage,
			Force:          j.Force,
			Status:         string(j.Status),
			PollCount:      j.PollCount,
			LastError:      j.LastError,
			SubmittedAt:    j.SubmittedAt,
			FinishedAt:     j.FinishedAt,
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal job log: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write job log: %w", err)
	}
	return nil
}

func loadParquet(path string) ([]models.TranslationJob, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[row](pf)
	defer reader.Close()

	jobs := make([]models.TranslationJob, 0, pf.NumRows())
	rows := make([]row, 128)
	for {
		n, err := reader.Read(rows)
		for _, r := range rows[:n] {
			jobs = append(jobs, fromRow(r))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return jobs, nil
}

func writeParquet(w io.Writer, jobs []models.TranslationJob) error {
	rows := make([]row, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, toRow(j))
	}

	writer := parquet.NewGenericWriter[row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func toRow(j models.TranslationJob) row {
	return row{
		ID:             j.ID,
		ChapterID:      j.ChapterID,
		PageIDs:        j.PageIDs,
		TargetLanguage: j.TargetLanguage,
		Force:          j.Force,
		Status:         string(j.Status),
		PollCount:      int64(j.PollCount),
		LastError:      j.LastError,
		SubmittedAtMs:  unixMilli(j.SubmittedAt),
		FinishedAtMs:   unixMilli(j.FinishedAt),
	}
}

func fromRow(r row) models.TranslationJob {
	var pageIDs []string
	if len(r.PageIDs) > 0 {
		pageIDs = append(pageIDs, r.PageIDs...)
	}
	return models.TranslationJob{
		ID:             r.ID,
		ChapterID:      r.ChapterID,
		PageIDs:        pageIDs,
		TargetLanguage: r.TargetLanguage,
		Force:          r.Force,
		Status:         models.JobStatus(r.Status),
		PollCount:      int(r.PollCount),
		LastError:      r.LastError,
		SubmittedAt:    fromUnixMilli(r.SubmittedAtMs),
		FinishedAt:     fromUnixMilli(r.FinishedAtMs),
	}
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
