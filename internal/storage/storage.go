package storage

import (
	"sort"
	"sync"

	"github.com/inkwash-dev/inkwash/internal/models"
)

// JobStore keeps the latest record of every batch translation job
type JobStore struct {
	jobs map[string]models.TranslationJob
	mu   sync.RWMutex
}

func New() *JobStore {
	return &JobStore{
		jobs: make(map[string]models.TranslationJob),
	}
}

func (s *JobStore) Get(jobID string) (models.TranslationJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	return job, exists
}

// Save inserts or replaces the record for job.ID
func (s *JobStore) Save(job models.TranslationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.PageIDs = append([]string(nil), job.PageIDs...)
	s.jobs[job.ID] = job
}

// GetAll returns every job, oldest submission first
func (s *JobStore) GetAll() []models.TranslationJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.TranslationJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result
}

// ForChapter returns the jobs of one chapter, oldest first
func (s *JobStore) ForChapter(chapterID string) []models.TranslationJob {
	var result []models.TranslationJob
	for _, job := range s.GetAll() {
		if job.ChapterID == chapterID {
			result = append(result, job)
		}
	}
	return result
}

func (s *JobStore) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
