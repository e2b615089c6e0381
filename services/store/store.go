package store

import (
	"context"
	"errors"
	"time"

	"jortega/reviewscout/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Page is a 1-based pagination window.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalized(maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// Store persists businesses, their reviews, analyses and the job queue.
type Store interface {
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// UpsertBusiness inserts or refreshes a business keyed by its
	// normalized query and returns the stored row.
	UpsertBusiness(ctx context.Context, business models.Business) (models.Business, error)
	GetBusiness(ctx context.Context, id string) (models.Business, error)
	ListBusinesses(ctx context.Context, page Page) ([]models.Business, int, error)
	FindBusinessByQuery(ctx context.Context, query string) (models.Business, error)

	// UpsertReviews writes processed reviews deduplicated by content
	// fingerprint and returns the business's stored review count.
	UpsertReviews(ctx context.Context, businessID string, reviews []models.ProcessedReview, scrapedAt time.Time) (int, error)
	ListReviews(ctx context.Context, businessID string, page Page) ([]models.ProcessedReview, int, error)

	InsertAnalysis(ctx context.Context, analysis models.ReviewAnalysis) (models.ReviewAnalysis, error)
	LatestAnalysis(ctx context.Context, businessID string) (models.ReviewAnalysis, error)
	ListAnalyses(ctx context.Context, businessID string, page Page) ([]models.ReviewAnalysis, int, error)

	CreateJob(ctx context.Context, job models.AnalysisJob) (models.AnalysisJob, error)
	GetJob(ctx context.Context, id string) (models.AnalysisJob, error)
	ListJobs(ctx context.Context, status models.JobStatus, page Page) ([]models.AnalysisJob, int, error)

	// ClaimNextJob atomically moves the oldest queued job to running.
	// The boolean is false when the queue is empty.
	ClaimNextJob(ctx context.Context) (models.AnalysisJob, bool, error)
	AppendJobEvent(ctx context.Context, jobID string, event models.JobEvent) error
	CompleteJob(ctx context.Context, jobID, businessID, analysisID string) error
	FailJob(ctx context.Context, jobID string, message string, retry bool) error

	Close() error
}
