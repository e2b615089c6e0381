package worker

import (
	"context"
	"time"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/internal/pipeline"
	"jortega/reviewscout/models"
	"jortega/reviewscout/pkg/errors"
	"jortega/reviewscout/services/cache"
	"jortega/reviewscout/services/publisher"
	"jortega/reviewscout/services/store"
)

// Worker claims queued analysis jobs and runs them end to end:
// scrape, preprocess, analyze, persist, publish progress.
type Worker struct {
	ctx          context.Context
	store        store.Store
	scraper      Scraper
	publisher    publisher.Publisher
	preprocessor *pipeline.Preprocessor
	analyzer     *pipeline.Analyzer
	cooldown     *cache.ScrapeCooldown
	log          helpers.LoggerInterface
	pollInterval time.Duration
	maxAttempts  int
	maxReviews   int
}

// NewWorker creates a new worker
func NewWorker(
	ctx context.Context,
	st store.Store,
	sc Scraper,
	pub publisher.Publisher,
	cooldown *cache.ScrapeCooldown,
	log helpers.LoggerInterface,
	pollInterval time.Duration,
	maxAttempts int,
	maxReviews int,
) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		ctx:          ctx,
		store:        st,
		scraper:      sc,
		publisher:    pub,
		preprocessor: pipeline.NewPreprocessor(),
		analyzer:     pipeline.NewAnalyzer(),
		cooldown:     cooldown,
		log:          log,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		maxReviews:   maxReviews,
	}
}

// Start polls the job queue until the context is cancelled
func (w *Worker) Start() error {
	for {
		job, ok, err := w.store.ClaimNextJob(w.ctx)
		if err != nil {
			w.log.LogError("JobClaim", err)
		} else if ok {
			start := time.Now()
			w.runJob(job)
			w.log.LogInfo("Job %s finished in %s", job.ID, time.Since(start))

			if err := w.publisher.TrimStreams(); err != nil {
				w.log.LogError("StreamTrimming", err)
			}
			continue
		}

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// runJob runs one claimed job. Failures either requeue the job (retryable
// scrape errors below the attempt cap) or mark it failed.
func (w *Worker) runJob(job models.AnalysisJob) {
	w.emit(job.ID, "analysis_started", "Analysis job started.")

	if job.Force {
		if err := w.cooldown.Clear(job.Query); err != nil {
			w.log.LogError("CooldownClear", err)
		}
	} else if w.cooldown.Active(job.Query) {
		if w.completeFromCache(job) {
			return
		}
	}

	w.emit(job.ID, "scraper_starting", "Starting browser and scraper.")
	listing, reviews, err := w.scraper.Scrape(w.ctx, job.Query, job.Strategy)
	if err != nil {
		w.failScrape(job, listing, err)
		return
	}
	if job.MaxReviews > 0 && len(reviews) > job.MaxReviews {
		reviews = reviews[:job.MaxReviews]
	} else if w.maxReviews > 0 && len(reviews) > w.maxReviews {
		reviews = reviews[:w.maxReviews]
	}
	w.emit(job.ID, "scrape_completed", "Scraping finished.")

	processed := w.preprocessor.Process(job.Source, reviews)
	stats := w.preprocessor.ComputeStats(processed)
	w.emit(job.ID, "preprocess_completed", "Preprocessing completed.")

	businessName := listing.BusinessName
	if businessName == "" {
		businessName = job.Query
	}
	analysis := w.analyzer.Analyze(businessName, stats)
	w.emit(job.ID, "analysis_ready", "Review analysis completed.")

	business, err := w.store.UpsertBusiness(w.ctx, models.Business{
		Query:       job.Query,
		Source:      job.Source,
		Listing:     listing,
		Stats:       stats,
		ReviewCount: len(processed),
		LastScraped: time.Now().UTC(),
	})
	if err != nil {
		w.fail(job, "persist business: "+err.Error(), false)
		return
	}

	if _, err := w.store.UpsertReviews(w.ctx, business.ID, processed, time.Now().UTC()); err != nil {
		w.fail(job, "persist reviews: "+err.Error(), false)
		return
	}

	analysis.BusinessID = business.ID
	analysis, err = w.store.InsertAnalysis(w.ctx, analysis)
	if err != nil {
		w.fail(job, "persist analysis: "+err.Error(), false)
		return
	}
	w.emit(job.ID, "db_persist_completed", "Data persisted.")

	if err := w.cooldown.Mark(job.Query); err != nil {
		w.log.LogError("CooldownMark", err)
	}

	if err := w.store.CompleteJob(w.ctx, job.ID, business.ID, analysis.ID); err != nil {
		w.log.LogError("JobComplete", err)
		return
	}
	w.emit(job.ID, "analysis_completed", "Analysis completed successfully.")
}

// completeFromCache finishes a non-forced job from the latest stored
// analysis. Returns false when there is nothing cached to return.
func (w *Worker) completeFromCache(job models.AnalysisJob) bool {
	business, err := w.store.FindBusinessByQuery(w.ctx, job.Query)
	if err != nil {
		return false
	}
	analysis, err := w.store.LatestAnalysis(w.ctx, business.ID)
	if err != nil {
		return false
	}

	w.emit(job.ID, "cache_hit", "Returning cached analysis result.")
	if err := w.store.CompleteJob(w.ctx, job.ID, business.ID, analysis.ID); err != nil {
		w.log.LogError("JobComplete", err)
		return true
	}
	w.emit(job.ID, "analysis_completed", "Analysis completed from cache.")
	return true
}

// failScrape handles a scrape error. A listing extracted before the
// failure is still persisted so the profile is not lost.
func (w *Worker) failScrape(job models.AnalysisJob, listing models.Listing, err error) {
	if listing.BusinessName != "" {
		if _, perr := w.store.UpsertBusiness(w.ctx, models.Business{
			Query:       job.Query,
			Source:      job.Source,
			Listing:     listing,
			LastScraped: time.Now().UTC(),
		}); perr != nil {
			w.log.LogError("PersistListing", perr)
		}
	}

	retry := errors.IsRetryable(err) && job.Attempts < w.maxAttempts
	w.fail(job, err.Error(), retry)
}

func (w *Worker) fail(job models.AnalysisJob, message string, retry bool) {
	if retry {
		w.emit(job.ID, "retry_queued", "Job requeued after retryable failure.")
	} else {
		w.emit(job.ID, "analysis_failed", message)
	}
	if err := w.store.FailJob(w.ctx, job.ID, message, retry); err != nil {
		w.log.LogError("JobFail", err)
	}
}

// emit appends a progress event to the job and publishes it. Progress
// errors must not affect the core flow.
func (w *Worker) emit(jobID, stage, message string) {
	event := models.JobEvent{Stage: stage, Message: message, Time: time.Now().UTC()}
	if err := w.store.AppendJobEvent(w.ctx, jobID, event); err != nil {
		w.log.LogError("JobEvent", err)
	}
	if err := publisher.PublishJobEvent(w.publisher, jobID, event); err != nil {
		w.log.LogError("JobProgress", err)
	}
}
