package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/models"
)

// PostgresStore implements Store on top of Postgres
type PostgresStore struct {
	db          *sql.DB
	maxPageSize int
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool and makes sure the schema exists
func NewPostgresStore(dsn string, maxPageSize int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db, maxPageSize: maxPageSize}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			query_normalized TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT 'google_maps',
			listing JSONB NOT NULL DEFAULT '{}',
			stats JSONB NOT NULL DEFAULT '{}',
			review_count INT NOT NULL DEFAULT 0,
			latest_analysis_id TEXT,
			last_scraped_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL REFERENCES businesses(id),
			fingerprint TEXT NOT NULL,
			review_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'google_maps',
			author_name TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			relative_time TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			owner_reply TEXT NOT NULL DEFAULT '',
			owner_reply_relative_time TEXT NOT NULL DEFAULT '',
			photos JSONB NOT NULL DEFAULT '[]',
			has_text BOOLEAN NOT NULL DEFAULT FALSE,
			has_owner_reply BOOLEAN NOT NULL DEFAULT FALSE,
			time_bucket TEXT NOT NULL DEFAULT 'unknown',
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (business_id, fingerprint)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_business ON reviews(business_id);
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL REFERENCES businesses(id),
			overall_sentiment TEXT NOT NULL DEFAULT '',
			main_topics JSONB NOT NULL DEFAULT '[]',
			strengths JSONB NOT NULL DEFAULT '[]',
			weaknesses JSONB NOT NULL DEFAULT '[]',
			suggested_owner_reply TEXT NOT NULL DEFAULT '',
			stats JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_analyses_business ON analyses(business_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS analysis_jobs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'google_maps',
			strategy TEXT NOT NULL DEFAULT 'scroll_copy',
			force BOOLEAN NOT NULL DEFAULT FALSE,
			max_reviews INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'queued',
			attempts INT NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			business_id TEXT NOT NULL DEFAULT '',
			analysis_id TEXT NOT NULL DEFAULT '',
			events JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON analysis_jobs(status, created_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertBusiness(ctx context.Context, business models.Business) (models.Business, error) {
	listingJSON, err := json.Marshal(business.Listing)
	if err != nil {
		return models.Business{}, fmt.Errorf("marshal listing: %w", err)
	}
	statsJSON, err := json.Marshal(business.Stats)
	if err != nil {
		return models.Business{}, fmt.Errorf("marshal stats: %w", err)
	}

	id := business.ID
	if id == "" {
		id = uuid.NewString()
	}
	source := business.Source
	if source == "" {
		source = "google_maps"
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO businesses (id, query, query_normalized, source, listing, stats, review_count, last_scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (query_normalized) DO UPDATE
		SET
			query = EXCLUDED.query,
			source = EXCLUDED.source,
			listing = EXCLUDED.listing,
			stats = EXCLUDED.stats,
			review_count = EXCLUDED.review_count,
			last_scraped_at = EXCLUDED.last_scraped_at,
			updated_at = NOW()
		RETURNING id, query, source, listing, stats, review_count,
			COALESCE(latest_analysis_id, ''), COALESCE(last_scraped_at, 'epoch'::timestamptz),
			created_at, updated_at`,
		id, business.Query, helpers.Fold(business.Query), source,
		listingJSON, statsJSON, business.ReviewCount, nullableTime(business.LastScraped),
	)
	return scanBusiness(row)
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (models.Business, error) {
	row := s.db.QueryRowContext(ctx, selectBusiness+` WHERE id = $1`, id)
	business, err := scanBusiness(row)
	if err == sql.ErrNoRows {
		return models.Business{}, ErrNotFound
	}
	return business, err
}

func (s *PostgresStore) FindBusinessByQuery(ctx context.Context, query string) (models.Business, error) {
	row := s.db.QueryRowContext(ctx, selectBusiness+` WHERE query_normalized = $1`, helpers.Fold(query))
	business, err := scanBusiness(row)
	if err == sql.ErrNoRows {
		return models.Business{}, ErrNotFound
	}
	return business, err
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, page Page) ([]models.Business, int, error) {
	page = page.normalized(s.maxPageSize)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count businesses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		selectBusiness+` ORDER BY updated_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Size, page.offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]models.Business, 0, page.Size)
	for rows.Next() {
		business, err := scanBusiness(rows)
		if err != nil {
			return nil, 0, err
		}
		businesses = append(businesses, business)
	}
	return businesses, total, rows.Err()
}

const selectBusiness = `
	SELECT id, query, source, listing, stats, review_count,
		COALESCE(latest_analysis_id, ''), COALESCE(last_scraped_at, 'epoch'::timestamptz),
		created_at, updated_at
	FROM businesses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (models.Business, error) {
	var business models.Business
	var listingJSON, statsJSON []byte
	err := row.Scan(
		&business.ID, &business.Query, &business.Source, &listingJSON, &statsJSON,
		&business.ReviewCount, &business.LatestAnalysisID, &business.LastScraped,
		&business.CreatedAt, &business.UpdatedAt,
	)
	if err != nil {
		return models.Business{}, err
	}
	if err := json.Unmarshal(listingJSON, &business.Listing); err != nil {
		return models.Business{}, fmt.Errorf("unmarshal listing: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &business.Stats); err != nil {
		return models.Business{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return business, nil
}

func (s *PostgresStore) UpsertReviews(ctx context.Context, businessID string, reviews []models.ProcessedReview, scrapedAt time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (
			id, business_id, fingerprint, review_id, source, author_name, rating,
			relative_time, text, owner_reply, owner_reply_relative_time, photos,
			has_text, has_owner_reply, time_bucket, scraped_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (business_id, fingerprint) DO UPDATE
		SET
			review_id = EXCLUDED.review_id,
			author_name = EXCLUDED.author_name,
			rating = EXCLUDED.rating,
			relative_time = EXCLUDED.relative_time,
			text = EXCLUDED.text,
			owner_reply = EXCLUDED.owner_reply,
			owner_reply_relative_time = EXCLUDED.owner_reply_relative_time,
			photos = EXCLUDED.photos,
			has_text = EXCLUDED.has_text,
			has_owner_reply = EXCLUDED.has_owner_reply,
			time_bucket = EXCLUDED.time_bucket,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare review upsert: %w", err)
	}
	defer stmt.Close()

	for i := range reviews {
		review := &reviews[i]
		photosJSON, merr := json.Marshal(review.Photos)
		if merr != nil {
			err = fmt.Errorf("marshal photos: %w", merr)
			return 0, err
		}
		if _, err = stmt.ExecContext(ctx,
			uuid.NewString(), businessID, review.Fingerprint(businessID),
			review.ReviewID, review.Source, review.Author, review.Rating,
			review.RelativeTime, review.Text, review.OwnerReply, review.OwnerReplyTime,
			photosJSON, review.HasText, review.HasOwnerReply, string(review.TimeBucket),
			scrapedAt,
		); err != nil {
			return 0, fmt.Errorf("upsert review: %w", err)
		}
	}

	var count int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE business_id = $1`, businessID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE businesses SET review_count = $2, updated_at = NOW() WHERE id = $1`,
		businessID, count,
	); err != nil {
		return 0, fmt.Errorf("update review count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, businessID string, page Page) ([]models.ProcessedReview, int, error) {
	page = page.normalized(s.maxPageSize)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE business_id = $1`, businessID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, source, author_name, rating, relative_time, text,
			owner_reply, owner_reply_relative_time, photos, has_text, has_owner_reply, time_bucket
		FROM reviews
		WHERE business_id = $1
		ORDER BY scraped_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		businessID, page.Size, page.offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.ProcessedReview, 0, page.Size)
	for rows.Next() {
		var review models.ProcessedReview
		var photosJSON []byte
		var bucket string
		if err := rows.Scan(
			&review.ReviewID, &review.Source, &review.Author, &review.Rating,
			&review.RelativeTime, &review.Text, &review.OwnerReply, &review.OwnerReplyTime,
			&photosJSON, &review.HasText, &review.HasOwnerReply, &bucket,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		if err := json.Unmarshal(photosJSON, &review.Photos); err != nil {
			return nil, 0, fmt.Errorf("unmarshal photos: %w", err)
		}
		review.TimeBucket = models.TimeBucket(bucket)
		reviews = append(reviews, review)
	}
	return reviews, total, rows.Err()
}

func (s *PostgresStore) InsertAnalysis(ctx context.Context, analysis models.ReviewAnalysis) (models.ReviewAnalysis, error) {
	topicsJSON, err := json.Marshal(analysis.MainTopics)
	if err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("marshal topics: %w", err)
	}
	strengthsJSON, err := json.Marshal(analysis.Strengths)
	if err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("marshal strengths: %w", err)
	}
	weaknessesJSON, err := json.Marshal(analysis.Weaknesses)
	if err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("marshal weaknesses: %w", err)
	}
	statsJSON, err := json.Marshal(analysis.Stats)
	if err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("marshal stats: %w", err)
	}

	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (id, business_id, overall_sentiment, main_topics, strengths, weaknesses, suggested_owner_reply, stats, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		analysis.ID, analysis.BusinessID, analysis.OverallSentiment,
		topicsJSON, strengthsJSON, weaknessesJSON, analysis.SuggestedOwnerReply,
		statsJSON, analysis.CreatedAt,
	); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("insert analysis: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE businesses SET latest_analysis_id = $2, stats = $3, updated_at = NOW() WHERE id = $1`,
		analysis.BusinessID, analysis.ID, statsJSON,
	); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("update latest analysis: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("commit transaction: %w", err)
	}
	return analysis, nil
}

func (s *PostgresStore) LatestAnalysis(ctx context.Context, businessID string) (models.ReviewAnalysis, error) {
	row := s.db.QueryRowContext(ctx,
		selectAnalysis+` WHERE business_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		businessID,
	)
	analysis, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return models.ReviewAnalysis{}, ErrNotFound
	}
	return analysis, err
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, businessID string, page Page) ([]models.ReviewAnalysis, int, error) {
	page = page.normalized(s.maxPageSize)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analyses WHERE business_id = $1`, businessID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		selectAnalysis+` WHERE business_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		businessID, page.Size, page.offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]models.ReviewAnalysis, 0, page.Size)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, total, rows.Err()
}

const selectAnalysis = `
	SELECT id, business_id, overall_sentiment, main_topics, strengths, weaknesses, suggested_owner_reply, stats, created_at
	FROM analyses`

func scanAnalysis(row rowScanner) (models.ReviewAnalysis, error) {
	var analysis models.ReviewAnalysis
	var topicsJSON, strengthsJSON, weaknessesJSON, statsJSON []byte
	err := row.Scan(
		&analysis.ID, &analysis.BusinessID, &analysis.OverallSentiment,
		&topicsJSON, &strengthsJSON, &weaknessesJSON, &analysis.SuggestedOwnerReply,
		&statsJSON, &analysis.CreatedAt,
	)
	if err != nil {
		return models.ReviewAnalysis{}, err
	}
	if err := json.Unmarshal(topicsJSON, &analysis.MainTopics); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("unmarshal topics: %w", err)
	}
	if err := json.Unmarshal(strengthsJSON, &analysis.Strengths); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal(weaknessesJSON, &analysis.Weaknesses); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("unmarshal weaknesses: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &analysis.Stats); err != nil {
		return models.ReviewAnalysis{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return analysis, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job models.AnalysisJob) (models.AnalysisJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	if job.Source == "" {
		job.Source = "google_maps"
	}
	if len(job.Events) == 0 {
		job.Events = []models.JobEvent{{Stage: "queued", Message: "Job queued.", Time: time.Now().UTC()}}
	}
	eventsJSON, err := json.Marshal(job.Events)
	if err != nil {
		return models.AnalysisJob{}, fmt.Errorf("marshal events: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO analysis_jobs (id, query, source, strategy, force, max_reviews, status, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+jobColumns,
		job.ID, job.Query, job.Source, string(job.Strategy), job.Force, job.MaxReviews,
		string(job.Status), eventsJSON,
	)
	return scanJob(row)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (models.AnalysisJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return models.AnalysisJob{}, ErrNotFound
	}
	return job, err
}

func (s *PostgresStore) ListJobs(ctx context.Context, status models.JobStatus, page Page) ([]models.AnalysisJob, int, error) {
	page = page.normalized(s.maxPageSize)

	where := ``
	args := []any{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, string(status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_jobs`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	args = append(args, page.Size, page.offset())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM analysis_jobs%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.AnalysisJob, 0, page.Size)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

func (s *PostgresStore) ClaimNextJob(ctx context.Context) (models.AnalysisJob, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE analysis_jobs
		SET status = 'running', attempts = attempts + 1, started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM analysis_jobs
			WHERE status = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return models.AnalysisJob{}, false, nil
	}
	if err != nil {
		return models.AnalysisJob{}, false, fmt.Errorf("claim job: %w", err)
	}
	return job, true, nil
}

func (s *PostgresStore) AppendJobEvent(ctx context.Context, jobID string, event models.JobEvent) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE analysis_jobs
		SET events = events || $2::jsonb, updated_at = NOW()
		WHERE id = $1`,
		jobID, eventJSON,
	)
	if err != nil {
		return fmt.Errorf("append job event: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID, businessID, analysisID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_jobs
		SET status = 'done', business_id = $2, analysis_id = $3, error = '',
			finished_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		jobID, businessID, analysisID,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, message string, retry bool) error {
	status := "failed"
	if retry {
		status = "queued"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_jobs
		SET status = $2, error = $3,
			finished_at = CASE WHEN $2 = 'failed' THEN NOW() ELSE finished_at END,
			updated_at = NOW()
		WHERE id = $1`,
		jobID, status, message,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

const jobColumns = `id, query, source, strategy, force, max_reviews, status, attempts, error, business_id, analysis_id, events, created_at, updated_at`

func scanJob(row rowScanner) (models.AnalysisJob, error) {
	var job models.AnalysisJob
	var strategy, status string
	var eventsJSON []byte
	err := row.Scan(
		&job.ID, &job.Query, &job.Source, &strategy, &job.Force, &job.MaxReviews,
		&status, &job.Attempts, &job.Error, &job.BusinessID, &job.AnalysisID,
		&eventsJSON, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return models.AnalysisJob{}, err
	}
	job.Strategy = models.Strategy(strategy)
	job.Status = models.JobStatus(status)
	if err := json.Unmarshal(eventsJSON, &job.Events); err != nil {
		return models.AnalysisJob{}, fmt.Errorf("unmarshal events: %w", err)
	}
	return job, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
