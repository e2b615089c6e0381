package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/models"
	"jortega/reviewscout/pkg/errors"
	"jortega/reviewscout/services/cache"
	"jortega/reviewscout/services/publisher"
	"jortega/reviewscout/services/store"
)

// MockScraper implements the Scraper interface for testing
type MockScraper struct {
	listing  models.Listing
	reviews  []models.Review
	err      error
	calls    int
	lastArgs string
}

var _ Scraper = (*MockScraper)(nil)

func (m *MockScraper) Scrape(_ context.Context, query string, strategy models.Strategy) (models.Listing, []models.Review, error) {
	m.calls++
	m.lastArgs = query + "/" + string(strategy)
	return m.listing, m.reviews, m.err
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	trims    int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(_ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages = append(m.messages, messageCopy)
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trims++
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) stages(t *testing.T) []string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	stages := make([]string, 0, len(m.messages))
	for _, raw := range m.messages {
		var envelope publisher.ProgressEnvelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		stages = append(stages, envelope.Stage)
	}
	return stages
}

// MockLogger implements helpers.LoggerInterface for testing
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

var _ helpers.LoggerInterface = (*MockLogger)(nil)

func (m *MockLogger) LogError(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, source+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

// mockStore is an in-memory store.Store
type mockStore struct {
	mu         sync.Mutex
	businesses map[string]models.Business
	byQuery    map[string]string
	reviews    map[string][]models.ProcessedReview
	analyses   []models.ReviewAnalysis
	jobs       map[string]models.AnalysisJob
	nextID     int
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		businesses: make(map[string]models.Business),
		byQuery:    make(map[string]string),
		reviews:    make(map[string][]models.ProcessedReview),
		jobs:       make(map[string]models.AnalysisJob),
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) UpsertBusiness(_ context.Context, business models.Business) (models.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := helpers.Fold(business.Query)
	if id, ok := m.byQuery[key]; ok {
		business.ID = id
	} else {
		business.ID = m.id("biz")
		m.byQuery[key] = business.ID
	}
	m.businesses[business.ID] = business
	return business, nil
}

func (m *mockStore) GetBusiness(_ context.Context, id string) (models.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	business, ok := m.businesses[id]
	if !ok {
		return models.Business{}, store.ErrNotFound
	}
	return business, nil
}

func (m *mockStore) ListBusinesses(_ context.Context, _ store.Page) ([]models.Business, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Business, 0, len(m.businesses))
	for _, b := range m.businesses {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *mockStore) FindBusinessByQuery(_ context.Context, query string) (models.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byQuery[helpers.Fold(query)]
	if !ok {
		return models.Business{}, store.ErrNotFound
	}
	return m.businesses[id], nil
}

func (m *mockStore) UpsertReviews(_ context.Context, businessID string, reviews []models.ProcessedReview, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[businessID] = reviews
	return len(reviews), nil
}

func (m *mockStore) ListReviews(_ context.Context, businessID string, _ store.Page) ([]models.ProcessedReview, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reviews := m.reviews[businessID]
	return reviews, len(reviews), nil
}

func (m *mockStore) InsertAnalysis(_ context.Context, analysis models.ReviewAnalysis) (models.ReviewAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	analysis.ID = m.id("analysis")
	m.analyses = append(m.analyses, analysis)
	if business, ok := m.businesses[analysis.BusinessID]; ok {
		business.LatestAnalysisID = analysis.ID
		m.businesses[analysis.BusinessID] = business
	}
	return analysis, nil
}

func (m *mockStore) LatestAnalysis(_ context.Context, businessID string) (models.ReviewAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.analyses) - 1; i >= 0; i-- {
		if m.analyses[i].BusinessID == businessID {
			return m.analyses[i], nil
		}
	}
	return models.ReviewAnalysis{}, store.ErrNotFound
}

func (m *mockStore) ListAnalyses(_ context.Context, businessID string, _ store.Page) ([]models.ReviewAnalysis, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ReviewAnalysis, 0)
	for _, a := range m.analyses {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) CreateJob(_ context.Context, job models.AnalysisJob) (models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = m.id("job")
	}
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockStore) GetJob(_ context.Context, id string) (models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.AnalysisJob{}, store.ErrNotFound
	}
	return job, nil
}

func (m *mockStore) ListJobs(_ context.Context, _ models.JobStatus, _ store.Page) ([]models.AnalysisJob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AnalysisJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, len(out), nil
}

func (m *mockStore) ClaimNextJob(_ context.Context) (models.AnalysisJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, job := range m.jobs {
		if job.Status == models.JobQueued {
			job.Status = models.JobRunning
			job.Attempts++
			m.jobs[id] = job
			return job, true, nil
		}
	}
	return models.AnalysisJob{}, false, nil
}

func (m *mockStore) AppendJobEvent(_ context.Context, jobID string, event models.JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	job.Events = append(job.Events, event)
	m.jobs[jobID] = job
	return nil
}

func (m *mockStore) CompleteJob(_ context.Context, jobID, businessID, analysisID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	job.Status = models.JobDone
	job.BusinessID = businessID
	job.AnalysisID = analysisID
	m.jobs[jobID] = job
	return nil
}

func (m *mockStore) FailJob(_ context.Context, jobID string, message string, retry bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	if retry {
		job.Status = models.JobQueued
	} else {
		job.Status = models.JobFailed
	}
	job.Error = message
	m.jobs[jobID] = job
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

var _ cache.CacheService = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return value, nil
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return cache.ErrCacheMiss
	}
	delete(m.values, key)
	return nil
}

func newTestWorker(st store.Store, sc Scraper, pub publisher.Publisher, log *MockLogger, cooldown *cache.ScrapeCooldown) *Worker {
	return NewWorker(context.Background(), st, sc, pub, cooldown, log, 10*time.Millisecond, 2, 0)
}

func floatPtr(v float64) *float64 { return &v }

func TestWorkerRunJobHappyPath(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)

	sc := &MockScraper{
		listing: models.Listing{BusinessName: "Bar Manolo", Address: "Calle Mayor 1"},
		reviews: []models.Review{
			{ReviewID: "r1", Author: "Ana", Rating: floatPtr(5), RelativeTime: "2 days ago", Text: "Great"},
			{ReviewID: "r2", Author: "Luis", Rating: floatPtr(1), RelativeTime: "2 years ago", Text: "Bad"},
		},
	}

	job, err := st.CreateJob(context.Background(), models.AnalysisJob{
		Query:    "Bar Manolo Madrid",
		Source:   "google_maps",
		Strategy: models.StrategyScrollCopy,
	})
	require.NoError(t, err)
	claimed, ok, err := st.ClaimNextJob(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	w := newTestWorker(st, sc, pub, log, cooldown)
	w.runJob(claimed)

	finished, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, finished.Status)
	assert.NotEmpty(t, finished.BusinessID)
	assert.NotEmpty(t, finished.AnalysisID)

	business, err := st.GetBusiness(context.Background(), finished.BusinessID)
	require.NoError(t, err)
	assert.Equal(t, "Bar Manolo", business.Listing.BusinessName)
	assert.Equal(t, 3.0, business.Stats.AvgRating)
	assert.Equal(t, 2, business.ReviewCount)

	stored, _, err := st.ListReviews(context.Background(), business.ID, store.Page{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.BucketRecent, stored[0].TimeBucket)
	assert.Equal(t, models.BucketOld, stored[1].TimeBucket)

	stages := pub.stages(t)
	assert.Equal(t, []string{
		"analysis_started", "scraper_starting", "scrape_completed",
		"preprocess_completed", "analysis_ready", "db_persist_completed",
		"analysis_completed",
	}, stages)

	assert.True(t, cooldown.Active("Bar Manolo Madrid"))
	assert.Empty(t, log.errors)
}

func TestWorkerRetryableScrapeError(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)
	sc := &MockScraper{err: errors.NewSearchTimeout("search results never settled")}

	job, _ := st.CreateJob(context.Background(), models.AnalysisJob{Query: "Bar Manolo", Strategy: models.StrategyScrollCopy})
	claimed, _, _ := st.ClaimNextJob(context.Background())

	w := newTestWorker(st, sc, pub, log, cooldown)
	w.runJob(claimed)

	// First attempt is below the cap, so the job goes back to queued
	requeued, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, requeued.Status)
	assert.Contains(t, requeued.Error, "search results never settled")
	assert.Contains(t, pub.stages(t), "retry_queued")

	// Second attempt exhausts the cap and the job fails for good
	claimed, _, _ = st.ClaimNextJob(context.Background())
	w.runJob(claimed)

	failed, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, failed.Status)
}

func TestWorkerNonRetryableScrapeError(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)
	sc := &MockScraper{
		listing: models.Listing{BusinessName: "Bar Manolo"},
		err:     errors.NewReviewsUnavailable("profile shows the limited view"),
	}

	job, _ := st.CreateJob(context.Background(), models.AnalysisJob{Query: "Bar Manolo", Strategy: models.StrategyScrollCopy})
	claimed, _, _ := st.ClaimNextJob(context.Background())

	w := newTestWorker(st, sc, pub, log, cooldown)
	w.runJob(claimed)

	failed, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, failed.Status)

	// The listing extracted before the failure is still persisted
	business, err := st.FindBusinessByQuery(context.Background(), "Bar Manolo")
	require.NoError(t, err)
	assert.Equal(t, "Bar Manolo", business.Listing.BusinessName)
}

func TestWorkerCachedResult(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)
	sc := &MockScraper{}

	// Seed a previous run
	business, err := st.UpsertBusiness(context.Background(), models.Business{Query: "Bar Manolo"})
	require.NoError(t, err)
	_, err = st.InsertAnalysis(context.Background(), models.ReviewAnalysis{BusinessID: business.ID, OverallSentiment: "positive"})
	require.NoError(t, err)
	require.NoError(t, cooldown.Mark("Bar Manolo"))

	job, _ := st.CreateJob(context.Background(), models.AnalysisJob{Query: "Bar Manolo", Strategy: models.StrategyScrollCopy})
	claimed, _, _ := st.ClaimNextJob(context.Background())

	w := newTestWorker(st, sc, pub, log, cooldown)
	w.runJob(claimed)

	finished, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, finished.Status)
	assert.Equal(t, business.ID, finished.BusinessID)
	assert.Zero(t, sc.calls, "cached result must not trigger a scrape")
	assert.Contains(t, pub.stages(t), "cache_hit")
}

func TestWorkerForceSkipsCooldown(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)
	sc := &MockScraper{listing: models.Listing{BusinessName: "Bar Manolo"}}

	require.NoError(t, cooldown.Mark("Bar Manolo"))

	_, _ = st.CreateJob(context.Background(), models.AnalysisJob{Query: "Bar Manolo", Force: true, Strategy: models.StrategyScrollCopy})
	claimed, _, _ := st.ClaimNextJob(context.Background())

	w := newTestWorker(st, sc, pub, log, cooldown)
	w.runJob(claimed)

	assert.Equal(t, 1, sc.calls, "forced job must scrape despite the cooldown")
}

func TestWorkerStartProcessesQueueAndStops(t *testing.T) {
	st := newMockStore()
	pub := &MockPublisher{}
	log := &MockLogger{}
	cooldown := cache.NewScrapeCooldown(newMemoryCache(), time.Minute)
	sc := &MockScraper{listing: models.Listing{BusinessName: "Bar Manolo"}}

	job, _ := st.CreateJob(context.Background(), models.AnalysisJob{Query: "Bar Manolo", Strategy: models.StrategyScrollCopy})

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(ctx, st, sc, pub, cooldown, log, 10*time.Millisecond, 1, 0)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	assert.Eventually(t, func() bool {
		j, err := st.GetJob(context.Background(), job.ID)
		return err == nil && j.Status == models.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	pub.mu.Lock()
	trims := pub.trims
	pub.mu.Unlock()
	assert.GreaterOrEqual(t, trims, 1)
}
