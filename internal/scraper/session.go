package scraper

import (
	"context"
	"math/rand"
	"time"

	"jortega/reviewscout/internal/browser"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/models"
)

const mapsHomeURL = "https://www.google.com/maps?hl=es"

// Config holds the externally supplied knobs for one extraction session.
// Zero values fall back to defaults tuned against the live page.
type Config struct {
	MapsURL string

	Timeout       time.Duration // per-element wait
	SearchTimeout time.Duration // deadline for the post-search state poll

	// Pacing. MinClickDelay is clamped to a floor above 3 s; the gap is
	// measured from the previous click, not slept unconditionally.
	MinClickDelay time.Duration
	MaxClickDelay time.Duration
	MinKeyDelay   time.Duration
	MaxKeyDelay   time.Duration

	Strategy models.Strategy

	// Scroll convergence
	ScrollMaxRounds    int
	ScrollStableRounds int
	ScrollMinStepPx    int
	ScrollMaxStepPx    int
	ScrollMinPause     time.Duration
	ScrollMaxPause     time.Duration
}

const minClickGapFloor = 3001 * time.Millisecond

func (c Config) withDefaults() Config {
	if c.MapsURL == "" {
		c.MapsURL = mapsHomeURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 2500 * time.Millisecond
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 15 * time.Second
	}
	if c.MinClickDelay < minClickGapFloor {
		c.MinClickDelay = minClickGapFloor
	}
	if c.MaxClickDelay < c.MinClickDelay {
		c.MaxClickDelay = c.MinClickDelay + 2100*time.Millisecond
	}
	if c.MinKeyDelay < 10*time.Millisecond {
		c.MinKeyDelay = 90 * time.Millisecond
	}
	if c.MaxKeyDelay < c.MinKeyDelay {
		c.MaxKeyDelay = c.MinKeyDelay + 170*time.Millisecond
	}
	if c.Strategy == "" {
		c.Strategy = models.StrategyScrollCopy
	}
	if c.ScrollMaxRounds <= 0 {
		c.ScrollMaxRounds = 180
	}
	if c.ScrollStableRounds < 2 {
		c.ScrollStableRounds = 6
	}
	if c.ScrollMinStepPx <= 0 {
		c.ScrollMinStepPx = 380
	}
	if c.ScrollMaxStepPx < c.ScrollMinStepPx {
		c.ScrollMaxStepPx = c.ScrollMinStepPx + 600
	}
	if c.ScrollMinPause < 150*time.Millisecond {
		c.ScrollMinPause = 750 * time.Millisecond
	}
	if c.ScrollMaxPause < c.ScrollMinPause {
		c.ScrollMaxPause = c.ScrollMinPause + 1150*time.Millisecond
	}
	return c
}

// Session drives one business lookup against one exclusively owned page.
// All pacing state (last click timestamp, RNG) is session-scoped so that
// concurrent sessions on independent pages cannot interfere.
type Session struct {
	page      browser.Page
	res       *Resolver
	cfg       Config
	rng       *rand.Rand
	lastClick time.Time
	log       *logger.Logger
}

// NewSession creates a session over a page handle the caller owns
func NewSession(page browser.Page, cfg Config) *Session {
	return &Session{
		page: page,
		res:  NewResolver(page),
		cfg:  cfg.withDefaults(),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		log:  logger.Component("scraper"),
	}
}

// Resolver exposes the session's element resolver
func (s *Session) Resolver() *Resolver {
	return s.res
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

func (s *Session) randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.Intn(max-min)
}

// enforceClickGap waits until the randomized minimum spacing since the last
// click has elapsed. The first click of a session uses a short warm-up pause.
func (s *Session) enforceClickGap(ctx context.Context) error {
	targetGap := s.randDuration(s.cfg.MinClickDelay, s.cfg.MaxClickDelay)
	if s.lastClick.IsZero() {
		return s.sleep(ctx, s.randDuration(450*time.Millisecond, 1100*time.Millisecond))
	}

	elapsed := time.Since(s.lastClick)
	if remaining := targetGap - elapsed; remaining > 0 {
		return s.sleep(ctx, remaining)
	}
	return nil
}

// humanClick clicks an element with the inter-click gap enforced
func (s *Session) humanClick(ctx context.Context, el Element) error {
	if err := s.enforceClickGap(ctx); err != nil {
		return err
	}
	if err := s.page.Click(ctx, el.Selector, el.Index); err != nil {
		return err
	}
	s.lastClick = time.Now()
	return nil
}

// humanClickDescendant clicks the first childSel descendant of el with the
// inter-click gap enforced
func (s *Session) humanClickDescendant(ctx context.Context, el Element, childSel string) error {
	if err := s.enforceClickGap(ctx); err != nil {
		return err
	}
	if err := s.page.DescendantClick(ctx, el.Selector, el.Index, childSel); err != nil {
		return err
	}
	s.lastClick = time.Now()
	return nil
}

// humanType clears the input then types text character by character with a
// randomized inter-keystroke delay and occasional longer pauses
func (s *Session) humanType(ctx context.Context, sel, text string) error {
	if err := s.page.ClearInput(ctx, sel); err != nil {
		return err
	}

	for _, ch := range text {
		if err := s.page.TypeChar(ctx, sel, ch); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.randDuration(s.cfg.MinKeyDelay, s.cfg.MaxKeyDelay)); err != nil {
			return err
		}
		if s.rng.Float64() < 0.1 {
			if err := s.sleep(ctx, s.randDuration(220*time.Millisecond, 700*time.Millisecond)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) reviewCount(ctx context.Context) int {
	coll, ok := s.res.Collection(ctx, RoleReviewCards)
	if !ok {
		return 0
	}
	return coll.Size
}
