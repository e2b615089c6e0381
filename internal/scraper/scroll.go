package scraper

import (
	"context"
	"time"

	"jortega/reviewscout/internal/browser"
)

// ScrollParams bounds one convergence run. Zero values inherit the session
// configuration.
type ScrollParams struct {
	MaxRounds    int
	StableRounds int
	MinStepPx    int
	MaxStepPx    int
	MinPause     time.Duration
	MaxPause     time.Duration
}

func (p ScrollParams) withDefaults(cfg Config) ScrollParams {
	if p.MaxRounds <= 0 {
		p.MaxRounds = cfg.ScrollMaxRounds
	}
	if p.StableRounds < 2 {
		p.StableRounds = cfg.ScrollStableRounds
	}
	if p.MinStepPx <= 0 {
		p.MinStepPx = cfg.ScrollMinStepPx
	}
	if p.MaxStepPx < p.MinStepPx {
		p.MaxStepPx = cfg.ScrollMaxStepPx
	}
	if p.MaxStepPx < p.MinStepPx {
		p.MaxStepPx = p.MinStepPx
	}
	if p.MinPause < 150*time.Millisecond {
		p.MinPause = cfg.ScrollMinPause
	}
	if p.MaxPause < p.MinPause {
		p.MaxPause = cfg.ScrollMaxPause
	}
	if p.MaxPause < p.MinPause {
		p.MaxPause = p.MinPause
	}
	return p
}

// Converge scrolls the reviews feed until content stops loading. A round
// counts as unchanged only when neither geometry nor card count moved;
// termination needs both the stability signal and the feed reporting bottom,
// with maxRounds as the unconditional safety cap. Stagnation is a normal
// convergence signal here, never an error.
func (s *Session) Converge(ctx context.Context, params ScrollParams) (browser.FeedState, error) {
	p := params.withDefaults(s.cfg)

	lastCount := s.reviewCount(ctx)
	unchangedRounds := 0
	lastTop := -1
	lastHeight := -1
	var state browser.FeedState

	for round := 0; round < p.MaxRounds; round++ {
		step := s.randInt(p.MinStepPx, p.MaxStepPx)
		st, err := s.page.ScrollFeedStep(ctx, Patterns(RoleReviewCards), step)
		if err != nil {
			return state, err
		}
		if err := s.sleep(ctx, s.randDuration(p.MinPause, p.MaxPause)); err != nil {
			return state, err
		}

		count := s.reviewCount(ctx)
		countGrew := count > lastCount
		geometryChanged := st.ScrollTop != lastTop || st.ScrollHeight != lastHeight
		if countGrew {
			lastCount = count
		}

		if st.Scrolled || countGrew || geometryChanged {
			unchangedRounds = 0
		} else {
			unchangedRounds++
		}

		lastTop = st.ScrollTop
		lastHeight = st.ScrollHeight
		st.ReviewCount = lastCount
		state = st

		if st.AtBottom && unchangedRounds >= p.StableRounds {
			// Content commonly keeps trickling in after the visual bottom;
			// settle longer than a round pause and re-measure before
			// accepting convergence.
			if err := s.sleep(ctx, p.MaxPause+s.randDuration(300*time.Millisecond, 700*time.Millisecond)); err != nil {
				return state, err
			}
			if recount := s.reviewCount(ctx); recount > lastCount {
				lastCount = recount
				state.ReviewCount = recount
				unchangedRounds = 0
				continue
			}
			break
		}

		if !st.Found && unchangedRounds >= p.StableRounds {
			break
		}
	}

	return state, nil
}

// CollectSnapshot opens the reviews panel, scrolls to convergence, and
// returns the raw feed HTML. An empty string means the listing carries no
// reviews panel at all.
func (s *Session) CollectSnapshot(ctx context.Context, params ScrollParams) (string, error) {
	opened, err := s.EnsureReviewsOpen(ctx)
	if err != nil {
		return "", err
	}
	if !opened {
		return "", nil
	}

	if _, err := s.Converge(ctx, params); err != nil {
		return "", err
	}

	if err := s.sleep(ctx, s.randDuration(500*time.Millisecond, 1100*time.Millisecond)); err != nil {
		return "", err
	}
	return s.page.CaptureFeedHTML(ctx, Patterns(RoleReviewCards))
}

// ScrollReviews runs the light scroll used by the interactive strategy:
// expand truncated texts, nudge the feed, and stop after two stale rounds
func (s *Session) ScrollReviews(ctx context.Context, maxRounds int) error {
	if maxRounds <= 0 {
		return nil
	}

	opened, err := s.EnsureReviewsOpen(ctx)
	if err != nil {
		return err
	}
	if !opened {
		return nil
	}

	lastCount := s.reviewCount(ctx)
	staleRounds := 0

	for round := 0; round < maxRounds; round++ {
		if _, err := s.clickExpandButtons(ctx, 4); err != nil {
			return err
		}

		st, err := s.page.ScrollFeedStep(ctx, Patterns(RoleReviewCards), 0)
		if err != nil {
			return err
		}
		if err := s.sleep(ctx, 700*time.Millisecond); err != nil {
			return err
		}

		count := s.reviewCount(ctx)
		if count > lastCount {
			lastCount = count
			staleRounds = 0
		} else {
			staleRounds++
		}

		if staleRounds >= 2 || !(st.Found && st.Scrolled) {
			break
		}
	}

	return nil
}
