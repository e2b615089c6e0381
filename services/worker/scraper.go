package worker

import (
	"context"
	"fmt"

	"jortega/reviewscout/internal/browser"
	"jortega/reviewscout/internal/scraper"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/models"
	"jortega/reviewscout/services/proxy"
)

// Scraper runs one full extraction pass for a business query.
type Scraper interface {
	Scrape(ctx context.Context, query string, strategy models.Strategy) (models.Listing, []models.Review, error)
}

// BrowserScraper implements Scraper by launching a fresh Chrome process
// per pass, so one wedged page can never poison the next job.
type BrowserScraper struct {
	browserCfg browser.Config
	sessionCfg scraper.Config
	proxies    proxy.ProxyManager
	log        *logger.Logger
}

var _ Scraper = (*BrowserScraper)(nil)

// NewBrowserScraper creates a scraper. proxies may be nil to connect directly.
func NewBrowserScraper(browserCfg browser.Config, sessionCfg scraper.Config, proxies proxy.ProxyManager) *BrowserScraper {
	return &BrowserScraper{
		browserCfg: browserCfg,
		sessionCfg: sessionCfg,
		proxies:    proxies,
		log:        logger.Component("scraper"),
	}
}

func (b *BrowserScraper) Scrape(ctx context.Context, query string, strategy models.Strategy) (models.Listing, []models.Review, error) {
	browserCfg := b.browserCfg
	if b.proxies != nil {
		if info, err := b.proxies.GetFastestProxy(); err == nil {
			browserCfg.ProxyServer = fmt.Sprintf("socks5://%s:%d", info.Host, info.Port)
			b.log.Debug().Str("proxy", browserCfg.ProxyServer).Msg("Routing browser through proxy")
		} else {
			b.log.Warn().Err(err).Msg("No working proxy, connecting directly")
		}
	}

	page, err := browser.New(ctx, browserCfg)
	if err != nil {
		return models.Listing{}, nil, err
	}
	defer page.Close()

	session := scraper.NewSession(page, b.sessionConfig(strategy))
	result, err := session.Scrape(ctx, query)
	if result == nil {
		return models.Listing{}, nil, err
	}
	return result.Listing, result.Reviews, err
}

// sessionConfig applies the per-job strategy on top of the configured
// default. A job without a strategy keeps the session default.
func (b *BrowserScraper) sessionConfig(strategy models.Strategy) scraper.Config {
	cfg := b.sessionCfg
	if strategy != "" {
		cfg.Strategy = strategy
	}
	return cfg
}
