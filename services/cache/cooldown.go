package cache

import (
	"errors"
	"time"

	"jortega/reviewscout/helpers"
)

const cooldownKeyPrefix = "reviewscout:cooldown:"

// ScrapeCooldown keeps a per-business marker so the same profile is not
// scraped again while a previous result is still fresh. A forced job
// clears the marker explicitly.
type ScrapeCooldown struct {
	cache CacheService
	ttl   time.Duration
}

func NewScrapeCooldown(cache CacheService, ttl time.Duration) *ScrapeCooldown {
	return &ScrapeCooldown{cache: cache, ttl: ttl}
}

// Active reports whether the business is still inside its cooldown
// window. Cache errors count as inactive so an unreachable memcache
// never blocks scraping.
func (s *ScrapeCooldown) Active(businessName string) bool {
	_, err := s.cache.Get(s.key(businessName))
	return err == nil
}

// Mark starts the cooldown window for a business.
func (s *ScrapeCooldown) Mark(businessName string) error {
	return s.cache.Set(s.key(businessName), []byte("1"), s.ttl)
}

// Clear removes the cooldown marker, if any.
func (s *ScrapeCooldown) Clear(businessName string) error {
	err := s.cache.Delete(s.key(businessName))
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	return err
}

func (s *ScrapeCooldown) key(businessName string) string {
	return cooldownKeyPrefix + helpers.Fold(businessName)
}
