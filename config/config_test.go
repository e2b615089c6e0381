package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jortega/reviewscout/models"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 30*time.Minute, config.ScrapeCooldown)
	assert.Equal(t, 5*time.Second, config.JobPollInterval)
	assert.Equal(t, "scroll_copy", config.ReviewsStrategy)
	assert.Equal(t, 3400*time.Millisecond, config.MinClickDelay)

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")
	os.Setenv("POSTGRES_DSN", "postgres://app@db.example.com/reviews")
	os.Setenv("SCRAPE_COOLDOWN_SECONDS", "60")
	os.Setenv("SCRAPER_REVIEWS_STRATEGY", "interactive")
	os.Setenv("SCRAPER_MAX_REVIEWS", "50")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "postgres://app@db.example.com/reviews", config.PostgresDSN)
	assert.Equal(t, 60*time.Second, config.ScrapeCooldown)
	assert.Equal(t, "interactive", config.ReviewsStrategy)
	assert.Equal(t, 50, config.MaxReviews)

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
	os.Unsetenv("POSTGRES_DSN")
	os.Unsetenv("SCRAPE_COOLDOWN_SECONDS")
	os.Unsetenv("SCRAPER_REVIEWS_STRATEGY")
	os.Unsetenv("SCRAPER_MAX_REVIEWS")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	broken := config
	broken.PostgresDSN = ""
	assert.Error(t, broken.Validate())

	broken = config
	broken.MinClickDelay = 10 * time.Second
	assert.Error(t, broken.Validate())

	broken = config
	broken.RedisStreamCount = 0
	assert.Error(t, broken.Validate())

	broken = config
	broken.MaxReviews = 0
	assert.Error(t, broken.Validate())

	broken = config
	broken.ReviewsStrategy = "teleport"
	assert.Error(t, broken.Validate())
}

func TestDefaultStrategy(t *testing.T) {
	config := LoadConfig()
	assert.Equal(t, models.StrategyScrollCopy, config.DefaultStrategy())

	config.ReviewsStrategy = "interactive"
	assert.Equal(t, models.StrategyInteractive, config.DefaultStrategy())
}
