package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jortega/reviewscout/models"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	pub := NewRedisPublisher(ctx, "localhost:6379", 0, "test_reviewscout", 1, 100)
	defer pub.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	err = client.XGroupCreateMkStream(ctx, "test_reviewscout:0", "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		t.Fatal(err)
	}

	messages := make(chan string, 1)

	go func() {
		message, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{"test_reviewscout:0", ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		assert.NoError(t, err)
		messages <- message[0].Messages[0].Values["b64_job_progress"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	err = PublishJobEvent(pub, "job-1", models.JobEvent{
		Stage:   "scrape_completed",
		Message: "Scraping finished.",
	})
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		// The envelope is base64 encoded JSON
		raw, err := base64.StdEncoding.DecodeString(msg)
		require.NoError(t, err)

		var envelope ProgressEnvelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.Equal(t, "job-1", envelope.JobID)
		assert.Equal(t, "scrape_completed", envelope.Stage)
		assert.False(t, envelope.Time.IsZero())
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}
}
