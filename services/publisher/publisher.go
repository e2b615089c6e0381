package publisher

import (
	"encoding/json"
	"time"

	"jortega/reviewscout/models"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// progressKey is the stream field job progress envelopes are published under.
const progressKey = "b64_job_progress"

// ProgressEnvelope is the wire shape of one job progress update.
type ProgressEnvelope struct {
	JobID   string    `json:"job_id"`
	Stage   string    `json:"stage"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// PublishJobEvent publishes one job progress event through a Publisher.
func PublishJobEvent(p Publisher, jobID string, event models.JobEvent) error {
	when := event.Time
	if when.IsZero() {
		when = time.Now().UTC()
	}
	payload, err := json.Marshal(ProgressEnvelope{
		JobID:   jobID,
		Stage:   event.Stage,
		Message: event.Message,
		Time:    when,
	})
	if err != nil {
		return err
	}
	return p.Publish(progressKey, payload)
}
