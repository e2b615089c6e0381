package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a scrape failure
type ErrorType string

const (
	// ErrorTypeElementNotFound means every pattern for a selector role
	// failed within its timeout
	ErrorTypeElementNotFound ErrorType = "element_not_found"
	// ErrorTypeSearchTimeout means the page never reached a recognizable
	// state after submitting a search
	ErrorTypeSearchTimeout ErrorType = "search_timeout"
	// ErrorTypeNoOpenableResult means the results list rendered but no
	// candidate could be opened
	ErrorTypeNoOpenableResult ErrorType = "no_openable_result"
	// ErrorTypeReviewsUnavailable means the profile is served in limited
	// view and carries no reviews
	ErrorTypeReviewsUnavailable ErrorType = "reviews_unavailable"
	// ErrorTypeParseIncomplete means a review card yielded some but not
	// all expected fields
	ErrorTypeParseIncomplete ErrorType = "parse_incomplete"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStorage represents document-store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	Role    string   // selector role involved, when applicable
	Tried   []string // patterns attempted, or fields missing
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	switch {
	case e.Err != nil && e.Role != "":
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Role, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
	case e.Role != "":
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Role, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable. Limited view is a
// property of the profile, not of the attempt, so it never retries.
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeElementNotFound:
		return true
	case ErrorTypeSearchTimeout:
		return true
	case ErrorTypeStorage, ErrorTypePublisher, ErrorTypeCache:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewElementNotFound records a role whose every pattern failed
func NewElementNotFound(role string, tried []string) *ScrapeError {
	return &ScrapeError{
		Type:    ErrorTypeElementNotFound,
		Role:    role,
		Tried:   tried,
		Message: fmt.Sprintf("no visible element after %d patterns", len(tried)),
		Time:    time.Now(),
	}
}

// NewSearchTimeout creates a new search timeout error
func NewSearchTimeout(message string) *ScrapeError {
	return New(ErrorTypeSearchTimeout, message, nil)
}

// NewNoOpenableResult creates an error for an unclickable results list
func NewNoOpenableResult(message string) *ScrapeError {
	return New(ErrorTypeNoOpenableResult, message, nil)
}

// NewReviewsUnavailable creates a limited-view error
func NewReviewsUnavailable(message string) *ScrapeError {
	return New(ErrorTypeReviewsUnavailable, message, nil)
}

// NewParseIncomplete records a card that yielded only some fields
func NewParseIncomplete(missing []string) *ScrapeError {
	return &ScrapeError{
		Type:    ErrorTypeParseIncomplete,
		Tried:   missing,
		Message: fmt.Sprintf("card missing fields: %v", missing),
		Time:    time.Now(),
	}
}

// NewCache creates a new cache error
func NewCache(message string, err error) *ScrapeError {
	return New(ErrorTypeCache, message, err)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, message, err)
}

// NewValidation creates a new validation error
func NewValidation(message string) *ScrapeError {
	return New(ErrorTypeValidation, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, message, err)
}

// IsRetryable reports whether err is worth another attempt. Unknown
// errors count as transient unless the context itself was cancelled.
func IsRetryable(err error) bool {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// IsType reports whether err is a ScrapeError of the given type
func IsType(err error, errType ErrorType) bool {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.Type == errType
	}
	return false
}
