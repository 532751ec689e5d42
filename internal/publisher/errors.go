package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies a publish failure. Auth and validation failures are
// permanent; everything else may be retried.
type Kind string

const (
	KindAuth        Kind = "auth_error"
	KindValidation  Kind = "validation_error"
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
	KindServer      Kind = "server_error"
	KindUnknown     Kind = "unknown_error"
)

func (k Kind) Retryable() bool {
	switch k {
	case KindAuth, KindValidation:
		return false
	}
	return true
}

// PublishError is the only error shape that crosses the adapter
// boundary. Raw platform errors are translated before they leave.
type PublishError struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Classify wraps any error into a PublishError. Deadline expiry becomes
// a Timeout; anything unrecognized is UnknownError (retryable, capped by
// the retry policy).
func Classify(err error) *PublishError {
	var perr *PublishError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PublishError{Kind: KindTimeout, Message: err.Error()}
	}
	return &PublishError{Kind: KindUnknown, Message: err.Error()}
}

func fromResponse(statusCode int, body []byte, header http.Header) *PublishError {
	message := string(body)
	if len(message) > 512 {
		message = message[:512]
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &PublishError{Kind: KindAuth, Message: message}
	case statusCode == http.StatusTooManyRequests:
		perr := &PublishError{Kind: KindRateLimited, Message: message}
		if retryAfter := header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				perr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return perr
	case statusCode == http.StatusRequestTimeout:
		return &PublishError{Kind: KindTimeout, Message: message}
	case statusCode >= 500:
		return &PublishError{Kind: KindServer, Message: message}
	case statusCode >= 400:
		return &PublishError{Kind: KindValidation, Message: message}
	}
	return &PublishError{Kind: KindUnknown, Message: message}
}
