package dispatch

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Outcome is how a call result was applied to the breaker.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeIgnored Outcome = "ignored"
)

// Health receives call outcomes per credential.
type Health interface {
	OnError(credential string)
	OnSuccess(credential string)
}

// Recorder classifies provider call results and feeds them to a Health.
//
// Cancellation by the caller and client errors that say nothing about the
// credential (a malformed request, an unknown model) are not held against
// it. Authentication, permission, timeout and rate-limit statuses are.
type Recorder struct {
	health Health
	logger *zap.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the recorder logger.
func WithRecorderLogger(logger *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder creates a recorder feeding health.
func NewRecorder(health Health, opts ...RecorderOption) *Recorder {
	r := &Recorder{health: health, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record applies the result of a call made with credential.
func (r *Recorder) Record(credential string, err error) Outcome {
	outcome := Classify(err)
	switch outcome {
	case OutcomeSuccess:
		r.health.OnSuccess(credential)
	case OutcomeFailure:
		r.health.OnError(credential)
		r.logger.Debug("call failure recorded",
			zap.String("credential", credential),
			zap.Int("status", StatusOf(err)),
			zap.Bool("transient", IsTransient(err)),
			zap.Error(err),
		)
	default:
		r.logger.Debug("call outcome ignored",
			zap.String("credential", credential),
			zap.Error(err),
		)
	}
	return outcome
}

// Classify maps a call result to an outcome without recording it.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeIgnored
	}
	status := StatusOf(err)
	if status >= 400 && status < 500 {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return OutcomeFailure
		}
		return OutcomeIgnored
	}
	return OutcomeFailure
}
