package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

var (
	// ErrNotAdmitted is returned when shaping a call spec the router did not admit.
	ErrNotAdmitted = errors.New("call spec not admitted")
	// ErrUnknownProvider is returned for providers without a request shape.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ProviderError wraps a provider failure with its HTTP status.
type ProviderError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider error (status=%d)", e.Status)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusOf extracts an HTTP status from err. It understands ProviderError
// and the error types of the Anthropic, OpenAI and Gemini SDKs, and returns 0
// when no status is available.
func StatusOf(err error) int {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Status
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	return 0
}

// IsTransient reports whether an error is safe to retry against the same
// credential.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Temporary {
		return true
	}
	status := StatusOf(err)
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
