package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrAuthentication matches provider errors caused by bad or missing keys.
var ErrAuthentication = errors.New("llm: authentication failed")

// ProviderError is a failed call to a model provider.
type ProviderError struct {
	Provider   string
	StatusCode int // zero for transport failures
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] status %d: %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("[%s] %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrAuthentication && (e.StatusCode == 401 || e.StatusCode == 403)
}

// IsRetryable reports whether an invocation may be attempted again.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var final *noRetry
	if errors.As(err, &final) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

func statusError(provider string, status int, cause error) error {
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  status == 408 || status == 429 || status >= 500,
		Cause:      cause,
	}
}

// classifyOpenAI maps go-openai errors onto ProviderError.
func classifyOpenAI(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(provider, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(provider, reqErr.HTTPStatusCode, err)
	}
	// Transport failure.
	return &ProviderError{Provider: provider, Retryable: true, Cause: err}
}

// classifyMessage infers a status from error text, for clients that do not
// expose structured errors.
func classifyMessage(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return statusError(provider, 401, err)
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return statusError(provider, 403, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return statusError(provider, 429, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid request"):
		return statusError(provider, 400, err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "internal server"):
		return statusError(provider, 500, err)
	default:
		return &ProviderError{Provider: provider, Retryable: true, Cause: err}
	}
}
