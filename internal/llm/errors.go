package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModerationCode is the ModelArts error code for content-safety
// refusals.
const DefaultModerationCode = "ModelArts.81011"

// Failure is the closed set of errors a completion can end with. The only
// implementations are *ModerationRejected, *Transient and *Fatal.
type Failure interface {
	error
	// Code is a stable identifier suitable for API error envelopes.
	Code() string
	// Details is a human-readable explanation.
	Details() string
	failure()
}

// ModerationRejected means the provider refused to answer because of its
// content filter.
type ModerationRejected struct {
	ProviderCode string
	Message      string
}

func (e *ModerationRejected) Error() string {
	return fmt.Sprintf("llm: moderation rejected (%s): %s", e.ProviderCode, e.Message)
}
func (e *ModerationRejected) Code() string    { return e.ProviderCode }
func (e *ModerationRejected) Details() string { return e.Message }
func (*ModerationRejected) failure()          {}

// Transient covers timeouts, network errors, throttling and provider 5xx.
type Transient struct {
	Status       int
	ProviderCode string
	Err          error
}

func (e *Transient) Error() string { return "llm: transient failure: " + e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }
func (e *Transient) Code() string {
	if e.ProviderCode != "" {
		return e.ProviderCode
	}
	return "AI_UNAVAILABLE"
}
func (e *Transient) Details() string { return detailsOf(e.Err) }
func (*Transient) failure()          {}

// Fatal covers auth failures, rejected requests and malformed replies.
type Fatal struct {
	Status       int
	ProviderCode string
	Err          error
}

func (e *Fatal) Error() string { return "llm: fatal failure: " + e.Err.Error() }
func (e *Fatal) Unwrap() error { return e.Err }
func (e *Fatal) Code() string {
	if e.ProviderCode != "" {
		return e.ProviderCode
	}
	return "AI_FAILED"
}
func (e *Fatal) Details() string { return detailsOf(e.Err) }
func (*Fatal) failure()          {}

// ErrInvalidResponse is wrapped in a *Fatal when the provider returns no
// usable text.
var ErrInvalidResponse = errors.New("invalid AI response format")

func detailsOf(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Classify maps any error returned by the OpenAI client onto a Failure.
// moderationCode is the provider code that identifies a content-filter
// refusal; an empty value uses DefaultModerationCode. A nil err yields nil.
func Classify(err error, moderationCode string) Failure {
	if err == nil {
		return nil
	}
	if moderationCode == "" {
		moderationCode = DefaultModerationCode
	}

	var already Failure
	if errors.As(err, &already) {
		return already
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := providerCode(apiErr.Code)
		if code == moderationCode {
			return &ModerationRejected{ProviderCode: code, Message: apiErr.Message}
		}
		return byStatus(apiErr.HTTPStatusCode, code, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return byStatus(reqErr.HTTPStatusCode, "", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Transient{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Transient{Err: err}
	}
	return &Fatal{Err: err}
}

func byStatus(status int, code string, err error) Failure {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return &Transient{Status: status, ProviderCode: code, Err: err}
	}
	return &Fatal{Status: status, ProviderCode: code, Err: err}
}

// providerCode renders APIError.Code, which may decode as a string or a
// number, as a string.
func providerCode(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return fmt.Sprintf("%.0f", c)
	default:
		return fmt.Sprint(c)
	}
}
