// Package llm talks to the chat-completion backend. The provider is Huawei
// ModelArts MaaS, which exposes an OpenAI-compatible API, so requests go
// through github.com/sashabaranov/go-openai. Provider errors are reduced to
// the closed Failure set before they leave this package.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Roles accepted by the provider.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string
	Content string
}

// Completer returns the assistant's reply for an ordered conversation.
// Implementations return a Failure on error.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	Model          string
	ModerationCode string
	Timeout        time.Duration
	Transport      http.RoundTripper
}

// Client is a Completer backed by an OpenAI-compatible endpoint.
type Client struct {
	api            *openai.Client
	model          string
	moderationCode string
}

// NewClient builds a Client. Timeout bounds each HTTP exchange; callers may
// still apply a tighter context deadline.
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewEnvelopeTransport(opts.Transport),
	}
	code := opts.ModerationCode
	if code == "" {
		code = DefaultModerationCode
	}
	return &Client{
		api:            openai.NewClientWithConfig(cfg),
		model:          opts.Model,
		moderationCode: code,
	}
}

// Complete sends messages and returns the trimmed reply text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.Int("llm.messages", len(messages)),
		))
	defer span.End()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		f := Classify(err, c.moderationCode)
		span.RecordError(f)
		span.SetStatus(codes.Error, f.Code())
		return "", f
	}

	text, f := c.reply(resp)
	if f != nil {
		span.RecordError(f)
		span.SetStatus(codes.Error, f.Code())
		return "", f
	}
	return text, nil
}

func (c *Client) reply(resp openai.ChatCompletionResponse) (string, Failure) {
	if len(resp.Choices) == 0 {
		return "", &Fatal{Err: ErrInvalidResponse}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &ModerationRejected{ProviderCode: c.moderationCode, Message: "response blocked by content filter"}
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", &Fatal{Err: ErrInvalidResponse}
	}
	return text, nil
}
