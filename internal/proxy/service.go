// Package proxy implements the chat completion pipeline: rate limit, validate, forward.
package proxy

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/chat"
	apperrors "github.com/bffagent/bffagent/internal/errors"
	"github.com/bffagent/bffagent/internal/metrics"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/provider"
	"github.com/bffagent/bffagent/internal/ratelimit"
)

// Service runs chat requests through the proxy pipeline.
type Service struct {
	Limiter  *ratelimit.Limiter
	Provider provider.Completer
	Model    string
}

// NewService builds a service. An empty model selects chat.DefaultModel.
func NewService(limiter *ratelimit.Limiter, completer provider.Completer, model string) *Service {
	if strings.TrimSpace(model) == "" {
		model = chat.DefaultModel
	}
	return &Service{Limiter: limiter, Provider: completer, Model: model}
}

// Complete rate-limits clientKey, validates body, and returns the provider's reply.
// Failures are always *Error.
func (s *Service) Complete(ctx context.Context, clientKey string, body []byte) (string, error) {
	if err := s.Limiter.Check(ctx, clientKey); err != nil {
		var limitErr *ratelimit.LimitError
		if errors.As(err, &limitErr) {
			metrics.RecordRateLimited()
			metrics.RecordChatRequest("rate_limited")
			return "", &Error{
				Code:       apperrors.CodeRateLimit,
				Message:    limitErr.Error(),
				RetryAfter: limitErr.RetryAfterSeconds(),
			}
		}
		metrics.RecordChatRequest("error")
		return "", &Error{Code: apperrors.CodeInternal, Message: MessageInternal, Err: err}
	}

	messages, err := chat.DecodeAndValidate(body)
	if err != nil {
		metrics.RecordValidationFailure()
		metrics.RecordChatRequest("invalid")
		return "", &Error{Code: apperrors.CodeValidation, Message: err.Error()}
	}

	reply, err := s.forward(ctx, messages)
	if err != nil {
		perr := classify(err)
		metrics.RecordChatRequest(outcome(perr.Code))
		return "", perr
	}

	metrics.RecordChatRequest("ok")
	return reply, nil
}

func (s *Service) forward(ctx context.Context, messages []chat.WireMessage) (string, error) {
	if s.Provider == nil {
		return "", provider.ErrMissingCredential
	}

	req := &provider.Request{
		Model:            s.Model,
		Messages:         BuildMessages(messages),
		Temperature:      provider.Float(chat.Temperature),
		MaxTokens:        provider.Int(chat.MaxTokens),
		PresencePenalty:  provider.Float(chat.PresencePenalty),
		FrequencyPenalty: provider.Float(chat.FrequencyPenalty),
	}

	start := time.Now()
	resp, err := s.Provider.Complete(ctx, req)
	duration := time.Since(start)
	metrics.RecordProviderCall(s.Provider.Name(), err == nil, duration)

	if err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Error("Provider request failed",
				zap.String("provider", s.Provider.Name()),
				zap.String("class", provider.Classify(err).String()),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}
		return "", err
	}

	if observability.ServerLogger != nil {
		fields := []zap.Field{
			zap.String("provider", s.Provider.Name()),
			zap.Int("messages", len(messages)),
			zap.Duration("duration", duration),
		}
		if resp != nil && resp.Usage != nil {
			fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
		}
		observability.ServerLogger.Debug("Provider request completed", fields...)
	}

	if resp == nil || chat.IsBlank(resp.Content) {
		return chat.EmptyReply, nil
	}
	return resp.Content, nil
}

// BuildMessages prepends the persona and maps wire senders onto provider roles.
func BuildMessages(messages []chat.WireMessage) []provider.Message {
	out := make([]provider.Message, 0, len(messages)+1)
	out = append(out, provider.Message{Role: "system", Content: chat.Persona})
	for _, m := range messages {
		out = append(out, provider.Message{Role: chat.Role(m.Sender), Content: m.Text})
	}
	return out
}

func classify(err error) *Error {
	switch provider.Classify(err) {
	case provider.ClassConfig:
		return &Error{Code: apperrors.CodeServerConfig, Message: MessageServerConfig, Err: err}
	case provider.ClassUnavailable:
		return &Error{Code: apperrors.CodeServiceUnavailable, Message: MessageUnavailable, Err: err}
	default:
		return &Error{Code: apperrors.CodeInternal, Message: MessageInternal, Err: err}
	}
}

func outcome(code string) string {
	switch code {
	case apperrors.CodeServerConfig:
		return "config_error"
	case apperrors.CodeServiceUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
