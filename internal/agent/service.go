// Package agent adapts the external conversational agent to the routing
// pipeline. It never retries and never caches.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/sms-router/pkg/logging"
)

var tracer = otel.Tracer("smsrouter.internal.agent")

// DefaultTimeout bounds a single agent invocation.
const DefaultTimeout = 15 * time.Second

// AnonymousUserID is passed for senders that could not be identified.
const AnonymousUserID int64 = 0


// Client is the external agent: one user message in, one text reply out.
type Client interface {
	Complete(ctx context.Context, userID int64, text string) (string, error)
}

// InvocationError is the only error Invoke returns.
type InvocationError struct {
	UserID  int64
	Timeout bool
	Err     error
}

func (e *InvocationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("agent: invocation for user %d timed out: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("agent: invocation for user %d failed: %v", e.UserID, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Service applies the invocation timeout and error taxonomy around a Client.
type Service struct {
	client  Client
	timeout time.Duration
	logger  *logging.Logger
}

// NewService wraps client. A non-positive timeout uses DefaultTimeout.
func NewService(client Client, timeout time.Duration, logger *logging.Logger) *Service {
	if client == nil {
		panic("agent: client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{client: client, timeout: timeout, logger: logger}
}

type completion struct {
	text string
	err  error
}

// Invoke sends text to the agent on behalf of userID. The call is abandoned
// when the timeout elapses or ctx is cancelled, even if the client ignores
// its context.
func (s *Service) Invoke(ctx context.Context, userID int64, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.invoke")
	defer span.End()
	span.SetAttributes(attribute.Int64("agent.user_id", userID))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		reply, err := s.client.Complete(ctx, userID, text)
		done <- completion{text: reply, err: err}
	}()

	var result completion
	select {
	case result = <-done:
	case <-ctx.Done():
		result = completion{err: ctx.Err()}
	}

	if result.err != nil {
		invErr := &InvocationError{
			UserID:  userID,
			Timeout: errors.Is(result.err, context.DeadlineExceeded),
			Err:     result.err,
		}
		span.RecordError(invErr)
		s.logger.Warn("agent invocation failed", "user_id", userID, "timeout", invErr.Timeout, "error", result.err)
		return "", invErr
	}
	return result.text, nil
}
