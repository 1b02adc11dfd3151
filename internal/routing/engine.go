// Package routing sequences identification, classification, agent dispatch
// and reply formatting for each inbound SMS.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/sms-router/internal/agent"
	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/internal/observability/metrics"
	"github.com/wolfman30/sms-router/internal/processor"
	"github.com/wolfman30/sms-router/internal/ratelimit"
	"github.com/wolfman30/sms-router/internal/reply"
	"github.com/wolfman30/sms-router/pkg/logging"
)

var tracer = otel.Tracer("smsrouter.internal.routing")

// RateLimitedMessage is sent to senders over their window budget.
const RateLimitedMessage = "You're sending messages faster than I can answer. Please wait a minute and try again."

// Outcome classifies a finished route for statistics.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeCommand     Outcome = "command"
	OutcomeSpamBlocked Outcome = "spam_blocked"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

// State is a step of the per-request state machine.
type State string

const (
	StateReceived         State = "received"
	StateIdentified       State = "identified"
	StateAnonymous        State = "anonymous"
	StateClassifiedNormal State = "classified_normal"
	StateClassifiedSpam   State = "classified_spam"
	StateClassifiedCmd    State = "classified_command"
	StateInvoked          State = "invoked"
	StateSkipped          State = "skipped"
	StateReplied          State = "replied"
	StateErrored          State = "errored"
)

// InboundMessage is created once per webhook call and never mutated.
type InboundMessage struct {
	FromPhone  string
	Body       string
	MessageID  string
	ReceivedAt time.Time
}

// Identifier resolves senders.
type Identifier interface {
	IdentifyByPhone(ctx context.Context, phone string) (*identity.UserIdentity, bool)
	Ping(ctx context.Context) error
}

// MessageProcessor classifies message text.
type MessageProcessor interface {
	Process(body string, user *identity.UserIdentity) (processor.Result, error)
}

// AgentInvoker calls the conversational agent.
type AgentInvoker interface {
	Invoke(ctx context.Context, userID int64, text string) (string, error)
}

// ResponseFormatter renders replies.
type ResponseFormatter interface {
	Format(replyText string, user *identity.UserIdentity) reply.Response
	FormatError(phone, reason string) reply.Response
	FormatSpamBlocked(phone string) reply.Response
	FormatNotice(phone, text string, kind reply.Kind) reply.Response
}

// Deps are the engine's collaborators. Limiter and Metrics are optional.
type Deps struct {
	Identifier Identifier
	Processor  MessageProcessor
	Agent      AgentInvoker
	Formatter  ResponseFormatter
	Limiter    ratelimit.Limiter
	Metrics    *metrics.RoutingMetrics
	Logger     *logging.Logger
	Now        func() time.Time
}

// Engine routes inbound messages. It is safe for concurrent use; the stats
// recorder is its only mutable state.
type Engine struct {
	identifier Identifier
	processor  MessageProcessor
	agent      AgentInvoker
	formatter  ResponseFormatter
	limiter    ratelimit.Limiter
	metrics    *metrics.RoutingMetrics
	logger     *logging.Logger
	now        func() time.Time

	stats statsRecorder
}

// NewEngine validates deps and builds an Engine.
func NewEngine(deps Deps) *Engine {
	if deps.Identifier == nil {
		panic("routing: identifier cannot be nil")
	}
	if deps.Processor == nil {
		panic("routing: processor cannot be nil")
	}
	if deps.Agent == nil {
		panic("routing: agent cannot be nil")
	}
	if deps.Formatter == nil {
		panic("routing: formatter cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		identifier: deps.Identifier,
		processor:  deps.Processor,
		agent:      deps.Agent,
		formatter:  deps.Formatter,
		limiter:    deps.Limiter,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

// routeRecord is what one request leaves behind for stats and logs.
type routeRecord struct {
	outcome Outcome
	user    *identity.UserIdentity
	states  []State
	reason  string
}

func (r *routeRecord) enter(s State) {
	r.states = append(r.states, s)
}

func (r *routeRecord) final() State {
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

// Route handles one inbound message and always returns a reply. Every exit
// path, including a recovered panic, is counted in Stats.
func (e *Engine) Route(ctx context.Context, phone, body, messageID string) reply.Response {
	msg := InboundMessage{
		FromPhone:  strings.TrimSpace(phone),
		Body:       body,
		MessageID:  messageID,
		ReceivedAt: e.now(),
	}
	resp, _ := e.routeMessage(ctx, msg)
	return resp
}

func (e *Engine) routeMessage(ctx context.Context, msg InboundMessage) (resp reply.Response, rec routeRecord) {
	ctx, span := tracer.Start(ctx, "routing.route", trace.WithAttributes(
		attribute.String("smsrouter.message_sid", msg.MessageID),
	))
	defer span.End()

	rec.enter(StateReceived)
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("routing: internal error: %v", p)
			span.RecordError(err)
			rec.outcome = OutcomeFailed
			rec.reason = "internal_error"
			rec.enter(StateErrored)
			resp = e.formatter.FormatError(msg.FromPhone, err.Error())
		}
		e.finish(msg, &rec, span)
	}()

	resp = e.route(ctx, msg, &rec)
	return resp, rec
}

func (e *Engine) route(ctx context.Context, msg InboundMessage, rec *routeRecord) reply.Response {
	user, ok := e.identifier.IdentifyByPhone(ctx, msg.FromPhone)
	if ok {
		rec.user = user
		rec.enter(StateIdentified)
		e.metrics.ObserveIdentification(string(user.MatchSource))
	} else {
		rec.enter(StateAnonymous)
		e.metrics.ObserveIdentification("anonymous")
	}

	// Throttled senders keep their identification so stats stay accurate.
	if limited := e.checkRateLimit(ctx, msg.FromPhone); limited {
		rec.outcome = OutcomeRateLimited
		rec.reason = "rate_limited"
		rec.enter(StateErrored)
		return e.formatter.FormatNotice(msg.FromPhone, RateLimitedMessage, reply.KindError)
	}

	result, err := e.processor.Process(msg.Body, rec.user)
	if err != nil {
		rec.outcome = OutcomeFailed
		rec.reason = validationReason(err)
		rec.enter(StateErrored)
		return e.formatter.FormatError(msg.FromPhone, err.Error())
	}
	e.metrics.ObserveSpamScore(result.SpamScore)

	switch {
	case result.IsSpam:
		rec.enter(StateClassifiedSpam)
		rec.enter(StateSkipped)
		rec.outcome = OutcomeSpamBlocked
		rec.enter(StateReplied)
		e.logger.Info("spam blocked",
			"message_sid", msg.MessageID,
			"phone", logging.MaskPhone(msg.FromPhone),
			"spam_score", result.SpamScore,
			"signals", result.SpamSignals,
		)
		return e.formatter.FormatSpamBlocked(msg.FromPhone)

	case result.Command != nil:
		rec.enter(StateClassifiedCmd)
		rec.enter(StateSkipped)
		text, known := dispatchCommand(result.Command.Name, rec.user, result.Command.Args)
		rec.outcome = OutcomeCommand
		if !known {
			rec.reason = "unknown_command"
		}
		rec.enter(StateReplied)
		return e.formatter.FormatNotice(msg.FromPhone, text, reply.KindReply)
	}

	rec.enter(StateClassifiedNormal)
	rec.enter(StateInvoked)
	replyText, err := e.agent.Invoke(ctx, agentUserID(rec.user), result.CleanedBody)
	if err != nil {
		rec.outcome = OutcomeFailed
		rec.reason = invocationReason(err)
		rec.enter(StateErrored)
		return e.formatter.FormatError(msg.FromPhone, err.Error())
	}

	rec.outcome = OutcomeSuccess
	rec.enter(StateReplied)
	resp := e.formatter.Format(replyText, rec.user)
	if resp.To == "" {
		resp.To = msg.FromPhone
	}
	return resp
}

func (e *Engine) checkRateLimit(ctx context.Context, phone string) bool {
	if e.limiter == nil {
		return false
	}
	key := identity.NormalizePhone(phone)
	if key == "" {
		return false
	}
	decision, err := e.limiter.Allow(ctx, key)
	if err != nil {
		e.logger.Warn("rate limiter unavailable", "error", err)
		return false
	}
	return !decision.Allowed
}

func (e *Engine) finish(msg InboundMessage, rec *routeRecord, span trace.Span) {
	elapsed := e.now().Sub(msg.ReceivedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if rec.outcome == "" {
		rec.outcome = OutcomeFailed
	}
	e.stats.record(rec.outcome, rec.user == nil, elapsed)
	e.metrics.ObserveRoute(string(rec.outcome), elapsed.Seconds())

	span.SetAttributes(
		attribute.String("smsrouter.outcome", string(rec.outcome)),
		attribute.String("smsrouter.final_state", string(rec.final())),
	)
	args := []any{
		"message_sid", msg.MessageID,
		"phone", logging.MaskPhone(msg.FromPhone),
		"outcome", rec.outcome,
		"state", rec.final(),
		"duration_ms", elapsed.Milliseconds(),
	}
	if rec.user != nil {
		args = append(args, "user_id", rec.user.UserID)
	}
	if rec.reason != "" {
		args = append(args, "reason", rec.reason)
	}
	if rec.outcome == OutcomeFailed {
		e.logger.Warn("sms route failed", args...)
		return
	}
	e.logger.Info("sms routed", args...)
}

// Stats returns a snapshot of the running counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

func agentUserID(user *identity.UserIdentity) int64 {
	if user == nil || !user.IsActive {
		return agent.AnonymousUserID
	}
	return user.UserID
}

func validationReason(err error) string {
	if errors.Is(err, processor.ErrEmptyMessage) {
		return "validation_error"
	}
	return "processing_error"
}

func invocationReason(err error) string {
	var invErr *agent.InvocationError
	if errors.As(err, &invErr) {
		if invErr.Timeout {
			return "agent_timeout"
		}
		return "agent_error"
	}
	return "internal_error"
}
