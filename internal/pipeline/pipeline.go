// Package pipeline runs the request state machine: gate, fetch, format,
// audit. One pipeline execution per inbound request; executions share only
// the store and the source catalog.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/authz"
	"github.com/jokeworks/joker-api/internal/format"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/queue"
	"github.com/jokeworks/joker-api/internal/sources"
	"github.com/jokeworks/joker-api/internal/store"
	"gorm.io/datatypes"
)

// State names one position in the per-request machine. The machine is
// linear: Received → Authorizing → (Denied | Fetching) → (Exhausted |
// Formatting) → Auditing → Completed. Denied and Exhausted are failure
// terminals that still pass through Auditing; no state is ever re-entered.
type State string

const (
	StateReceived    State = "received"
	StateAuthorizing State = "authorizing"
	StateDenied      State = "denied"
	StateFetching    State = "fetching"
	StateExhausted   State = "exhausted"
	StateFormatting  State = "formatting"
	StateAuditing    State = "auditing"
	StateCompleted   State = "completed"
)

// ErrEndpointNotFound is returned before the pipeline starts when the
// requested path/method is not in the catalog.
var ErrEndpointNotFound = store.ErrEndpointNotFound

// Request is one inbound "serve a joke" operation.
type Request struct {
	Path   string
	Method models.HTTPMethod
	// UserID is nil for anonymous callers.
	UserID *uuid.UUID
	// RequestedFormat is the caller's preference; nil means none.
	RequestedFormat *models.FormatType
}

// Result is the terminal product of one execution. The outcome always lets
// the caller distinguish success, denial, unavailability and internal
// failure.
type Result struct {
	Outcome models.Outcome
	// Body and Format are set on completion.
	Body   string
	Format models.FormatType
	// Reason is set on denial.
	Reason string
	// AuthenticationAbsent distinguishes missing identity from bad role.
	AuthenticationAbsent bool
	JokeID               *uuid.UUID
	AuditID              uuid.UUID
}

type Pipeline struct {
	store      *store.Store
	gate       *authz.Gate
	aggregator *sources.Aggregator
	publisher  *queue.Publisher
	timeout    time.Duration
}

func New(st *store.Store, gate *authz.Gate, agg *sources.Aggregator, pub *queue.Publisher, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Pipeline{store: st, gate: gate, aggregator: agg, publisher: pub, timeout: timeout}
}

// execution carries the mutable per-request state through the machine.
type execution struct {
	state  State
	result Result
	audit  models.APIRequest
	extra  map[string]interface{}
}

func (e *execution) transition(to State) {
	slog.Debug("pipeline transition", "from", e.state, "to", to, "path", e.audit.Endpoint)
	e.state = to
}

// Serve executes the machine for one request. Whatever terminal state is
// reached, exactly one audit row is written; the audit write runs on a
// context detached from the caller so a disconnect after side effects began
// still gets billed. ErrEndpointNotFound is the only error returned without
// an audit row: a request that never matched a configured endpoint never
// entered the pipeline.
func (p *Pipeline) Serve(ctx context.Context, req Request) (*Result, error) {
	ep, err := p.store.GetEndpoint(ctx, req.Path, req.Method)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	exec := &execution{
		state: StateReceived,
		audit: models.APIRequest{
			Endpoint: ep.Path,
			Method:   ep.Method,
			UserID:   req.UserID,
		},
		extra: map[string]interface{}{},
	}

	p.run(ctx, exec, req, ep)

	exec.transition(StateAuditing)
	if len(exec.extra) > 0 {
		if b, err := json.Marshal(exec.extra); err == nil {
			exec.audit.Extra = datatypes.JSON(b)
		}
	}
	exec.audit.Outcome = exec.result.Outcome

	if err := p.writeAudit(ctx, &exec.audit); err != nil {
		slog.Error("audit write failed", "path", ep.Path, "error", err)
		exec.result.Outcome = models.OutcomeError
		return &exec.result, err
	}
	exec.result.AuditID = exec.audit.ID

	p.announce(&exec.audit)

	if exec.result.Outcome == models.OutcomeCompleted {
		exec.transition(StateCompleted)
	}
	return &exec.result, nil
}

// run drives the machine up to the decision that fixes the outcome. It owns
// no writes beyond those the aggregator performs (joke and failure rows).
func (p *Pipeline) run(ctx context.Context, exec *execution, req Request, ep *models.APIEndpoint) {
	exec.transition(StateAuthorizing)
	decision, err := p.gate.Authorize(ctx, req.UserID, ep)
	if err != nil {
		p.fail(ctx, exec, err, "authorization")
		return
	}
	if !decision.Allowed {
		exec.transition(StateDenied)
		exec.result.Outcome = models.OutcomeDenied
		exec.result.Reason = decision.Reason
		exec.result.AuthenticationAbsent = decision.AuthenticationAbsent
		if decision.Reason == authz.ReasonUnknownUser && req.UserID != nil {
			// The subject resolves to no user row, so the audit's user
			// reference must stay null for the row to commit; the raw
			// subject is kept in extra instead.
			exec.extra["subject"] = req.UserID.String()
			exec.audit.UserID = nil
		}
		response := "denied: " + decision.Reason
		exec.audit.Response = &response
		return
	}

	exec.transition(StateFetching)
	joke, err := p.aggregator.Next(ctx)
	if errors.Is(err, sources.ErrAllSourcesExhausted) {
		exec.transition(StateExhausted)
		exec.result.Outcome = models.OutcomeUnavailable
		response := "unavailable: all sources exhausted"
		exec.audit.Response = &response
		return
	}
	if err != nil {
		p.fail(ctx, exec, err, "fetch")
		return
	}
	exec.result.JokeID = &joke.ID
	exec.audit.JokeID = &joke.ID

	exec.transition(StateFormatting)
	rendered := format.Render(joke, ep, req.RequestedFormat)
	if rendered.DegradedFrom != nil {
		exec.extra["degraded_from"] = string(*rendered.DegradedFrom)
		slog.Warn("render degraded to plain text", "path", ep.Path, "from", *rendered.DegradedFrom)
	}

	exec.result.Outcome = models.OutcomeCompleted
	exec.result.Body = rendered.Body
	exec.result.Format = rendered.Format
	exec.audit.Response = &rendered.Body
	exec.audit.Format = &rendered.Format
}

// fail classifies an internal fault: a blown request deadline becomes the
// timeout terminal, everything else the generic error terminal. Both are
// audited.
func (p *Pipeline) fail(ctx context.Context, exec *execution, cause error, stage string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded) {
		exec.result.Outcome = models.OutcomeTimeout
		response := "timeout: request deadline exceeded"
		exec.audit.Response = &response
	} else {
		exec.result.Outcome = models.OutcomeError
		response := "error: internal failure"
		exec.audit.Response = &response
	}
	slog.Error("pipeline stage failed", "stage", stage, "path", exec.audit.Endpoint, "error", cause)
}

// writeAudit commits the single audit row on a context that survives caller
// cancellation, bounded so a dead store cannot block shutdown.
func (p *Pipeline) writeAudit(ctx context.Context, audit *models.APIRequest) error {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return p.store.CreateAuditRecord(auditCtx, audit)
}

// announce publishes the audit event; broker failures never affect the
// caller.
func (p *Pipeline) announce(audit *models.APIRequest) {
	if p.publisher == nil {
		return
	}
	event := queue.AuditRecordedEvent{
		RequestID:  audit.ID.String(),
		Endpoint:   audit.Endpoint,
		Method:     string(audit.Method),
		Outcome:    string(audit.Outcome),
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if audit.UserID != nil {
		s := audit.UserID.String()
		event.UserID = &s
	}
	if audit.JokeID != nil {
		s := audit.JokeID.String()
		event.JokeID = &s
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.publisher.PublishAuditRecorded(ctx, event)
	}()
}
