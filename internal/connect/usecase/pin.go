package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
)

// DefaultPINFailure is shown when the backend gives no usable reason.
const DefaultPINFailure = "Failed to verify PIN. Please try again."

// PinAttempt is never persisted.
type PinAttempt struct {
	PIN         string `validate:"required,len=6,numeric,pin"`
	SubmittedAt time.Time
}

type PinOutcome struct {
	Registered bool
	Message    string
}

// PinFlow submits the two-step verification PIN of a pending registration.
// Every submission is independent; there is no attempt limit.
type PinFlow struct {
	backend   repoBackend
	validator validator.Validator
	ins       instrument.Instrumentation
}

// Validate rejects anything but exactly six ASCII digits.
func (p *PinFlow) Validate(attempt PinAttempt) error {
	if err := p.validator.Validate(attempt); err != nil {
		return goerror.NewInvalidInput(err)
	}
	return nil
}

// Submit validates the attempt, then registers the phone number. On success
// the setup context of the session is cleared. A rejected PIN is reported in
// the outcome, not as an error.
func (p *PinFlow) Submit(ctx context.Context, store *session.Store, attempt PinAttempt) (*PinOutcome, error) {
	ctx, span := p.ins.Tracer("connect.usecase").Start(ctx, "PinFlow.Submit")
	defer span.End()

	if err := p.Validate(attempt); err != nil {
		return nil, err
	}

	resp, err := p.backend.RegisterPhone(ctx, store.ID(), attempt.PIN)
	if err != nil {
		slog.ErrorContext(ctx, "failed to register phone", "error", err)
		return &PinOutcome{Message: DefaultPINFailure}, nil
	}

	if !resp.Success && !resp.Registered {
		slog.WarnContext(ctx, "phone registration rejected", "status", resp.StatusCode)
		return &PinOutcome{Message: pinFailureMessage(resp)}, nil
	}

	if err := store.Remove(ctx, entity.SetupKeys...); err != nil {
		slog.WarnContext(ctx, "failed to clear setup context", "error", err)
	}

	return &PinOutcome{
		Registered: true,
		Message:    firstNonEmpty(resp.Message, "Phone number registered"),
	}, nil
}

func pinFailureMessage(resp *entity.RegisterResponse) string {
	return firstNonEmpty(resp.DetailMsg, resp.DetailUser, resp.Detail, resp.Error, resp.Message, DefaultPINFailure)
}
