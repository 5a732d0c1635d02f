package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
	"go.uber.org/atomic"
)

const (
	flowMeta      = "meta"
	flowConnector = "connector"

	msgPinPrompt   = "Enter the 6-digit PIN to finish registering your number."
	msgSetupFailed = "We could not complete the WhatsApp setup. Please try again."
	msgConnected   = "WhatsApp connected successfully."
)

var (
	errSetupPending  = errors.New("setup context not delivered yet")
	errDuplicate     = errors.New("authorization already redeemed")
	errStateMismatch = errors.New("state does not match the authorization request")
)

// Navigator moves the browser of a view to another page.
type Navigator interface {
	Navigate(url string)
}

// Environment is what the hosting view lends to a Callback.
type Environment struct {
	Scheduler clock.Scheduler
	Navigator Navigator
}

// Callback drives one OAuth callback view from Processing to a terminal
// state. It is not reused across views.
type Callback struct {
	uc    *Usecase
	store *session.Store
	env   Environment
	alive *atomic.Bool

	mu      sync.Mutex
	state   entity.State
	pending *entity.PendingPIN
	cancels []clock.Cancel
}

// NewCallback starts a view bound to the browser session in ctx.
func (s *Usecase) NewCallback(ctx context.Context, env Environment) (*Callback, error) {
	store, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}
	if env.Scheduler == nil || env.Navigator == nil {
		return nil, goerror.NewServer(errors.New("connect: incomplete callback environment"))
	}

	return &Callback{
		uc:    s,
		store: store,
		env:   env,
		alive: atomic.NewBool(true),
		state: entity.StateProcessing,
	}, nil
}

func (c *Callback) State() entity.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels pending redirects. Results settling afterwards cause no
// writes and no navigation.
func (c *Callback) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}

	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Run processes the page load of the Meta OAuth callback.
func (c *Callback) Run(ctx context.Context, params entity.CallbackParams) (*entity.CallbackResult, error) {
	ctx, span := c.uc.startSpan(ctx, "Callback.Run")
	defer span.End()

	if c.State() != entity.StateProcessing {
		return nil, goerror.NewBusiness("callback already processed", goerror.CodeConflict)
	}

	c.recordSetup(ctx, params)

	if params.Error != "" {
		slog.WarnContext(ctx, "provider returned an error", "error", params.Error, "description", params.ErrorDescription)
		return c.metaError(ctx, params.Error, firstNonEmpty(params.ErrorDescription, params.Error), nil), nil
	}

	if params.Code == "" || params.State == "" {
		return c.metaError(ctx, entity.ErrCodeInvalidCallback, "The callback is missing its authorization code.", nil), nil
	}

	if err := c.checkState(ctx, entity.ProviderMeta, params.State); err != nil {
		slog.WarnContext(ctx, "callback state rejected", "error", err)
		return c.metaError(ctx, entity.ErrCodeInvalidState, "The authorization request could not be verified.", nil), nil
	}

	setup := c.awaitSetup(ctx, params.Setup)
	if setup.IsEmpty() {
		slog.InfoContext(ctx, "no setup context, handing off to backend callback")
		return c.settle(ctx, flowMeta, entity.CallbackResult{
			State:       entity.StateHandedOff,
			Message:     "Completing setup...",
			RedirectURL: c.uc.repoBackend.MetaCallbackURL(params.Code, params.State),
		}, nil), nil
	}

	return c.exchange(ctx, params, setup), nil
}

func (c *Callback) exchange(ctx context.Context, params entity.CallbackParams, setup entity.SetupContext) *entity.CallbackResult {
	var resp *entity.ExchangeResponse
	err := c.redeem(ctx, flowMeta+":"+params.State, func(ctx context.Context) error {
		var err error
		resp, err = c.uc.repoBackend.ExchangeCode(ctx, c.store.ID(), entity.ExchangeRequest{
			Code:  params.Code,
			State: params.State,
			Setup: setup,
		})
		return err
	})

	if errors.Is(err, errDuplicate) {
		slog.WarnContext(ctx, "authorization code already redeemed")
		return c.metaError(ctx, entity.ErrCodeDuplicateCallback, "This authorization was already used. Please connect again.", nil)
	}

	if err != nil {
		slog.ErrorContext(ctx, "failed to exchange code", "error", err)
		return c.metaError(ctx, entity.ErrCodeSetupFailed, msgSetupFailed, func(ctx context.Context) {
			c.publishWhatsApp(ctx, event.ConnectOutcomeFailed, msgSetupFailed, setup, "")
		})
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		pending := entity.PendingPIN{
			Code:        params.Code,
			State:       params.State,
			Setup:       setup,
			PhoneNumber: resp.PhoneNumber,
		}
		return c.settle(ctx, flowMeta, entity.CallbackResult{
			State:       entity.StatePinRequired,
			Message:     msgPinPrompt,
			PhoneNumber: resp.PhoneNumber,
		}, func(ctx context.Context) {
			c.stashPending(ctx, pending)
			c.publishWhatsApp(ctx, event.ConnectOutcomePinRequired, "", setup, resp.PhoneNumber)
		})

	case resp.StatusCode == http.StatusBadGateway:
		msg := firstNonEmpty(resp.Error, resp.Message, "Phone number registration failed.")
		return c.settle(ctx, flowMeta, entity.CallbackResult{
			State:         entity.StateRegistrationFailed,
			Message:       msg,
			ErrorCode:     entity.ErrCodeRegistrationFailed,
			RedirectURL:   c.uc.settingsURL("error", entity.ErrCodeRegistrationFailed, "detail", msg),
			RedirectDelay: c.uc.cfg.ErrorDelay,
		}, func(ctx context.Context) {
			c.publishWhatsApp(ctx, event.ConnectOutcomeRegistrationFailed, msg, setup, "")
		})

	case resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.Success:
		return c.succeed(ctx, setup, resp.PhoneNumber, firstNonEmpty(resp.Message, msgConnected))

	default:
		slog.WarnContext(ctx, "exchange code not accepted", "status", resp.StatusCode, "success", resp.Success)
		msg := firstNonEmpty(resp.Message, resp.Error, msgSetupFailed)
		return c.metaError(ctx, entity.ErrCodeSetupFailed, msg, func(ctx context.Context) {
			c.publishWhatsApp(ctx, event.ConnectOutcomeFailed, msg, setup, "")
		})
	}
}

// Resume restores the PIN-required state stashed by an earlier request of
// the same session.
func (c *Callback) Resume(ctx context.Context) (*entity.CallbackResult, error) {
	ctx, span := c.uc.startSpan(ctx, "Callback.Resume")
	defer span.End()

	pending, err := c.requirePending(ctx)
	if err != nil {
		return nil, err
	}

	return &entity.CallbackResult{
		State:       entity.StatePinRequired,
		Message:     msgPinPrompt,
		PhoneNumber: pending.PhoneNumber,
	}, nil
}

// SubmitPIN hands the PIN to the PIN flow. A rejected PIN keeps the view in
// PinRequired with the reason in Message.
func (c *Callback) SubmitPIN(ctx context.Context, pin string) (*entity.CallbackResult, error) {
	ctx, span := c.uc.startSpan(ctx, "Callback.SubmitPIN")
	defer span.End()

	attempt := PinAttempt{PIN: pin, SubmittedAt: c.uc.clock.Now()}
	if err := c.uc.pin.Validate(attempt); err != nil {
		return nil, err
	}

	pending, err := c.requirePending(ctx)
	if err != nil {
		return nil, err
	}

	out, err := c.uc.pin.Submit(ctx, c.store, attempt)
	if err != nil {
		return nil, err
	}

	if !out.Registered {
		return &entity.CallbackResult{
			State:       entity.StatePinRequired,
			Message:     out.Message,
			PhoneNumber: pending.PhoneNumber,
		}, nil
	}

	return c.succeed(ctx, pending.Setup, pending.PhoneNumber, msgConnected), nil
}

// CancelPIN leaves the number unregistered and sends the browser back to
// the settings page.
func (c *Callback) CancelPIN(ctx context.Context) (*entity.CallbackResult, error) {
	ctx, span := c.uc.startSpan(ctx, "Callback.CancelPIN")
	defer span.End()

	if _, err := c.requirePending(ctx); err != nil {
		return nil, err
	}

	return c.settle(ctx, flowMeta, entity.CallbackResult{
		State:       entity.StateGenericError,
		Message:     "WhatsApp registration was cancelled before the PIN was verified.",
		ErrorCode:   entity.ErrCodePinRequired,
		RedirectURL: c.uc.settingsURL("error", entity.ErrCodePinRequired),
	}, func(ctx context.Context) {
		if err := c.store.Remove(ctx, entity.KeyPendingPIN); err != nil {
			slog.WarnContext(ctx, "failed to remove pending pin", "error", err)
		}
	}), nil
}

func (c *Callback) succeed(ctx context.Context, setup entity.SetupContext, phone, msg string) *entity.CallbackResult {
	return c.settle(ctx, flowMeta, entity.CallbackResult{
		State:         entity.StateSuccess,
		Message:       msg,
		PhoneNumber:   phone,
		RedirectURL:   c.uc.settingsURL("success", "whatsapp_connected"),
		RedirectDelay: c.uc.cfg.SuccessDelay,
	}, func(ctx context.Context) {
		if err := c.store.Remove(ctx, slices.Concat(entity.SetupKeys, []string{entity.KeyPendingPIN})...); err != nil {
			slog.WarnContext(ctx, "failed to clear setup context", "error", err)
		}
		c.publishWhatsApp(ctx, event.ConnectOutcomeConnected, msg, setup, phone)
	})
}

func (c *Callback) metaError(ctx context.Context, code, msg string, effects func(context.Context)) *entity.CallbackResult {
	return c.settle(ctx, flowMeta, entity.CallbackResult{
		State:         entity.StateGenericError,
		Message:       msg,
		ErrorCode:     code,
		RedirectURL:   c.uc.settingsURL("error", code),
		RedirectDelay: c.uc.cfg.ErrorDelay,
	}, effects)
}

// settle moves the view to res.State. Side effects and navigation only
// happen while the view is alive.
func (c *Callback) settle(ctx context.Context, flow string, res entity.CallbackResult, effects func(context.Context)) *entity.CallbackResult {
	c.mu.Lock()
	c.state = res.State
	c.mu.Unlock()

	if !c.alive.Load() {
		slog.DebugContext(ctx, "callback settled after close", "state", res.State.String())
		return &res
	}

	if effects != nil {
		effects(ctx)
	}

	c.uc.countOutcome(ctx, flow, res.State)
	slog.InfoContext(ctx, "callback settled", "flow", flow, "state", res.State.String(), "error_code", res.ErrorCode)

	if res.RedirectURL != "" {
		c.redirect(res.RedirectURL, res.RedirectDelay)
	}

	return &res
}

func (c *Callback) redirect(target string, delay time.Duration) {
	if delay <= 0 {
		c.navigate(target)
		return
	}

	cancel := c.env.Scheduler.Schedule(delay, func() { c.navigate(target) })

	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
}

func (c *Callback) navigate(target string) {
	if c.alive.Load() {
		c.env.Navigator.Navigate(target)
	}
}

// recordSetup merges identifiers found on the callback URL into the session.
func (c *Callback) recordSetup(ctx context.Context, params entity.CallbackParams) {
	if !c.alive.Load() {
		return
	}

	writes := params.Setup.Values()
	if params.SignupData != "" {
		writes[entity.KeySignupData] = params.SignupData
	}

	for k, v := range writes {
		if err := c.store.Set(ctx, k, v); err != nil {
			slog.WarnContext(ctx, "failed to record setup identifier", "key", k, "error", err)
		}
	}
}

func (c *Callback) readSetup(ctx context.Context) (entity.SetupContext, error) {
	var setup entity.SetupContext
	for key, dst := range map[string]*string{
		entity.KeyWabaID:        &setup.WabaID,
		entity.KeyPhoneNumberID: &setup.PhoneNumberID,
		entity.KeyBusinessID:    &setup.BusinessID,
	} {
		v, _, err := c.store.Get(ctx, key)
		if err != nil {
			return entity.SetupContext{}, err
		}
		*dst = v
	}
	return setup, nil
}

// awaitSetup polls the session for a bounded grace period, since the signup
// message may land after the callback page has loaded. An empty result is a
// valid outcome.
func (c *Callback) awaitSetup(ctx context.Context, fromURL entity.SetupContext) entity.SetupContext {
	read := func(ctx context.Context) (entity.SetupContext, error) {
		stored, err := c.readSetup(ctx)
		if err != nil {
			return fromURL, err
		}
		return stored.Merge(fromURL), nil
	}

	setup, err := read(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read setup context", "error", err)
	}
	if !setup.IsEmpty() || c.uc.cfg.SetupGrace <= 0 {
		return setup
	}

	b := retry.WithMaxDuration(c.uc.cfg.SetupGrace, retry.NewConstant(c.uc.cfg.SetupPoll))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		got, err := read(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if got.IsEmpty() {
			return retry.RetryableError(errSetupPending)
		}
		setup = got
		return nil
	})
	if err != nil && !errors.Is(err, errSetupPending) {
		slog.WarnContext(ctx, "setup context wait ended", "error", err)
	}

	return setup
}

// redeem runs fn at most once per key. When the state store is unavailable
// fn runs unguarded; the backend still rejects a reused code.
func (c *Callback) redeem(ctx context.Context, key string, fn func(context.Context) error) error {
	if c.uc.idemp == nil {
		return fn(ctx)
	}

	var ran bool
	var fnErr error
	err := c.uc.idemp.Exec(ctx, "connect:"+key, func(ctx context.Context) error {
		ran = true
		fnErr = fn(ctx)
		return fnErr
	}, idempotency.WithStateTTL(c.uc.cfg.IdempotencyTTL))

	if ran {
		if err != nil && fnErr == nil {
			slog.WarnContext(ctx, "failed to record redeemed authorization", "error", err)
		}
		return fnErr
	}

	if errors.Is(err, idempotency.ErrAlreadyInProgress) ||
		errors.Is(err, idempotency.ErrAlreadyCompleted) ||
		errors.Is(err, idempotency.ErrAlreadyFailed) {
		return errDuplicate
	}

	slog.WarnContext(ctx, "idempotency unavailable", "error", err)
	return fn(ctx)
}

// checkState compares state with the one issued by AuthorizeURL, if any.
func (c *Callback) checkState(ctx context.Context, provider, state string) error {
	key := entity.KeyConnectorStatePrefix + provider

	want, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "failed to read issued state", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	if err := c.store.Remove(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to remove issued state", "error", err)
	}

	if want != state {
		return errStateMismatch
	}
	return nil
}

func (c *Callback) requirePending(ctx context.Context) (*entity.PendingPIN, error) {
	c.mu.Lock()
	state, pending := c.state, c.pending
	c.mu.Unlock()

	if state.Terminal() {
		return nil, goerror.NewBusiness("callback already completed", goerror.CodeConflict)
	}
	if pending != nil {
		return pending, nil
	}

	raw, ok, err := c.store.Get(ctx, entity.KeyPendingPIN)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read pending pin", "error", err)
		return nil, goerror.NewServer(err)
	}
	if !ok {
		return nil, goerror.NewBusiness("no pending PIN verification", goerror.CodeNotFound)
	}

	pending = &entity.PendingPIN{}
	if err := json.Unmarshal([]byte(raw), pending); err != nil {
		slog.WarnContext(ctx, "malformed pending pin", "error", err)
		return nil, goerror.NewBusiness("no pending PIN verification", goerror.CodeNotFound)
	}

	c.mu.Lock()
	c.state = entity.StatePinRequired
	c.pending = pending
	c.mu.Unlock()

	return pending, nil
}

func (c *Callback) stashPending(ctx context.Context, pending entity.PendingPIN) {
	c.mu.Lock()
	c.pending = &pending
	c.mu.Unlock()

	raw, err := json.Marshal(pending)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode pending pin", "error", err)
		return
	}
	if err := c.store.Set(ctx, entity.KeyPendingPIN, string(raw)); err != nil {
		slog.WarnContext(ctx, "failed to stash pending pin", "error", err)
	}
}

func (c *Callback) publishWhatsApp(ctx context.Context, outcome, msg string, setup entity.SetupContext, phone string) {
	if c.uc.repoMessaging == nil {
		return
	}

	if err := c.uc.repoMessaging.PublishConnectWhatsApp(ctx, ConnectWhatsAppEvent{
		SessionID:     c.store.ID(),
		Outcome:       outcome,
		Message:       msg,
		WabaID:        setup.WabaID,
		PhoneNumberID: setup.PhoneNumberID,
		PhoneNumber:   phone,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish connect whatsapp event", "outcome", outcome, "error", err)
	}
}

func (c *Callback) publishConnector(ctx context.Context, provider string, connected bool, errCode string) {
	if c.uc.repoMessaging == nil {
		return
	}

	if err := c.uc.repoMessaging.PublishConnectConnector(ctx, ConnectConnectorEvent{
		SessionID: c.store.ID(),
		Provider:  provider,
		Connected: connected,
		Error:     errCode,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish connect connector event", "provider", provider, "error", err)
	}
}
