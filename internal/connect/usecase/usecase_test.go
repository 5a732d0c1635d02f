package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testSID      = "sid-1"
	testFrontend = "https://app.example.com"
)

type fakeBackend struct {
	mu sync.Mutex

	exchange      *entity.ExchangeResponse
	exchangeErr   error
	exchangeHook  func()
	exchangeCalls []entity.ExchangeRequest

	register      *entity.RegisterResponse
	registerErr   error
	registerCalls []string

	connector      *entity.ConnectorResponse
	connectorErr   error
	connectorCalls []string
}

func (f *fakeBackend) ExchangeCode(_ context.Context, _ string, in entity.ExchangeRequest) (*entity.ExchangeResponse, error) {
	f.mu.Lock()
	f.exchangeCalls = append(f.exchangeCalls, in)
	hook := f.exchangeHook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return f.exchange, f.exchangeErr
}

func (f *fakeBackend) RegisterPhone(_ context.Context, _ string, pin string) (*entity.RegisterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls = append(f.registerCalls, pin)
	return f.register, f.registerErr
}

func (f *fakeBackend) ConnectorCallback(_ context.Context, _ string, provider string, _ entity.CallbackParams) (*entity.ConnectorResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectorCalls = append(f.connectorCalls, provider)
	return f.connector, f.connectorErr
}

func (f *fakeBackend) MetaCallbackURL(code, state string) string {
	return "https://api.example.com/api/auth/meta/callback?code=" + code + "&state=" + state
}

type fakeMessaging struct {
	mu         sync.Mutex
	whatsapp   []ConnectWhatsAppEvent
	connectors []ConnectConnectorEvent
}

func (f *fakeMessaging) PublishConnectWhatsApp(_ context.Context, msg ConnectWhatsAppEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whatsapp = append(f.whatsapp, msg)
	return nil
}

func (f *fakeMessaging) PublishConnectConnector(_ context.Context, msg ConnectConnectorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectors = append(f.connectors, msg)
	return nil
}

type fakeIdempotency struct {
	mu     sync.Mutex
	states map[string]idempotency.State
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{states: map[string]idempotency.State{}}
}

func (f *fakeIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	f.mu.Lock()
	st, seen := f.states[key]
	if !seen {
		f.states[key] = idempotency.StateInProgress
	}
	f.mu.Unlock()

	switch st {
	case idempotency.StateInProgress:
		return idempotency.ErrAlreadyInProgress
	case idempotency.StateCompleted:
		return idempotency.ErrAlreadyCompleted
	case idempotency.StateFailed:
		return idempotency.ErrAlreadyFailed
	}

	err := fn(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.states[key] = idempotency.StateFailed
		return err
	}
	f.states[key] = idempotency.StateCompleted
	return nil
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingNavigator) Navigate(u string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, u)
}

func (r *recordingNavigator) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("state-%d", s.n)
}

type harness struct {
	uc        *Usecase
	storage   *session.Memory
	backend   *fakeBackend
	messaging *fakeMessaging
	sched     *clock.ManualScheduler
	nav       *recordingNavigator
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	cfg := Config{FrontendURL: testFrontend + "/"}
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		storage:   session.NewMemory(),
		backend:   &fakeBackend{},
		messaging: &fakeMessaging{},
		sched:     clock.NewManualScheduler(),
		nav:       &recordingNavigator{},
	}
	h.uc = New(Dependency{
		Storage:       h.storage,
		RepoBackend:   h.backend,
		RepoMessaging: h.messaging,
		Idempotency:   newFakeIdempotency(),
		Validator:     v,
		UUID:          &seqID{},
		Clock:         clock.NewFrozen(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Instrument:    instrument.NewNoop(),
		Config:        cfg,
	})
	return h
}

func (h *harness) callback(t *testing.T) *Callback {
	t.Helper()
	cb, err := h.uc.NewCallback(sessionCtx(), Environment{Scheduler: h.sched, Navigator: h.nav})
	require.NoError(t, err)
	return cb
}

func (h *harness) get(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := h.storage.Get(context.Background(), testSID, key)
	require.NoError(t, err)
	return v, ok
}

func (h *harness) seedSetup(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.storage.Set(ctx, testSID, entity.KeyWabaID, "waba-1"))
	require.NoError(t, h.storage.Set(ctx, testSID, entity.KeyPhoneNumberID, "phone-1"))
	require.NoError(t, h.storage.Set(ctx, testSID, entity.KeyBusinessID, "biz-1"))
}

func sessionCtx() context.Context {
	return session.WithID(context.Background(), testSID)
}

func signupMessage(origin, payload string) entity.SignupMessage {
	return entity.SignupMessage{Origin: origin, Data: json.RawMessage(payload)}
}

func requireCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, code, gerr.Code())
}

const finishPayload = `{"type":"EMBEDDED_SIGNUP","event":"FINISH","data":{"waba_id":"waba-1","phone_number_id":"phone-1","business_id":123}}`

func TestUsecase_HandleMessage(t *testing.T) {
	t.Run("UntrustedOriginIgnored", func(t *testing.T) {
		// Arrange
		h := newHarness(t)

		// Act
		err := h.uc.HandleMessage(sessionCtx(), signupMessage("https://evil.example.com", finishPayload))

		// Assert
		require.NoError(t, err)
		for _, key := range entity.SetupKeys {
			_, ok := h.get(t, key)
			assert.False(t, ok, key)
		}
	})

	t.Run("FinishWritesIdentifiers", func(t *testing.T) {
		// Arrange
		h := newHarness(t)

		// Act
		err := h.uc.HandleMessage(sessionCtx(), signupMessage("https://www.facebook.com", finishPayload))

		// Assert
		require.NoError(t, err)
		waba, _ := h.get(t, entity.KeyWabaID)
		phone, _ := h.get(t, entity.KeyPhoneNumberID)
		biz, _ := h.get(t, entity.KeyBusinessID)
		assert.Equal(t, "waba-1", waba)
		assert.Equal(t, "phone-1", phone)
		assert.Equal(t, "123", biz)

		blob, ok := h.get(t, entity.KeySignupData)
		require.True(t, ok)
		assert.JSONEq(t, `{"waba_id":"waba-1","phone_number_id":"phone-1","business_id":123}`, blob)
	})

	t.Run("StringEncodedPayload", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		raw, err := json.Marshal(finishPayload)
		require.NoError(t, err)

		// Act
		err = h.uc.HandleMessage(sessionCtx(), signupMessage("https://web.facebook.com", string(raw)))

		// Assert
		require.NoError(t, err)
		waba, _ := h.get(t, entity.KeyWabaID)
		assert.Equal(t, "waba-1", waba)
	})

	t.Run("CancelAndError", func(t *testing.T) {
		// Arrange
		h := newHarness(t)

		// Act
		err1 := h.uc.HandleMessage(sessionCtx(), signupMessage("https://www.facebook.com",
			`{"type":"EMBEDDED_SIGNUP","event":"CANCEL","data":{"current_step":"PHONE_NUMBER_SETUP"}}`))
		err2 := h.uc.HandleMessage(sessionCtx(), signupMessage("https://www.facebook.com",
			`{"type":"EMBEDDED_SIGNUP","event":"ERROR","data":{"error_message":"boom"}}`))

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		step, _ := h.get(t, entity.KeySignupCancelled)
		msg, _ := h.get(t, entity.KeySignupError)
		assert.Equal(t, "PHONE_NUMBER_SETUP", step)
		assert.Equal(t, "boom", msg)
		_, ok := h.get(t, entity.KeyWabaID)
		assert.False(t, ok)
	})

	t.Run("ForeignSchemaIgnored", func(t *testing.T) {
		// Arrange
		h := newHarness(t)

		// Act
		err1 := h.uc.HandleMessage(sessionCtx(), signupMessage("https://www.facebook.com", `{"type":"OTHER","event":"FINISH"}`))
		err2 := h.uc.HandleMessage(sessionCtx(), signupMessage("https://www.facebook.com", `not json`))

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		_, ok := h.get(t, entity.KeySignupData)
		assert.False(t, ok)
	})

	t.Run("RequiresSession", func(t *testing.T) {
		h := newHarness(t)

		err := h.uc.HandleMessage(context.Background(), signupMessage("https://www.facebook.com", finishPayload))

		requireCode(t, err, goerror.CodeUnauthorized)
	})
}

func TestUsecase_Listen(t *testing.T) {
	t.Run("StopsWhenChannelCloses", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		ch := make(chan entity.SignupMessage, 2)
		ch <- signupMessage("https://evil.example.com", finishPayload)
		ch <- signupMessage("https://www.facebook.com", finishPayload)
		close(ch)

		// Act
		err := h.uc.Listen(sessionCtx(), ch)

		// Assert
		require.NoError(t, err)
		waba, _ := h.get(t, entity.KeyWabaID)
		assert.Equal(t, "waba-1", waba)
	})

	t.Run("StopsOnCancel", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(sessionCtx())
		cancel()

		err := h.uc.Listen(ctx, make(chan entity.SignupMessage))

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCallback_Run(t *testing.T) {
	params := entity.CallbackParams{Code: "code-1", State: "st-1"}

	t.Run("ProviderErrorRedirectsAfterDelay", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), entity.CallbackParams{Error: "access_denied", ErrorDescription: "User denied"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateGenericError, res.State)
		assert.Equal(t, "access_denied", res.ErrorCode)
		assert.Equal(t, "User denied", res.Message)
		assert.Empty(t, h.nav.URLs())

		h.sched.Advance(DefaultErrorDelay - time.Millisecond)
		assert.Empty(t, h.nav.URLs())
		h.sched.Advance(time.Millisecond)
		assert.Equal(t, []string{testFrontend + "/settings?error=access_denied"}, h.nav.URLs())
		assert.Empty(t, h.backend.exchangeCalls)
	})

	t.Run("MissingCode", func(t *testing.T) {
		h := newHarness(t)
		cb := h.callback(t)

		res, err := cb.Run(sessionCtx(), entity.CallbackParams{State: "st-1"})

		require.NoError(t, err)
		assert.Equal(t, entity.StateGenericError, res.State)
		assert.Equal(t, entity.ErrCodeInvalidCallback, res.ErrorCode)
		assert.Empty(t, h.backend.exchangeCalls)
	})

	t.Run("StateMismatch", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		require.NoError(t, h.storage.Set(context.Background(), testSID, entity.KeyConnectorStatePrefix+"meta", "other"))
		h.seedSetup(t)
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeInvalidState, res.ErrorCode)
		assert.Empty(t, h.backend.exchangeCalls)
	})

	t.Run("EmptySetupHandsOff", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateHandedOff, res.State)
		assert.Equal(t, []string{"https://api.example.com/api/auth/meta/callback?code=code-1&state=st-1"}, h.nav.URLs())
		assert.Empty(t, h.backend.exchangeCalls)
	})

	t.Run("GraceExpiresThenHandsOff", func(t *testing.T) {
		// Arrange
		h := newHarness(t, func(c *Config) {
			c.SetupGrace = 20 * time.Millisecond
			c.SetupPoll = 5 * time.Millisecond
		})
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateHandedOff, res.State)
	})

	t.Run("SetupArrivingDuringGrace", func(t *testing.T) {
		// Arrange
		h := newHarness(t, func(c *Config) {
			c.SetupGrace = 5 * time.Second
			c.SetupPoll = 5 * time.Millisecond
		})
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusOK, Success: true}
		cb := h.callback(t)

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = h.storage.Set(context.Background(), testSID, entity.KeyWabaID, "waba-1")
		}()

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		require.Len(t, h.backend.exchangeCalls, 1)
		assert.Equal(t, "waba-1", h.backend.exchangeCalls[0].Setup.WabaID)
	})

	t.Run("SetupFromURL", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusOK, Success: true}
		cb := h.callback(t)
		in := params
		in.Setup = entity.SetupContext{WabaID: "waba-url"}

		// Act
		res, err := cb.Run(sessionCtx(), in)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		require.Len(t, h.backend.exchangeCalls, 1)
		assert.Equal(t, entity.SetupContext{WabaID: "waba-url"}, h.backend.exchangeCalls[0].Setup)
	})

	t.Run("Success", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusOK, Success: true, PhoneNumber: "+62 811"}
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		assert.Equal(t, "+62 811", res.PhoneNumber)
		assert.Equal(t, entity.ExchangeRequest{
			Code:  "code-1",
			State: "st-1",
			Setup: entity.SetupContext{WabaID: "waba-1", PhoneNumberID: "phone-1", BusinessID: "biz-1"},
		}, h.backend.exchangeCalls[0])

		for _, key := range entity.SetupKeys {
			_, ok := h.get(t, key)
			assert.False(t, ok, key)
		}

		assert.Equal(t, []time.Duration{DefaultSuccessDelay}, h.sched.Pending())
		h.sched.Advance(DefaultSuccessDelay)
		assert.Equal(t, []string{testFrontend + "/settings?success=whatsapp_connected"}, h.nav.URLs())

		require.Len(t, h.messaging.whatsapp, 1)
		assert.Equal(t, event.ConnectOutcomeConnected, h.messaging.whatsapp[0].Outcome)
		assert.Equal(t, testSID, h.messaging.whatsapp[0].SessionID)
	})

	t.Run("ConflictRequiresPIN", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusConflict, PhoneNumber: "+62 811"}
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StatePinRequired, res.State)
		assert.Equal(t, "+62 811", res.PhoneNumber)
		assert.Empty(t, h.sched.Pending())
		assert.Empty(t, h.nav.URLs())

		waba, ok := h.get(t, entity.KeyWabaID)
		assert.True(t, ok)
		assert.Equal(t, "waba-1", waba)

		raw, ok := h.get(t, entity.KeyPendingPIN)
		require.True(t, ok)
		var pending entity.PendingPIN
		require.NoError(t, json.Unmarshal([]byte(raw), &pending))
		assert.Equal(t, "+62 811", pending.PhoneNumber)
		assert.Equal(t, "waba-1", pending.Setup.WabaID)

		require.Len(t, h.messaging.whatsapp, 1)
		assert.Equal(t, event.ConnectOutcomePinRequired, h.messaging.whatsapp[0].Outcome)
	})

	t.Run("RegistrationFailed", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusBadGateway, Error: "Number blocked"}
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateRegistrationFailed, res.State)
		assert.Equal(t, "Number blocked", res.Message)
		h.sched.Advance(DefaultErrorDelay)
		assert.Equal(t, []string{testFrontend + "/settings?error=registration_failed&detail=Number+blocked"}, h.nav.URLs())
	})

	t.Run("TransportError", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchangeErr = errors.New("connection refused")
		cb := h.callback(t)

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateGenericError, res.State)
		assert.Equal(t, entity.ErrCodeSetupFailed, res.ErrorCode)
		require.Len(t, h.messaging.whatsapp, 1)
		assert.Equal(t, event.ConnectOutcomeFailed, h.messaging.whatsapp[0].Outcome)
	})

	t.Run("UnexpectedStatus", func(t *testing.T) {
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusBadRequest, Message: "Bad code"}
		cb := h.callback(t)

		res, err := cb.Run(sessionCtx(), params)

		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeSetupFailed, res.ErrorCode)
		assert.Equal(t, "Bad code", res.Message)
	})

	t.Run("DuplicateState", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusConflict}
		_, err := h.callback(t).Run(sessionCtx(), params)
		require.NoError(t, err)

		// Act
		res, err := h.callback(t).Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeDuplicateCallback, res.ErrorCode)
		assert.Len(t, h.backend.exchangeCalls, 1)
	})

	t.Run("AlreadyProcessed", func(t *testing.T) {
		h := newHarness(t)
		cb := h.callback(t)
		_, err := cb.Run(sessionCtx(), entity.CallbackParams{Error: "access_denied"})
		require.NoError(t, err)

		_, err = cb.Run(sessionCtx(), params)

		requireCode(t, err, goerror.CodeConflict)
	})

	t.Run("CloseCancelsRedirect", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusOK, Success: true}
		cb := h.callback(t)
		_, err := cb.Run(sessionCtx(), params)
		require.NoError(t, err)

		// Act
		cb.Close()
		h.sched.Advance(time.Minute)

		// Assert
		assert.Empty(t, h.sched.Pending())
		assert.Empty(t, h.nav.URLs())
	})

	t.Run("ClosedDuringExchange", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.seedSetup(t)
		h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusOK, Success: true}
		cb := h.callback(t)
		h.backend.exchangeHook = cb.Close

		// Act
		res, err := cb.Run(sessionCtx(), params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		waba, ok := h.get(t, entity.KeyWabaID)
		assert.True(t, ok)
		assert.Equal(t, "waba-1", waba)
		assert.Empty(t, h.sched.Pending())
		assert.Empty(t, h.nav.URLs())
		assert.Empty(t, h.messaging.whatsapp)
	})

	t.Run("RequiresSession", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.uc.NewCallback(context.Background(), Environment{Scheduler: h.sched, Navigator: h.nav})

		requireCode(t, err, goerror.CodeUnauthorized)
	})
}

func pinHarness(t *testing.T) (*harness, *Callback) {
	t.Helper()

	h := newHarness(t)
	h.seedSetup(t)
	h.backend.exchange = &entity.ExchangeResponse{StatusCode: http.StatusConflict, PhoneNumber: "+62 811"}
	cb := h.callback(t)
	res, err := cb.Run(sessionCtx(), entity.CallbackParams{Code: "code-1", State: "st-1"})
	require.NoError(t, err)
	require.Equal(t, entity.StatePinRequired, res.State)
	h.messaging.whatsapp = nil

	return h, cb
}

func TestCallback_SubmitPIN(t *testing.T) {
	t.Run("MalformedPINMakesNoCall", func(t *testing.T) {
		h, cb := pinHarness(t)

		for _, pin := range []string{"12345", "1234567", "12a456", ""} {
			_, err := cb.SubmitPIN(sessionCtx(), pin)
			requireCode(t, err, goerror.CodeInvalidInput)
		}

		assert.Empty(t, h.backend.registerCalls)
		assert.Equal(t, entity.StatePinRequired, cb.State())
	})

	t.Run("Registered", func(t *testing.T) {
		// Arrange
		h, cb := pinHarness(t)
		h.backend.register = &entity.RegisterResponse{StatusCode: http.StatusOK, Registered: true}

		// Act
		res, err := cb.SubmitPIN(sessionCtx(), "123456")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		assert.Equal(t, []string{"123456"}, h.backend.registerCalls)
		for _, key := range append([]string{entity.KeyPendingPIN}, entity.SetupKeys...) {
			_, ok := h.get(t, key)
			assert.False(t, ok, key)
		}
		h.sched.Advance(DefaultSuccessDelay)
		assert.Equal(t, []string{testFrontend + "/settings?success=whatsapp_connected"}, h.nav.URLs())
		require.Len(t, h.messaging.whatsapp, 1)
		assert.Equal(t, "+62 811", h.messaging.whatsapp[0].PhoneNumber)
	})

	t.Run("Rejected", func(t *testing.T) {
		// Arrange
		h, cb := pinHarness(t)
		h.backend.register = &entity.RegisterResponse{StatusCode: http.StatusBadRequest, DetailMsg: "Incorrect PIN", Detail: "raw"}

		// Act
		res, err := cb.SubmitPIN(sessionCtx(), "123456")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StatePinRequired, res.State)
		assert.Equal(t, "Incorrect PIN", res.Message)
		_, ok := h.get(t, entity.KeyWabaID)
		assert.True(t, ok)
	})

	t.Run("BackendUnreachable", func(t *testing.T) {
		h, cb := pinHarness(t)
		h.backend.registerErr = errors.New("timeout")

		res, err := cb.SubmitPIN(sessionCtx(), "123456")

		require.NoError(t, err)
		assert.Equal(t, DefaultPINFailure, res.Message)
		assert.Equal(t, entity.StatePinRequired, cb.State())
	})

	t.Run("ResumedInNewView", func(t *testing.T) {
		// Arrange
		h, cb := pinHarness(t)
		cb.Close()
		h.backend.register = &entity.RegisterResponse{StatusCode: http.StatusOK, Success: true}
		next := h.callback(t)

		// Act
		resumed, err := next.Resume(sessionCtx())
		require.NoError(t, err)
		res, err := next.SubmitPIN(sessionCtx(), "654321")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "+62 811", resumed.PhoneNumber)
		assert.Equal(t, entity.StateSuccess, res.State)
	})

	t.Run("NoPendingVerification", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.callback(t).SubmitPIN(sessionCtx(), "123456")

		requireCode(t, err, goerror.CodeNotFound)
		assert.Empty(t, h.backend.registerCalls)
	})
}

func TestCallback_CancelPIN(t *testing.T) {
	t.Run("NavigatesImmediately", func(t *testing.T) {
		// Arrange
		h, cb := pinHarness(t)

		// Act
		res, err := cb.CancelPIN(sessionCtx())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateGenericError, res.State)
		assert.Equal(t, entity.ErrCodePinRequired, res.ErrorCode)
		assert.Equal(t, []string{testFrontend + "/settings?error=pin_required"}, h.nav.URLs())
		_, ok := h.get(t, entity.KeyPendingPIN)
		assert.False(t, ok)
	})

	t.Run("AfterSuccess", func(t *testing.T) {
		h, cb := pinHarness(t)
		h.backend.register = &entity.RegisterResponse{StatusCode: http.StatusOK, Success: true}
		_, err := cb.SubmitPIN(sessionCtx(), "123456")
		require.NoError(t, err)

		_, err = cb.CancelPIN(sessionCtx())

		requireCode(t, err, goerror.CodeConflict)
	})
}

func TestCallback_ConnectorCallback(t *testing.T) {
	params := entity.CallbackParams{Code: "code-1", State: "st-1"}

	t.Run("Connected", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.connector = &entity.ConnectorResponse{StatusCode: http.StatusOK, Success: true}
		cb := h.callback(t)

		// Act
		res, err := cb.ConnectorCallback(sessionCtx(), entity.ProviderInstagram, params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StateSuccess, res.State)
		h.sched.Advance(DefaultSuccessDelay)
		assert.Equal(t, []string{testFrontend + "/integrations?connected=instagram"}, h.nav.URLs())
		require.Len(t, h.messaging.connectors, 1)
		assert.True(t, h.messaging.connectors[0].Connected)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.callback(t).ConnectorCallback(sessionCtx(), "myspace", params)

		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("ShopifyWithoutShop", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.callback(t).ConnectorCallback(sessionCtx(), entity.ProviderShopify, params)

		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeInvalidCallback, res.ErrorCode)
		assert.Empty(t, h.backend.connectorCalls)
	})

	t.Run("BackendRejects", func(t *testing.T) {
		// Arrange
		h := newHarness(t)
		h.backend.connector = &entity.ConnectorResponse{StatusCode: http.StatusBadRequest, Error: "invalid grant"}
		cb := h.callback(t)

		// Act
		res, err := cb.ConnectorCallback(sessionCtx(), entity.ProviderGoogleSheets, params)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeConnectionFailed, res.ErrorCode)
		assert.Equal(t, "invalid grant", res.Message)
		h.sched.Advance(DefaultErrorDelay)
		assert.Equal(t, []string{testFrontend + "/integrations?error=connection_failed"}, h.nav.URLs())
		require.Len(t, h.messaging.connectors, 1)
		assert.False(t, h.messaging.connectors[0].Connected)
	})

	t.Run("ProviderError", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.callback(t).ConnectorCallback(sessionCtx(), entity.ProviderInstagram, entity.CallbackParams{Error: "access_denied"})

		require.NoError(t, err)
		assert.Equal(t, "access_denied", res.ErrorCode)
		assert.Empty(t, h.backend.connectorCalls)
	})
}

func TestUsecase_AuthorizeURL(t *testing.T) {
	providers := func(c *Config) {
		c.Providers = map[string]Provider{
			entity.ProviderMeta: {
				OAuth: oauth2.Config{
					ClientID:    "meta-client",
					RedirectURL: testFrontend + "/auth/meta/callback",
					Scopes:      []string{"whatsapp_business_management"},
					Endpoint:    ProviderEndpoint(entity.ProviderMeta),
				},
				Extras: map[string]string{"config_id": "cfg-1"},
			},
			entity.ProviderShopify: {
				OAuth: oauth2.Config{ClientID: "shop-client"},
			},
			entity.ProviderGoogleSheets: {
				OAuth: oauth2.Config{ClientID: "google-client", Endpoint: ProviderEndpoint(entity.ProviderGoogleSheets)},
			},
		}
	}

	t.Run("Meta", func(t *testing.T) {
		// Arrange
		h := newHarness(t, providers)

		// Act
		out, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderMeta})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "state-1", out.State)

		u, err := url.Parse(out.URL)
		require.NoError(t, err)
		assert.Equal(t, "www.facebook.com", u.Host)
		assert.Equal(t, "meta-client", u.Query().Get("client_id"))
		assert.Equal(t, "state-1", u.Query().Get("state"))
		assert.Equal(t, "cfg-1", u.Query().Get("config_id"))

		stored, _ := h.get(t, entity.KeyConnectorStatePrefix+entity.ProviderMeta)
		assert.Equal(t, "state-1", stored)
	})

	t.Run("ShopifyUsesShopDomain", func(t *testing.T) {
		h := newHarness(t, providers)

		out, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderShopify, Shop: "Acme.myshopify.com"})

		require.NoError(t, err)
		u, err := url.Parse(out.URL)
		require.NoError(t, err)
		assert.Equal(t, "acme.myshopify.com", u.Host)
		assert.Equal(t, "/admin/oauth/authorize", u.Path)
	})

	t.Run("ShopifyRejectsForeignDomain", func(t *testing.T) {
		h := newHarness(t, providers)

		_, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderShopify, Shop: "evil.example.com"})

		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("GoogleRequestsOfflineAccess", func(t *testing.T) {
		h := newHarness(t, providers)

		out, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderGoogleSheets})

		require.NoError(t, err)
		u, err := url.Parse(out.URL)
		require.NoError(t, err)
		assert.Equal(t, "offline", u.Query().Get("access_type"))
		assert.Equal(t, "consent", u.Query().Get("prompt"))
	})

	t.Run("NotConfigured", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderInstagram})

		requireCode(t, err, goerror.CodeNotFound)
	})

	t.Run("IssuedStateIsChecked", func(t *testing.T) {
		// Arrange
		h := newHarness(t, providers)
		h.backend.connector = &entity.ConnectorResponse{StatusCode: http.StatusOK, Success: true}
		_, err := h.uc.AuthorizeURL(sessionCtx(), AuthorizeInput{Provider: entity.ProviderShopify, Shop: "acme.myshopify.com"})
		require.NoError(t, err)

		// Act
		res, err := h.callback(t).ConnectorCallback(sessionCtx(), entity.ProviderShopify, entity.CallbackParams{
			Code: "c", State: "forged", Shop: "acme.myshopify.com",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.ErrCodeInvalidState, res.ErrorCode)
		assert.Empty(t, h.backend.connectorCalls)
	})
}
