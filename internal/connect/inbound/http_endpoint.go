package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/connect/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
)

type step func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error)

type HTTPEndpoint struct {
	uc uc
}

// CallbackPage is the redirect target registered with the OAuth providers.
// The browser is sent on with a 302 or, when the outcome should be read
// first, a Refresh header.
func (h *HTTPEndpoint) CallbackPage(r *router.Request) (any, error) {
	provider := r.Param("provider")
	params := entity.ParseCallbackQuery(r.URL.Query())

	run := func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error) {
		if provider == entity.ProviderMeta {
			return cb.Run(ctx, params)
		}
		return cb.ConnectorCallback(ctx, provider, params)
	}

	resp, p, err := h.run(r, run)
	if err != nil {
		return nil, err
	}
	if p.url == "" {
		return resp, nil
	}

	return router.Redirect{URL: p.url, Delay: p.delay, Body: resp}, nil
}

// MetaCallback runs the Meta callback for a page that received the redirect
// itself, including the URL fragment the browser never sends to a server.
func (h *HTTPEndpoint) MetaCallback(r *router.Request) (any, error) {
	var req CallbackRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	params, err := entity.ParseCallbackURL(req.URL)
	if err != nil {
		slog.WarnContext(r.Context(), "invalid callback url", "error", err)
		return nil, goerror.NewInvalidInput(nil, "url", "must be a valid URL")
	}

	resp, _, err := h.run(r, func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error) {
		return cb.Run(ctx, params)
	})
	return resp, err
}

func (h *HTTPEndpoint) ResumePIN(r *router.Request) (any, error) {
	resp, _, err := h.run(r, func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error) {
		return cb.Resume(ctx)
	})
	return resp, err
}

func (h *HTTPEndpoint) SubmitPIN(r *router.Request) (any, error) {
	var req PinRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	resp, _, err := h.run(r, func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error) {
		return cb.SubmitPIN(ctx, req.PIN)
	})
	return resp, err
}

func (h *HTTPEndpoint) CancelPIN(r *router.Request) (any, error) {
	resp, _, err := h.run(r, func(ctx context.Context, cb *usecase.Callback) (*entity.CallbackResult, error) {
		return cb.CancelPIN(ctx)
	})
	return resp, err
}

// SignupEvents relays embedded signup window messages to the listener.
func (h *HTTPEndpoint) SignupEvents(r *router.Request) (any, error) {
	var req SignupEventsRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	messages := make(chan entity.SignupMessage, len(req.Messages))
	for _, m := range req.Messages {
		messages <- entity.SignupMessage{Origin: m.Origin, Data: m.Data}
	}
	close(messages)

	return nil, h.uc.Listen(r.Context(), messages)
}

func (h *HTTPEndpoint) Authorize(r *router.Request) (any, error) {
	out, err := h.uc.AuthorizeURL(r.Context(), usecase.AuthorizeInput{
		Provider: r.Param("provider"),
		Shop:     r.Query("shop"),
	})
	if err != nil {
		return nil, err
	}

	return AuthorizeResponse{URL: out.URL, State: out.State}, nil
}

// run executes fn on a Callback whose view lives as long as the request.
func (h *HTTPEndpoint) run(r *router.Request, fn step) (*CallbackResponse, *page, error) {
	p := &page{}
	cb, err := h.uc.NewCallback(r.Context(), usecase.Environment{Scheduler: p, Navigator: p})
	if err != nil {
		return nil, nil, err
	}
	defer cb.Close()

	res, err := fn(r.Context(), cb)
	if err != nil {
		return nil, nil, err
	}

	return &CallbackResponse{
		State:           res.State.String(),
		Message:         res.Message,
		PhoneNumber:     res.PhoneNumber,
		ErrorCode:       res.ErrorCode,
		RedirectURL:     p.url,
		RedirectAfterMs: p.delay.Milliseconds(),
	}, p, nil
}
