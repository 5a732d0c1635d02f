package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
)

const msgConnectionFailed = "We could not connect your account. Please try again."

type connectorInput struct {
	Provider string `validate:"required,oneof=instagram shopify google_sheets"`
}

// ConnectorCallback completes the OAuth flow of a connector other than
// WhatsApp. The backend redeems the code; this view only reports the result
// and sends the browser back to the integrations page.
func (c *Callback) ConnectorCallback(ctx context.Context, provider string, params entity.CallbackParams) (*entity.CallbackResult, error) {
	ctx, span := c.uc.startSpan(ctx, "Callback.ConnectorCallback")
	defer span.End()

	if err := c.uc.validator.Validate(connectorInput{Provider: provider}); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if c.State() != entity.StateProcessing {
		return nil, goerror.NewBusiness("callback already processed", goerror.CodeConflict)
	}

	fail := func(code, msg string, publish bool) *entity.CallbackResult {
		return c.settle(ctx, flowConnector, entity.CallbackResult{
			State:         entity.StateGenericError,
			Message:       msg,
			ErrorCode:     code,
			RedirectURL:   c.uc.integrationsURL("error", code),
			RedirectDelay: c.uc.cfg.ErrorDelay,
		}, func(ctx context.Context) {
			if publish {
				c.publishConnector(ctx, provider, false, code)
			}
		})
	}

	if params.Error != "" {
		slog.WarnContext(ctx, "provider returned an error", "provider", provider, "error", params.Error)
		return fail(params.Error, firstNonEmpty(params.ErrorDescription, params.Error), false), nil
	}

	if params.Code == "" || params.State == "" || (provider == entity.ProviderShopify && params.Shop == "") {
		return fail(entity.ErrCodeInvalidCallback, "The callback is missing its authorization code.", false), nil
	}

	if err := c.checkState(ctx, provider, params.State); err != nil {
		slog.WarnContext(ctx, "callback state rejected", "provider", provider, "error", err)
		return fail(entity.ErrCodeInvalidState, "The authorization request could not be verified.", false), nil
	}

	var resp *entity.ConnectorResponse
	err := c.redeem(ctx, provider+":"+params.State, func(ctx context.Context) error {
		var err error
		resp, err = c.uc.repoBackend.ConnectorCallback(ctx, c.store.ID(), provider, params)
		return err
	})

	if errors.Is(err, errDuplicate) {
		slog.WarnContext(ctx, "authorization code already redeemed", "provider", provider)
		return fail(entity.ErrCodeDuplicateCallback, "This authorization was already used. Please connect again.", false), nil
	}

	if err != nil {
		slog.ErrorContext(ctx, "failed to complete connector callback", "provider", provider, "error", err)
		return fail(entity.ErrCodeConnectionFailed, msgConnectionFailed, true), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !resp.Success {
		slog.WarnContext(ctx, "connector callback not accepted", "provider", provider, "status", resp.StatusCode)
		return fail(entity.ErrCodeConnectionFailed, firstNonEmpty(resp.Error, resp.Message, msgConnectionFailed), true), nil
	}

	return c.settle(ctx, flowConnector, entity.CallbackResult{
		State:         entity.StateSuccess,
		Message:       firstNonEmpty(resp.Message, "Account connected successfully."),
		RedirectURL:   c.uc.integrationsURL("connected", provider),
		RedirectDelay: c.uc.cfg.SuccessDelay,
	}, func(ctx context.Context) {
		c.publishConnector(ctx, provider, true, "")
	}), nil
}
