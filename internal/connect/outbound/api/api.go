// Package api is the client of the platform backend that redeems
// authorization codes and registers WhatsApp phone numbers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderSessionID     = "X-Session-ID"
	HeaderCorrelationID = "X-Correlation-ID"

	PathExchangeCode  = "/api/auth/meta/exchange-code"
	PathMetaCallback  = "/api/auth/meta/callback"
	PathRegisterPhone = "/api/whatsapp/register-phone"

	maxResponseBytes = 1 << 20
)

type Config struct {
	BaseURL string
	// RegisterPath overrides PathRegisterPhone.
	RegisterPath string
	Timeout      time.Duration
	// Transport is wrapped with otelhttp. Nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Backend calls the platform backend over HTTP.
type Backend struct {
	baseURL      string
	registerPath string
	client       *http.Client
	ins          instrument.Instrumentation
}

func New(cfg Config, ins instrument.Instrumentation) (*Backend, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = PathRegisterPhone
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Backend{
		baseURL:      base.String(),
		registerPath: cfg.RegisterPath,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		ins: ins,
	}, nil
}

func (b *Backend) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return b.ins.Tracer("connect.outbound.api").Start(ctx, name)
}

func (b *Backend) endSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// MetaCallbackURL is the backend page that finishes the OAuth flow on its own.
func (b *Backend) MetaCallbackURL(code, state string) string {
	q := url.Values{}
	q.Set("code", code)
	q.Set("state", state)
	return b.baseURL + PathMetaCallback + "?" + q.Encode()
}

type exchangeRequest struct {
	Code          string `json:"code"`
	State         string `json:"state"`
	WabaID        string `json:"waba_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
}

type exchangeResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	Error              string `json:"error"`
	PhoneNumber        string `json:"phone_number"`
	DisplayPhoneNumber string `json:"display_phone_number"`
}

// ExchangeCode redeems an authorization code. Any HTTP status is returned as
// a response; only transport failures and undecodable 2xx bodies are errors.
func (b *Backend) ExchangeCode(ctx context.Context, sid string, in entity.ExchangeRequest) (_ *entity.ExchangeResponse, err error) {
	ctx, span := b.startSpan(ctx, "ExchangeCode")
	status := 0
	defer func() { b.endSpan(span, status, err) }()

	var body exchangeResponse
	status, err = b.post(ctx, sid, PathExchangeCode, exchangeRequest{
		Code:          in.Code,
		State:         in.State,
		WabaID:        in.Setup.WabaID,
		PhoneNumberID: in.Setup.PhoneNumberID,
		BusinessID:    in.Setup.BusinessID,
	}, &body)
	if err != nil {
		return nil, err
	}

	phone := body.PhoneNumber
	if phone == "" {
		phone = body.DisplayPhoneNumber
	}

	return &entity.ExchangeResponse{
		StatusCode:  status,
		Success:     body.Success,
		Message:     body.Message,
		Error:       body.Error,
		PhoneNumber: phone,
	}, nil
}

type registerRequest struct {
	PIN string `json:"pin"`
}

type registerResponse struct {
	Success    bool            `json:"success"`
	Registered bool            `json:"registered"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Detail     json.RawMessage `json:"detail"`
}

type registerDetail struct {
	Message     string `json:"message"`
	UserMessage string `json:"user_message"`
	RequiresPIN bool   `json:"requires_pin"`
}

// RegisterPhone submits the two-step verification PIN for the session.
func (b *Backend) RegisterPhone(ctx context.Context, sid, pin string) (_ *entity.RegisterResponse, err error) {
	ctx, span := b.startSpan(ctx, "RegisterPhone")
	status := 0
	defer func() { b.endSpan(span, status, err) }()

	var body registerResponse
	status, err = b.post(ctx, sid, b.registerPath, registerRequest{PIN: pin}, &body)
	if err != nil {
		return nil, err
	}

	out := &entity.RegisterResponse{
		StatusCode: status,
		Success:    body.Success,
		Registered: body.Registered,
		Message:    body.Message,
		Error:      body.Error,
	}

	var detailText string
	var detail registerDetail
	switch {
	case len(body.Detail) == 0:
	case json.Unmarshal(body.Detail, &detailText) == nil:
		out.Detail = detailText
	case json.Unmarshal(body.Detail, &detail) == nil:
		out.DetailMsg = detail.Message
		out.DetailUser = detail.UserMessage
		out.RequiresPIN = detail.RequiresPIN
	}

	return out, nil
}

type connectorRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
	Shop  string `json:"shop,omitempty"`
}

type connectorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ConnectorCallback hands a connector authorization code to the backend.
func (b *Backend) ConnectorCallback(ctx context.Context, sid, provider string, p entity.CallbackParams) (_ *entity.ConnectorResponse, err error) {
	ctx, span := b.startSpan(ctx, "ConnectorCallback")
	span.SetAttributes(attribute.String("connector.provider", provider))
	status := 0
	defer func() { b.endSpan(span, status, err) }()

	var body connectorResponse
	status, err = b.post(ctx, sid, "/api/connectors/"+url.PathEscape(provider)+"/callback", connectorRequest{
		Code:  p.Code,
		State: p.State,
		Shop:  p.Shop,
	}, &body)
	if err != nil {
		return nil, err
	}

	return &entity.ConnectorResponse{
		StatusCode: status,
		Success:    body.Success,
		Message:    body.Message,
		Error:      body.Error,
	}, nil
}

// post sends in as JSON and decodes the answer into out. A body that cannot
// be decoded is an error only for 2xx answers.
func (b *Backend) post(ctx context.Context, sid, path string, in, out any) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if sid != "" {
		req.Header.Set(HeaderSessionID, sid)
	}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		req.Header.Set(HeaderCorrelationID, cID)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if err := json.Unmarshal(raw, out); err != nil && ok {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}
