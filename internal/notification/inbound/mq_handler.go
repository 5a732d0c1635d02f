package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/wapilot/internal/notification/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

// decode runs fn with the JSON payload of msg. Undecodable bodies are logged
// and acked; redelivering them would not help.
func decode[T any](h *MQHandler, ctx context.Context, name string, msg messaging.Message, fn func(context.Context, T) error) error {
	cID := messaging.HeaderValue(msg, event.HeaderCorrelationID)
	if cID == "" {
		cID = h.uuid.Generate()
	}
	ctx = instrument.SetCorrelationID(ctx, cID)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, name)
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: "+name, "subject", msg.Subject(), "msg_body", string(body))

	var payload T
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body", "consumer", name, "msg_body", string(body), "error", err)
		return nil
	}

	if err := fn(ctx, payload); err != nil {
		slog.ErrorContext(ctx, "failed to consume message", "consumer", name, "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) ConnectWhatsAppNotification(ctx context.Context, msg messaging.Message) error {
	return decode(h, ctx, "ConnectWhatsAppNotification", msg, func(ctx context.Context, p event.ConnectWhatsAppMessage) error {
		return h.uc.ConsumeConnectWhatsApp(ctx, usecase.ConsumeConnectWhatsAppInput{
			SessionID:   p.SessionID,
			Outcome:     p.Outcome,
			Message:     p.Message,
			PhoneNumber: p.PhoneNumber,
		})
	})
}

func (h *MQHandler) ConnectConnectorNotification(ctx context.Context, msg messaging.Message) error {
	return decode(h, ctx, "ConnectConnectorNotification", msg, func(ctx context.Context, p event.ConnectConnectorMessage) error {
		return h.uc.ConsumeConnectConnector(ctx, usecase.ConsumeConnectConnectorInput{
			SessionID: p.SessionID,
			Provider:  p.Provider,
			Connected: p.Connected,
			Error:     p.Error,
		})
	})
}
