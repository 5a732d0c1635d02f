package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/wapilot/internal/connect/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Messaging publishes connect outcomes for the notification module.
type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishConnectWhatsApp(ctx context.Context, e usecase.ConnectWhatsAppEvent) error {
	return m.publish(ctx, "PublishConnectWhatsApp", event.ConnectWhatsAppDestination, event.ConnectWhatsAppMessage{
		SessionID:     e.SessionID,
		Outcome:       e.Outcome,
		Message:       e.Message,
		WabaID:        e.WabaID,
		PhoneNumberID: e.PhoneNumberID,
		PhoneNumber:   e.PhoneNumber,
	})
}

func (m *Messaging) PublishConnectConnector(ctx context.Context, e usecase.ConnectConnectorEvent) error {
	return m.publish(ctx, "PublishConnectConnector", event.ConnectConnectorDestination, event.ConnectConnectorMessage{
		SessionID: e.SessionID,
		Provider:  e.Provider,
		Connected: e.Connected,
		Error:     e.Error,
	})
}

func (m *Messaging) publish(ctx context.Context, op, dest string, payload any) (err error) {
	ctx, span := m.ins.Tracer("connect.outbound.mq").Start(ctx, op)
	span.SetAttributes(attribute.String("messaging.destination.name", dest))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = m.client.Publish(ctx, dest, messaging.OutgoingMessage{
		Body: body,
		Headers: []messaging.Header{
			{Key: event.HeaderCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))},
		},
	})
	return err
}
