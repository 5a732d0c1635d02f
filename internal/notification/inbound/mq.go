package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/wapilot/internal/pkg/goroutine"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
)

type ConsumerConfig struct {
	// Enabled lists the consumer names to start.
	Enabled     []string
	Concurrency int
}

type MQDeps struct {
	Routine    *goroutine.Manager
	Messaging  messaging.Messaging
	UUID       uid.StringID
	Instrument instrument.Instrumentation
}

// RegisterMQConsumer starts one background consumer per enabled name. Each
// runs until ctx is done. A consumer joins a queue group named after itself
// so replicas share its messages.
func RegisterMQConsumer(ctx context.Context, cfg ConsumerConfig, deps MQDeps, uc ucConsumer) {
	h := &MQHandler{uc: uc, uuid: deps.UUID, ins: deps.Instrument}

	routes := map[string]struct {
		source  string
		handler messaging.Handler
	}{
		event.ConnectWhatsAppConsumerNotification:  {event.ConnectWhatsAppDestination, h.ConnectWhatsAppNotification},
		event.ConnectConnectorConsumerNotification: {event.ConnectConnectorDestination, h.ConnectConnectorNotification},
	}

	for name, route := range routes {
		if !slices.Contains(cfg.Enabled, name) {
			continue
		}

		ok := deps.Routine.Go(ctx, func(ctx context.Context) error {
			slog.InfoContext(ctx, "consumer started", "consumer", name, "source", route.source)
			err := deps.Messaging.Consume(ctx, route.source, route.handler,
				messaging.WithQueueGroup(name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(cfg.Concurrency),
			)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		if !ok {
			slog.WarnContext(ctx, "consumer not started", "consumer", name)
		}
	}
}
