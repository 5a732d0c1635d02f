package inbound

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeConnectWhatsApp(ctx context.Context, in usecase.ConsumeConnectWhatsAppInput) error
	ConsumeConnectConnector(ctx context.Context, in usecase.ConsumeConnectConnectorInput) error
}

type ucStream interface {
	StreamNotifications(ctx context.Context) (<-chan usecase.StreamEvent, error)
}

type uc interface {
	ucConsumer
	ucStream

	List(ctx context.Context) (*usecase.ListOutput, error)
	Add(ctx context.Context, in usecase.AddInput) (*usecase.AddOutput, error)
	MarkRead(ctx context.Context, in usecase.MarkReadInput) error
	MarkAllRead(ctx context.Context) error
	Remove(ctx context.Context, in usecase.RemoveInput) error
	Clear(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}
