package inbound

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/wa/usecase"
)

type uc interface {
	Link(ctx context.Context, in usecase.LinkInput) (*usecase.LinkOutput, error)
	QRCode(ctx context.Context, in usecase.QRCodeInput) ([]byte, error)
	ShareQRCode(ctx context.Context, in usecase.QRCodeInput) (*usecase.ShareOutput, error)
}
