package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/qrcode"
	"github.com/shandysiswandi/wapilot/internal/wa/entity"
)

type LinkInput struct {
	Phone string `validate:"required,msisdn"`
	Text  string `validate:"max=1000"`
}

type LinkOutput struct {
	Phone string
	URL   string
}

type QRCodeInput struct {
	Phone string `validate:"required,msisdn"`
	Text  string `validate:"max=1000"`
	Size  int    `validate:"omitempty,min=128,max=1024"`
}

type ShareOutput struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// Link builds the click-to-chat URL of a phone number written in any
// common notation.
func (s *Usecase) Link(ctx context.Context, in LinkInput) (*LinkOutput, error) {
	_, span := s.startSpan(ctx, "Link")
	defer span.End()

	in.Phone = entity.NormalizePhone(in.Phone)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return &LinkOutput{Phone: in.Phone, URL: entity.Link(in.Phone, in.Text)}, nil
}

// QRCode renders the click-to-chat URL as a PNG.
func (s *Usecase) QRCode(ctx context.Context, in QRCodeInput) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "QRCode")
	defer span.End()

	return s.render(ctx, in)
}

// ShareQRCode uploads the QR code and returns a temporary download URL.
func (s *Usecase) ShareQRCode(ctx context.Context, in QRCodeInput) (*ShareOutput, error) {
	ctx, span := s.startSpan(ctx, "ShareQRCode")
	defer span.End()

	if s.repoObject == nil {
		return nil, goerror.NewBusiness("QR code sharing is disabled", goerror.CodeNotFound)
	}

	png, err := s.render(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	key := s.cfg.KeyPrefix + now.Format("2006/01/02/") + s.uuid.Generate() + ".png"

	if err := s.repoObject.PutQRCode(ctx, key, png); err != nil {
		slog.ErrorContext(ctx, "failed to upload qr code", "key", key, "error", err)
		return nil, goerror.NewUpstream(err, "Failed to store QR code")
	}

	url, err := s.repoObject.PresignQRCode(ctx, key, s.cfg.ShareTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign qr code", "key", key, "error", err)
		return nil, goerror.NewUpstream(err, "Failed to share QR code")
	}

	return &ShareOutput{Key: key, URL: url, ExpiresAt: now.Add(s.cfg.ShareTTL)}, nil
}

func (s *Usecase) render(ctx context.Context, in QRCodeInput) ([]byte, error) {
	in.Phone = entity.NormalizePhone(in.Phone)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.Size == 0 {
		in.Size = qrcode.DefaultSize
	}

	png, err := qrcode.PNG(entity.Link(in.Phone, in.Text), in.Size)
	if errors.Is(err, qrcode.ErrSize) {
		return nil, goerror.NewInvalidInput(nil, "size", err.Error())
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "error", err)
		return nil, goerror.NewServer(err)
	}

	return png, nil
}
