package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
)

type ConsumeConnectWhatsAppInput struct {
	SessionID   string `validate:"required"`
	Outcome     string `validate:"required,oneof=connected pin_required registration_failed failed"`
	Message     string
	PhoneNumber string
}

// ConsumeConnectWhatsApp turns a WhatsApp connect outcome into a notification
// for the browser session that ran the flow. Invalid events are dropped.
func (s *Usecase) ConsumeConnectWhatsApp(ctx context.Context, in ConsumeConnectWhatsAppInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeConnectWhatsApp")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	add := AddInput{Category: entity.CategoryWhatsApp.String(), ActionURL: "/settings", ActionLabel: "Open settings"}

	switch in.Outcome {
	case event.ConnectOutcomeConnected:
		add.Type = entity.TypeSuccess.String()
		add.Title = "WhatsApp connected"
		add.Message = "Your WhatsApp Business number is connected and ready to send messages."
	case event.ConnectOutcomePinRequired:
		add.Type = entity.TypeWarning.String()
		add.Title = "WhatsApp PIN required"
		add.Message = "Enter the 6-digit PIN to finish registering your number."
		if in.PhoneNumber != "" {
			add.Message = "Enter the 6-digit PIN to finish registering " + in.PhoneNumber + "."
		}
	case event.ConnectOutcomeRegistrationFailed:
		add.Type = entity.TypeError.String()
		add.Category = entity.CategoryError.String()
		add.Title = "WhatsApp registration failed"
		add.Message = fallback(in.Message, "The phone number could not be registered.")
	default:
		add.Type = entity.TypeError.String()
		add.Category = entity.CategoryError.String()
		add.Title = "WhatsApp connection failed"
		add.Message = fallback(in.Message, "The WhatsApp setup did not complete. Please try again.")
	}

	s.add(ctx, in.SessionID, add)

	return nil
}

type ConsumeConnectConnectorInput struct {
	SessionID string `validate:"required"`
	Provider  string `validate:"required,oneof=meta instagram shopify google_sheets"`
	Connected bool
	Error     string
}

var providerNames = map[string]string{
	"meta":          "Meta",
	"instagram":     "Instagram",
	"shopify":       "Shopify",
	"google_sheets": "Google Sheets",
}

func (s *Usecase) ConsumeConnectConnector(ctx context.Context, in ConsumeConnectConnectorInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeConnectConnector")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	name := providerNames[in.Provider]
	add := AddInput{ActionURL: "/integrations", ActionLabel: "View integrations"}
	if in.Connected {
		add.Type = entity.TypeSuccess.String()
		add.Category = entity.CategorySystem.String()
		add.Title = name + " connected"
		add.Message = name + " is now linked to your workspace."
	} else {
		add.Type = entity.TypeError.String()
		add.Category = entity.CategoryError.String()
		add.Title = name + " connection failed"
		add.Message = fallback(in.Error, "The authorization did not complete. Please try again.")
	}

	s.add(ctx, in.SessionID, add)

	return nil
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
