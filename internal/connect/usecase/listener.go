package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
)

// HandleMessage records the setup identifiers carried by one embedded signup
// message into the session. Messages from other origins and payloads outside
// the signup schema are ignored. Only storage failures are returned.
func (s *Usecase) HandleMessage(ctx context.Context, msg entity.SignupMessage) error {
	ctx, span := s.startSpan(ctx, "HandleMessage")
	defer span.End()

	store, err := s.bind(ctx)
	if err != nil {
		return err
	}

	return s.handleMessage(ctx, store, msg)
}

// Listen handles messages until the channel is closed or ctx is done. It is
// meant to run for the lifetime of one view.
func (s *Usecase) Listen(ctx context.Context, messages <-chan entity.SignupMessage) error {
	store, err := s.bind(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := s.handleMessage(ctx, store, msg); err != nil {
				slog.WarnContext(ctx, "failed to handle signup message", "error", err)
			}
		}
	}
}

func (s *Usecase) handleMessage(ctx context.Context, store *session.Store, msg entity.SignupMessage) error {
	if !slices.Contains(entity.SignupOrigins, msg.Origin) {
		slog.DebugContext(ctx, "signup message from untrusted origin ignored", "origin", msg.Origin)
		return nil
	}

	payload, ok := decodeSignupPayload(msg.Data)
	if !ok {
		return nil
	}

	writes := make(map[string]string)
	switch {
	case payload.Event.IsFinish():
		for k, v := range entity.SetupFromFields(payload.Data).Values() {
			writes[k] = v
		}
		if payload.Data != nil {
			if blob, err := json.Marshal(payload.Data); err == nil {
				writes[entity.KeySignupData] = string(blob)
			}
		}
	case payload.Event == entity.SignupEventCancel:
		writes[entity.KeySignupCancelled] = entity.TextValue(payload.Data["current_step"])
	case payload.Event == entity.SignupEventError:
		writes[entity.KeySignupError] = entity.TextValue(payload.Data["error_message"])
	default:
		slog.DebugContext(ctx, "signup event ignored", "event", string(payload.Event))
		return nil
	}

	for k, v := range writes {
		if err := store.Set(ctx, k, v); err != nil {
			slog.ErrorContext(ctx, "failed to write signup data to session", "key", k, "error", err)
			return goerror.NewServer(err)
		}
	}

	slog.InfoContext(ctx, "signup message recorded", "event", string(payload.Event), "keys", len(writes))

	return nil
}

// decodeSignupPayload accepts a JSON object or a JSON string holding one.
func decodeSignupPayload(data json.RawMessage) (entity.SignupPayload, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return entity.SignupPayload{}, false
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return entity.SignupPayload{}, false
		}
		data = []byte(text)
	}

	var payload entity.SignupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return entity.SignupPayload{}, false
	}
	if payload.Type != entity.SignupMessageType || payload.Event == "" {
		return entity.SignupPayload{}, false
	}

	return payload, true
}
