package usecase

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
)

type AddInput struct {
	Type        string `validate:"required,oneof=success warning error info"`
	Title       string `validate:"required,max=200"`
	Message     string `validate:"max=2000"`
	Category    string `validate:"required,oneof=welcome balance message campaign error system whatsapp"`
	ActionURL   string `validate:"omitempty,max=2048"`
	ActionLabel string `validate:"omitempty,max=100"`
	Persistent  bool
}

type AddOutput struct {
	// Notification is the new entry, or the existing one that suppressed it.
	Notification entity.Notification
	Added        bool
	UnreadCount  int
}

// Add prepends a notification unless one with the same category and title was
// added in the last five minutes.
func (s *Usecase) Add(ctx context.Context, in AddInput) (*AddOutput, error) {
	ctx, span := s.startSpan(ctx, "Add")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.add(ctx, owner, in), nil
}

func (s *Usecase) add(ctx context.Context, owner string, in AddInput) *AddOutput {
	unlock := s.lock(owner)
	defer unlock()

	now := s.clock.Now()
	list := s.load(ctx, owner)

	n := entity.Notification{
		ID:          s.uuid.Generate(),
		Type:        entity.Type(in.Type),
		Title:       in.Title,
		Message:     in.Message,
		Timestamp:   now,
		Read:        false,
		Category:    entity.Category(in.Category),
		ActionURL:   in.ActionURL,
		ActionLabel: in.ActionLabel,
		Persistent:  in.Persistent,
	}

	list, added := entity.Add(list, n)
	s.save(ctx, owner, list)

	if !added {
		n, _ = entity.FindDuplicate(list, n.Category, n.Title, now)
	}

	unread := entity.UnreadCount(list)
	if added {
		s.publishNotification(owner, StreamEvent{Action: StreamActionAdded, Notification: &n, UnreadCount: unread})
	}

	return &AddOutput{Notification: n, Added: added, UnreadCount: unread}
}
