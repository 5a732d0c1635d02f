package usecase

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
)

type ListOutput struct {
	Notifications []entity.Notification
	UnreadCount   int
}

func (s *Usecase) List(ctx context.Context) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	list := s.load(ctx, owner)

	return &ListOutput{Notifications: list, UnreadCount: entity.UnreadCount(list)}, nil
}

func (s *Usecase) UnreadCount(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "UnreadCount")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return 0, err
	}

	return entity.UnreadCount(s.load(ctx, owner)), nil
}
