package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
)

type MarkReadInput struct {
	ID string `validate:"required"`
}

func (s *Usecase) MarkRead(ctx context.Context, in MarkReadInput) error {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	unlock := s.lock(owner)
	defer unlock()

	list, found := entity.MarkRead(s.load(ctx, owner), in.ID)
	if !found {
		return goerror.NewBusiness("notification not found", goerror.CodeNotFound)
	}
	s.save(ctx, owner, list)

	s.publishNotification(owner, StreamEvent{Action: StreamActionRead, ID: in.ID, UnreadCount: entity.UnreadCount(list)})

	return nil
}

func (s *Usecase) MarkAllRead(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "MarkAllRead")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}

	unlock := s.lock(owner)
	defer unlock()

	list := entity.MarkAllRead(s.load(ctx, owner))
	s.save(ctx, owner, list)

	s.publishNotification(owner, StreamEvent{Action: StreamActionReadAll})

	return nil
}

type RemoveInput struct {
	ID string `validate:"required"`
}

func (s *Usecase) Remove(ctx context.Context, in RemoveInput) error {
	ctx, span := s.startSpan(ctx, "Remove")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	unlock := s.lock(owner)
	defer unlock()

	list, found := entity.Remove(s.load(ctx, owner), in.ID)
	if !found {
		return goerror.NewBusiness("notification not found", goerror.CodeNotFound)
	}
	s.save(ctx, owner, list)

	s.publishNotification(owner, StreamEvent{Action: StreamActionRemoved, ID: in.ID, UnreadCount: entity.UnreadCount(list)})

	return nil
}

// Clear drops the owner's whole list, persistent entries included.
func (s *Usecase) Clear(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Clear")
	defer span.End()

	owner, err := s.requireOwner(ctx)
	if err != nil {
		return err
	}

	unlock := s.lock(owner)
	defer unlock()

	if err := s.repoCache.DeleteNotifications(ctx, owner); err != nil {
		slog.WarnContext(ctx, "failed to repo delete notifications", "owner", owner, "error", err)
	}

	s.publishNotification(owner, StreamEvent{Action: StreamActionCleared})

	return nil
}
