package usecase

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
)

type StreamAction string

const (
	StreamActionAdded   StreamAction = "added"
	StreamActionRead    StreamAction = "read"
	StreamActionReadAll StreamAction = "read_all"
	StreamActionRemoved StreamAction = "removed"
	StreamActionCleared StreamAction = "cleared"
)

// StreamEvent represents a notification update sent over SSE.
type StreamEvent struct {
	Action       StreamAction         `json:"action"`
	ID           string               `json:"id,omitempty"`
	Notification *entity.Notification `json:"notification,omitempty"`
	UnreadCount  int                  `json:"unreadCount"`
}

type subscriber struct {
	ch chan StreamEvent
}

// StreamNotifications registers a stream for the current session and closes it when ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context) (<-chan StreamEvent, error) {
	owner, err := s.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan StreamEvent, 10)}

	s.streamMu.Lock()
	if s.streams[owner] == nil {
		s.streams[owner] = make(map[*subscriber]struct{})
	}
	s.streams[owner][sub] = struct{}{}
	s.streamMu.Unlock()

	go func() {
		<-ctx.Done()
		s.streamMu.Lock()
		if subs := s.streams[owner]; subs != nil {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(s.streams, owner)
			}
		}
		close(sub.ch)
		s.streamMu.Unlock()
	}()

	return sub.ch, nil
}

// publishNotification never blocks; slow subscribers miss events.
func (s *Usecase) publishNotification(owner string, evt StreamEvent) {
	s.streamMu.RLock()
	defer s.streamMu.RUnlock()

	for sub := range s.streams[owner] {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}
