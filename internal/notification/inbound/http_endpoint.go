package inbound

import (
	"github.com/shandysiswandi/wapilot/internal/notification/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// List returns the session's notifications, newest first.
func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	out, err := h.uc.List(r.Context())
	if err != nil {
		return nil, err
	}

	return NotificationsResponse{Notifications: out.Notifications, UnreadCount: out.UnreadCount}, nil
}

// Add stores a notification. A duplicate within five minutes is reported with added=false.
func (h *HTTPEndpoint) Add(r *router.Request) (any, error) {
	var req AddNotificationRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Add(r.Context(), usecase.AddInput{
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Category:    req.Category,
		ActionURL:   req.ActionURL,
		ActionLabel: req.ActionLabel,
		Persistent:  req.Persistent,
	})
	if err != nil {
		return nil, err
	}

	return AddNotificationResponse{
		Notification: out.Notification,
		Added:        out.Added,
		UnreadCount:  out.UnreadCount,
	}, nil
}

func (h *HTTPEndpoint) MarkRead(r *router.Request) (any, error) {
	return nil, h.uc.MarkRead(r.Context(), usecase.MarkReadInput{ID: r.Param("id")})
}

func (h *HTTPEndpoint) MarkAllRead(r *router.Request) (any, error) {
	return nil, h.uc.MarkAllRead(r.Context())
}

func (h *HTTPEndpoint) Remove(r *router.Request) (any, error) {
	return nil, h.uc.Remove(r.Context(), usecase.RemoveInput{ID: r.Param("id")})
}

func (h *HTTPEndpoint) Clear(r *router.Request) (any, error) {
	return nil, h.uc.Clear(r.Context())
}

func (h *HTTPEndpoint) UnreadCount(r *router.Request) (any, error) {
	n, err := h.uc.UnreadCount(r.Context())
	if err != nil {
		return nil, err
	}

	return UnreadCountResponse{UnreadCount: n}, nil
}
