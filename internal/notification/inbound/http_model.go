package inbound

import (
	"github.com/shandysiswandi/wapilot/internal/notification/entity"
)

type AddNotificationRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	ActionURL   string `json:"actionUrl"`
	ActionLabel string `json:"actionLabel"`
	Persistent  bool   `json:"persistent"`
}

type AddNotificationResponse struct {
	Notification entity.Notification `json:"notification"`
	Added        bool                `json:"added"`
	UnreadCount  int                 `json:"unreadCount"`
}

type NotificationsResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}
