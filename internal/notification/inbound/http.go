package inbound

import (
	"net/http"

	"github.com/shandysiswandi/wapilot/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/notifications", end.List)
	r.POST("/api/v1/notifications", end.Add)
	r.DELETE("/api/v1/notifications", end.Clear)
	r.GET("/api/v1/notifications/unread-count", end.UnreadCount)
	r.PUT("/api/v1/notifications/read-all", end.MarkAllRead)
	r.PATCH("/api/v1/notifications/:id/read", end.MarkRead)
	r.DELETE("/api/v1/notifications/:id", end.Remove)

	r.GETRaw("/api/v1/notifications/stream", http.HandlerFunc(end.StreamNotifications))
}
