package inbound

import (
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/auth/:provider/callback", end.CallbackPage)

	r.GET("/api/v1/connect/authorize/:provider", end.Authorize)
	r.POST("/api/v1/connect/meta/callback", end.MetaCallback)
	r.POST("/api/v1/connect/signup/events", end.SignupEvents)
	r.GET("/api/v1/connect/pin", end.ResumePIN)
	r.POST("/api/v1/connect/pin", end.SubmitPIN)
	r.POST("/api/v1/connect/pin/cancel", end.CancelPIN)
}
