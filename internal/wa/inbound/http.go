package inbound

import "github.com/shandysiswandi/wapilot/internal/pkg/router"

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/wa/link", end.Link)
	r.GET("/api/v1/wa/qr", end.QRCode)
	r.POST("/api/v1/wa/qr/share", end.ShareQRCode)
}
