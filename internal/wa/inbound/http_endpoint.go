package inbound

import (
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/wa/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Link(r *router.Request) (any, error) {
	out, err := h.uc.Link(r.Context(), usecase.LinkInput{
		Phone: r.Query("phone"),
		Text:  r.URL.Query().Get("text"),
	})
	if err != nil {
		return nil, err
	}

	return LinkResponse{Phone: out.Phone, URL: out.URL}, nil
}

// QRCode answers with the PNG itself so it can be used as an image source.
func (h *HTTPEndpoint) QRCode(r *router.Request) (any, error) {
	size, err := r.QueryInt("size", 0)
	if err != nil {
		return nil, err
	}

	png, err := h.uc.QRCode(r.Context(), usecase.QRCodeInput{
		Phone: r.Query("phone"),
		Text:  r.URL.Query().Get("text"),
		Size:  size,
	})
	if err != nil {
		return nil, err
	}

	return router.Binary{ContentType: "image/png", Body: png}, nil
}

func (h *HTTPEndpoint) ShareQRCode(r *router.Request) (any, error) {
	var req ShareQRCodeRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.ShareQRCode(r.Context(), usecase.QRCodeInput{
		Phone: req.Phone,
		Text:  req.Text,
		Size:  req.Size,
	})
	if err != nil {
		return nil, err
	}

	return ShareQRCodeResponse{Key: out.Key, URL: out.URL, ExpiresAt: out.ExpiresAt}, nil
}
