package inbound

import (
	"context"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/connect/usecase"
)

type uc interface {
	Listen(ctx context.Context, messages <-chan entity.SignupMessage) error
	NewCallback(ctx context.Context, env usecase.Environment) (*usecase.Callback, error)
	AuthorizeURL(ctx context.Context, in usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error)
}
