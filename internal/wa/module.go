package wa

import (
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/pkg/storage"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"github.com/shandysiswandi/wapilot/internal/wa/inbound"
	"github.com/shandysiswandi/wapilot/internal/wa/outbound/objstore"
	"github.com/shandysiswandi/wapilot/internal/wa/usecase"
)

type Dependency struct {
	// Storage is nil when object storage is disabled; sharing then answers
	// not found.
	Storage    storage.Storage
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Router     *router.Router             `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
		Config: usecase.Config{
			ShareTTL:  dep.Config.GetHour("modules.wa.share_ttl_hours"),
			KeyPrefix: dep.Config.GetString("modules.wa.key_prefix"),
		},
	}
	if dep.Storage != nil {
		ucDep.RepoObject = objstore.New(dep.Storage, dep.Instrument)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return nil
}
