package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/spf13/cast"
)

const maxBodyBytes = 1 << 20

type Request struct {
	*http.Request
}

// Param returns the path segment bound to name by the route pattern.
func (r *Request) Param(name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// Query returns the first value of key with surrounding spaces removed.
func (r *Request) Query(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// QueryInt returns def when key is absent and a format error when it is not
// a whole number.
func (r *Request) QueryInt(key string, def int) (int, error) {
	raw := r.Query(key)
	if raw == "" {
		return def, nil
	}

	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return n, nil
}

// Bind decodes a single JSON document of at most 1 MiB into dst. Unknown
// fields are rejected.
func (r *Request) Bind(dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}
