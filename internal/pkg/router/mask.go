package router

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
)

const maxLoggedBodyBytes = 32 * 1024 // 32KB

// masker hides sensitive request data before it is logged. OAuth callbacks
// carry the authorization code in the query string and PIN submissions carry
// it in the body, so both are filtered by the same key set.
type masker struct {
	instrument.Masker
}

func newMasker(cfg config.Config) masker {
	if cfg == nil {
		return masker{}
	}
	return masker{instrument.NewMasker(cfg.GetArray("instrument.log_mask_fields"))}
}

func (m masker) header(h http.Header) http.Header {
	if len(m.Masker) == 0 {
		return h
	}

	out := h.Clone()
	for key := range out {
		if m.Hides(key) {
			out.Set(key, instrument.Masked)
		}
	}
	return out
}

// uri returns the request URI with masked query values.
func (m masker) uri(u *url.URL) string {
	if u.RawQuery == "" || len(m.Masker) == 0 {
		return u.RequestURI()
	}

	q := u.Query()
	for key := range q {
		if m.Hides(key) {
			q.Set(key, instrument.Masked)
		}
	}

	out := *u
	out.RawQuery = q.Encode()
	return out.RequestURI()
}

func (m masker) body(contentType string, body []byte) any {
	if len(body) == 0 {
		return nil
	}

	if decoded, ok := m.JSON(body); ok {
		return decoded
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil {
			out := make(map[string]any, len(values))
			for k, v := range values {
				switch {
				case m.Hides(k):
					out[k] = instrument.Masked
				case len(v) == 1:
					out[k] = v[0]
				default:
					out[k] = v
				}
			}
			return out
		}
	}

	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	if len(body) > maxLoggedBodyBytes {
		return string(body[:maxLoggedBodyBytes]) + "...(truncated)"
	}
	return string(body)
}
