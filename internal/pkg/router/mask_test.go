package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasker(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`instrument:
  log_mask_fields: "Code, pin,,authorization"
`))
	require.NoError(t, err)
	m := newMasker(cfg)

	t.Run("Keys", func(t *testing.T) {
		assert.Len(t, m.Masker, 3)
		assert.True(t, m.Hides("CODE"))
		assert.False(t, m.Hides("state"))
	})

	t.Run("URI", func(t *testing.T) {
		// Arrange
		u, err := url.Parse("/auth/meta/callback?code=secret&state=s1")
		require.NoError(t, err)

		// Act
		got := m.uri(u)

		// Assert
		assert.Equal(t, "/auth/meta/callback?code=%2A%2A%2A&state=s1", got)
		assert.Equal(t, "code=secret&state=s1", u.RawQuery)
	})

	t.Run("URIWithoutQuery", func(t *testing.T) {
		u, err := url.Parse("/api/v1/connect/pin")
		require.NoError(t, err)

		assert.Equal(t, "/api/v1/connect/pin", m.uri(u))
	})

	t.Run("Header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Bearer x")
		h.Set("Accept", "application/json")

		got := m.header(h)

		assert.Equal(t, "***", got.Get("Authorization"))
		assert.Equal(t, "application/json", got.Get("Accept"))
		assert.Equal(t, "Bearer x", h.Get("Authorization"))
	})

	t.Run("JSONBody", func(t *testing.T) {
		got := m.body("application/json", []byte(`{"pin":"123456","nested":[{"code":"c"}],"ok":true}`))

		assert.Equal(t, map[string]any{
			"pin":    "***",
			"nested": []any{map[string]any{"code": "***"}},
			"ok":     true,
		}, got)
	})

	t.Run("FormBody", func(t *testing.T) {
		got := m.body("application/x-www-form-urlencoded", []byte("pin=1&a=x&a=y&b=z"))

		assert.Equal(t, map[string]any{"pin": "***", "a": []string{"x", "y"}, "b": "z"}, got)
	})

	t.Run("BinaryBody", func(t *testing.T) {
		assert.Equal(t, "<binary body omitted>", m.body("", []byte{0xff, 0xfe, 0x00}))
		assert.Nil(t, m.body("application/json", nil))
	})
}

func TestResponseRecorder(t *testing.T) {
	t.Run("SkipsImages", func(t *testing.T) {
		// Arrange
		rec := &responseRecorder{ResponseWriter: httptest.NewRecorder()}
		rec.Header().Set("Content-Type", "image/png")

		// Act
		_, err := rec.Write([]byte{0x89, 'P', 'N', 'G'})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.statusCode())
		assert.Equal(t, 4, rec.bytes)
		assert.Equal(t, "<image/png omitted>", rec.loggedBody(masker{}))
	})

	t.Run("CapsBody", func(t *testing.T) {
		rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), body: &bytes.Buffer{}}
		big := bytes.Repeat([]byte("a"), maxLoggedBodyBytes+10)

		_, err := rec.Write(big)

		require.NoError(t, err)
		assert.True(t, rec.capped)
		assert.Equal(t, maxLoggedBodyBytes, rec.body.Len())
		assert.Equal(t, maxLoggedBodyBytes+10, rec.bytes)
	})
}
