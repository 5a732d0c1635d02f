package goerror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantType   Type
	}{
		{
			name:       "Server",
			err:        NewServer(errors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
			wantType:   TypeServer,
		},
		{
			name:       "Upstream",
			err:        NewUpstream(errors.New("dial tcp"), "Platform backend unavailable"),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Platform backend unavailable",
			wantType:   TypeServer,
		},
		{
			name:       "Business",
			err:        NewBusiness("session required", CodeUnauthorized),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "session required",
			wantType:   TypeBusiness,
		},
		{
			name:       "InvalidFormat",
			err:        NewInvalidFormat(),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid request body",
			wantType:   TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			require.ErrorAs(t, tt.err, &gerr)
			assert.Equal(t, tt.wantStatus, gerr.StatusCode())
			assert.Equal(t, tt.wantMsg, gerr.Msg())
			assert.Equal(t, tt.wantType, gerr.Type())
		})
	}

	t.Run("InvalidInputFields", func(t *testing.T) {
		// Act
		err := NewInvalidInput(nil, "pin", "pin must be 6 digits")

		// Assert
		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, map[string]string{"pin": "pin must be 6 digits"}, gerr.Fields())
		assert.Equal(t, http.StatusUnprocessableEntity, gerr.StatusCode())
	})

	t.Run("Unwrap", func(t *testing.T) {
		// Arrange
		cause := errors.New("cause")

		// Act
		err := NewUpstream(cause, "bad gateway")

		// Assert
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "ERROR_CODE_BAD_GATEWAY", CodeBadGateway.String())
	})
}
