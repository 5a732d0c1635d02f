package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Redirect is a Handler response that navigates the browser to URL.
//
// A zero Delay answers 302 Found. A positive Delay answers 200 with a Refresh
// header so the page can show Body before the browser moves on.
type Redirect struct {
	URL   string
	Delay time.Duration
	Body  any
}

// Binary is a Handler response written as is with ContentType.
type Binary struct {
	ContentType string
	Body        []byte
}

// writeError hides everything but the message of a goerror. Validation
// failures also list the offending fields.
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg(), Error: gerr.Fields()}

	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Values()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

func writeOK(w http.ResponseWriter, resp any) {
	switch v := resp.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case Redirect:
		writeRedirect(w, v)
	case Binary:
		writeBinary(w, v)
	default:
		writeJSON(w, successResponse{Message: "request has been successfully", Data: v}, http.StatusOK)
	}
}

func writeRedirect(w http.ResponseWriter, rd Redirect) {
	if rd.Delay <= 0 {
		w.Header().Set("Location", rd.URL)
		w.WriteHeader(http.StatusFound)
		return
	}

	secs := int(rd.Delay.Round(time.Second) / time.Second)
	w.Header().Set("Refresh", strconv.Itoa(secs)+"; url="+rd.URL)
	writeJSON(w, successResponse{Message: "redirect scheduled", Data: rd.Body}, http.StatusOK)
}

func writeBinary(w http.ResponseWriter, bin Binary) {
	w.Header().Set("Content-Type", bin.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(bin.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(bin.Body); err != nil {
		slog.Error("server: failed to write binary response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("server: failed to encode data to json", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	//nolint:errcheck // the client is gone
	w.Write(append(body, '\n'))
}
