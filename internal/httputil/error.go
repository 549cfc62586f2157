package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
)

type errorResponse struct {
	Error string       `json:"error"`
	Code  bracket.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, code bracket.Code) {
	if err := WriteJSON(w, status, errorResponse{Error: msg, Code: code}); err != nil {
		slog.Error("failed to write error response", "status", status, "error", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeError(w, http.StatusBadRequest, msg, bracket.CodeInvalidInput)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, http.StatusNotFound, msg, bracket.CodeNotFound)
}

func Unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Authentication required", "")
}

// Error writes a coded bracket error with its status. Uncoded errors and
// storage failures are logged and hidden behind a 500.
func Error(w http.ResponseWriter, msg string, err error) {
	var coded *bracket.Error
	if !errors.As(err, &coded) {
		InternalServerError(w, msg, err)
		return
	}

	status := coded.Code.HTTPStatus()
	switch {
	case coded.Code.Rejection(), coded.Code.Retryable():
		slog.Warn(msg, "code", coded.Code, "error", err)
		writeError(w, status, coded.Message, coded.Code)
	default:
		slog.Error(msg, "code", coded.Code, "error", err)
		writeError(w, status, http.StatusText(status), coded.Code)
	}
}
