package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code apperr.Code, message string, details any) {
	s.respondJSON(w, status, errorResponse{
		Code:    string(code),
		Message: message,
		Details: details,
	})
}

// respondAppError maps err onto the error body. Errors that are not
// *apperr.Error are logged and reported as internal.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		if appErr.Code == apperr.CodeInternal || appErr.Code == apperr.CodeUnavailable {
			s.logger.Error(op+" failed", zap.Error(err))
		}
		s.respondError(w, appErr.HTTPStatus(), appErr.Code, appErr.Message, appErr.Details)
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn(op+" timed out", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, apperr.CodeUnavailable, "Upstream store timed out", nil)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		s.logger.Debug(op+" cancelled by client")
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, apperr.CodeInternal, "Internal server error", nil)
	}
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var (
		syntaxError *json.SyntaxError
		typeError   *json.UnmarshalTypeError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusBadRequest, apperr.CodeValidation, "Malformed JSON payload", nil)
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, apperr.CodeValidation, fmt.Sprintf("Invalid value for field %s", typeError.Field), nil)
	case errors.As(err, &maxBytes):
		s.respondError(w, http.StatusRequestEntityTooLarge, apperr.CodeValidation, "Request body too large", nil)
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, apperr.CodeValidation, "Request body cannot be empty", nil)
	default:
		s.respondError(w, http.StatusBadRequest, apperr.CodeValidation, "Unable to parse request body", nil)
	}
}
