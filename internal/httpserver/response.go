package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	authdomain "backoffice/boilerplate/internal/domain/auth"
	resourcedomain "backoffice/boilerplate/internal/domain/resource"
	"backoffice/boilerplate/internal/validation"

	"go.uber.org/zap"
)

const (
	messageOK       = "OK"
	messageInternal = "Internal server error"
	maxBodyBytes    = 1 << 20
)

var errMalformedJSON = errors.New("invalid JSON payload")

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess wraps data in the success envelope. Scalars become {"status": v}.
func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: message, Data: wrapData(data)})
}

func writeError(w http.ResponseWriter, status int, message string, errs any) {
	writeJSON(w, status, failureResponse{Message: message, Errors: errs})
}

func wrapData(data any) any {
	if data == nil {
		return struct{}{}
	}
	switch reflect.Indirect(reflect.ValueOf(data)).Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return data
	case reflect.Bool:
		return map[string]any{"status": data}
	default:
		return map[string]any{"status": true}
	}
}

// statusFor classifies a service error. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrFailed),
		errors.Is(err, errMalformedJSON),
		errors.Is(err, authdomain.ErrInvalidOrExpiredCode),
		errors.Is(err, authdomain.ErrPasswordUnchanged),
		errors.Is(err, authdomain.ErrPasswordMismatch),
		errors.Is(err, resourcedomain.ErrEmptyBody),
		errors.Is(err, resourcedomain.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, authdomain.ErrEmailExists),
		errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrTokenInvalid),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, resourcedomain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, resourcedomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resourcedomain.ErrConflict),
		errors.Is(err, resourcedomain.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a failure envelope. Internal errors are logged and never exposed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, messageInternal, nil)
		return
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		writeError(w, status, validation.ErrFailed.Error(), verr.Fields)
		return
	}
	if errors.Is(err, resourcedomain.ErrNotFound) {
		writeError(w, status, "Entry does not exist in the record.", nil)
		return
	}
	writeError(w, status, err.Error(), nil)
}

// readBody returns the request body capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errMalformedJSON
	}
	return body, nil
}

// decodeJSON fills dst from the body. An empty body leaves dst zero so
// validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errMalformedJSON
	}
	return nil
}
