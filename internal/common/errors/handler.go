// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// HTTPStatus maps an error code to the status returned to clients. The
// approver only ever sees the code and message; Details stay server-side.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyUsed:
		return http.StatusConflict
	case ErrCodeExpired:
		return http.StatusGone
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// WriteHTTP renders err as the standard JSON error response.
func WriteHTTP(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)

	var body errorBody
	body.Error.Code = stdErr.Code
	body.Error.Message = stdErr.Message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(body)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
