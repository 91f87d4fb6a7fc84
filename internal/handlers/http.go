package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/abrezinsky/munreg/internal/errors"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest            = "BAD_REQUEST"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeConflict              = "CONFLICT"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInvalidSeat           = "INVALID_SEAT"
	ErrCodePaymentNotVerified    = "PAYMENT_NOT_VERIFIED"
	ErrCodeSeatTaken             = "SEAT_TAKEN"
	ErrCodeNoPreferenceAvailable = "NO_PREFERENCE_AVAILABLE"
	ErrCodeRequestCanceled       = "REQUEST_CANCELED"
	ErrCodeRequestTimeout        = "REQUEST_TIMEOUT"
	ErrCodeInternalServer        = "INTERNAL_SERVER_ERROR"
)

// StatusClientClosedRequest is reported when the caller went away mid-request
const StatusClientClosedRequest = 499

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// InternalError creates a 500 error. The original error is never exposed.
func InternalError() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}

// kindStatus maps error kinds to status and code
var kindStatus = map[errors.Kind]struct {
	status int
	code   string
}{
	errors.ErrNotFound:              {http.StatusNotFound, ErrCodeNotFound},
	errors.ErrValidation:            {http.StatusBadRequest, ErrCodeValidation},
	errors.ErrConflict:              {http.StatusConflict, ErrCodeConflict},
	errors.ErrInvalidSeat:           {http.StatusUnprocessableEntity, ErrCodeInvalidSeat},
	errors.ErrPaymentNotVerified:    {http.StatusUnprocessableEntity, ErrCodePaymentNotVerified},
	errors.ErrSeatTaken:             {http.StatusConflict, ErrCodeSeatTaken},
	errors.ErrNoPreferenceAvailable: {http.StatusNotFound, ErrCodeNoPreferenceAvailable},
	errors.ErrUnauthenticated:       {http.StatusUnauthorized, ErrCodeUnauthorized},
	errors.ErrForbidden:             {http.StatusForbidden, ErrCodeForbidden},
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return &APIError{Status: StatusClientClosedRequest, Code: ErrCodeRequestCanceled, Message: "Request canceled"}
	case stderrors.Is(err, context.DeadlineExceeded):
		return &APIError{Status: http.StatusGatewayTimeout, Code: ErrCodeRequestTimeout, Message: "Request timed out"}
	}

	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		if m, ok := kindStatus[appErr.Kind]; ok {
			return &APIError{Status: m.status, Code: m.code, Message: appErr.Message}
		}
	}
	return InternalError()
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondAccepted writes a 202 Accepted JSON response
func respondAccepted(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusAccepted, data)
}

// respondError writes an error response, logging anything that maps to 500
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := ToAPIError(err)
	switch apiErr.Status {
	case http.StatusInternalServerError:
		h.Log.Error("internal error", "method", r.Method, "path", r.URL.Path, "error", err)
	case StatusClientClosedRequest, http.StatusGatewayTimeout:
		h.Log.Debug("request abandoned", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// parseLimit reads the optional limit query parameter
func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, BadRequest("Invalid limit parameter")
	}
	if n > max {
		n = max
	}
	return n, nil
}
