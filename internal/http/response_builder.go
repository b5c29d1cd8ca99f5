// Package http provides the JSON API server and its handlers.
//
// This file implements the builder used by every handler to write JSON
// responses, and the mapping from service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fluxo/internal/advisory"
	"fluxo/internal/core"
	"fluxo/internal/log"
)

// transientRetryAfter is the Retry-After hint sent with 503 responses.
const transientRetryAfter = 5

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Warn("Response encoding failed", "error", err)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields []core.FieldError `json:"fields,omitempty"`
}

// ErrorResponse creates an error response with the given message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(ErrorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// ValidationResponse creates a 422 listing the failing fields.
func ValidationResponse(v *core.ValidationError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Data(ErrorBody{Error: "validation failed", Fields: v.Fields})
}

// ServiceError maps err to a response:
//
//	validation        422 with fields
//	advisory input    422
//	not found         404
//	transient         503 with Retry-After
//	conflict          409
//	advisory upstream 502
//	anything else     500
func ServiceError(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	var ie *advisory.InvalidInputError
	switch {
	case errors.As(err, &ve):
		return ValidationResponse(ve)
	case errors.As(err, &ie):
		return ErrorResponse(http.StatusUnprocessableEntity, ie.Message)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case core.IsTransient(err):
		return ErrorResponse(http.StatusServiceUnavailable, "temporarily unavailable, retry later").
			Header("Retry-After", strconv.Itoa(transientRetryAfter))
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, err.Error())
	case advisory.IsUpstream(err):
		return ErrorResponse(http.StatusBadGateway, "advisory service unavailable")
	default:
		return InternalServerError()
	}
}

// writeServiceError logs err at a level matching its status and writes
// the mapped response.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ServiceError(err)
	logger := log.FromContext(r.Context())
	switch {
	case resp.statusCode >= 500:
		logger.LogError(r.Context(), "Request failed", err, errorType(err), op, nil)
	default:
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err.Error(),
			log.FieldErrorType, errorType(err))
	}
	resp.Write(w)
}

func errorType(err error) string {
	switch {
	case core.IsValidation(err), advisory.IsInvalidInput(err):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case core.IsTransient(err):
		return log.ErrorTypeTransient
	case errors.Is(err, core.ErrConflict):
		return log.ErrorTypeConflict
	case advisory.IsUpstream(err):
		return log.ErrorTypeUpstream
	default:
		return log.ErrorTypeInternal
	}
}
