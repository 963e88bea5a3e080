package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"plotrisk/internal/types"
)

const maxRequestBodySize = 1 << 20

// errCodeValidationInvalidJSON is specific to the HTTP layer.
const errCodeValidationInvalidJSON types.ErrorCode = "validation_invalid_json"

// APIResponse wraps every successful body.
type APIResponse struct {
	Data any           `json:"data"`
	Meta *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta carries list counts and non-fatal notes such as a no-data
// message from an evaluation.
type ResponseMeta struct {
	Count    int      `json:"count"`
	Warnings []string `json:"warnings,omitempty"`
}

// APIErrorResponse wraps every error body.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// writeUnexpected writes the generic 500 body without going through
// json.Marshal, so it is safe to call from panic recovery.
func writeUnexpected(w http.ResponseWriter, requestID string) {
	id, _ := json.Marshal(requestID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, `{"error":{"code":"`+string(types.ErrCodeInternalUnexpected)+
		`","message":"an unexpected error occurred","request_id":`+string(id)+`}}`)
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		types.LoggerFromContext(r.Context(), nil).ErrorContext(r.Context(), "Failed to marshal response", "error", err)
		writeUnexpected(w, types.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an APIErrorResponse. The first AppError in the chain
// decides code, status and message; causes are logged, never sent. Anything
// else is a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := types.LoggerFromContext(ctx, nil)

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		logger.ErrorContext(ctx, "Request failed", "error", err)
		writeUnexpected(w, types.GetRequestID(ctx))
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", "code", string(appErr.Code), "error", err)
	}
	JSON(w, r, status, APIErrorResponse{Error: ErrorDetail{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: types.GetRequestID(ctx),
	}})
}

// DecodeJSON reads exactly one JSON object of at most 1 MB into dst and
// rejects unknown fields. With allowEmpty, a missing body leaves dst as is,
// which lets evaluate and job triggers run on query parameters alone.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if allowEmpty && (r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0) {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	switch {
	case err == nil && dec.More():
		return invalidJSON("request body must contain a single JSON object", nil)
	case err == nil:
		return nil
	case allowEmpty && errors.Is(err, io.EOF):
		return nil
	}
	return mapDecodeError(err)
}

func invalidJSON(msg string, err error) *types.AppError {
	return types.NewAppError(errCodeValidationInvalidJSON, msg, err)
}

func mapDecodeError(err error) *types.AppError {
	var (
		tooLarge *http.MaxBytesError
		syntax   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return invalidJSON("request body must not exceed 1MB", err)
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return invalidJSON("malformed JSON in request body", err)
	case errors.As(err, &typeErr):
		return types.NewAppErrorWithDetails(errCodeValidationInvalidJSON, "invalid value for field", err,
			map[string]any{"field": typeErr.Field, "expected": typeErr.Type.String()})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return invalidJSON("unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "), err)
	case errors.Is(err, io.EOF):
		return invalidJSON("request body must not be empty", err)
	default:
		return invalidJSON("invalid JSON in request body", err)
	}
}
