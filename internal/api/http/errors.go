package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/logger"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// HTTPStatus maps an error kind onto the HTTP status returned to clients.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// codeName renders a code as SCREAMING_SNAKE_CASE, e.g. NotFound -> NOT_FOUND.
func codeName(code codes.Code) string {
	name := code.String()
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(rune(name[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// writeError writes err as an ErrorResponse. Internal failures are logged and
// reported without their message.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.Code(err)
	status := HTTPStatus(code)
	resp := ErrorResponse{
		Error:  apperr.Message(err),
		Code:   codeName(code),
		Reason: apperr.Reason(err),
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "code", code.String(), "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidArgument("invalid request body: %v", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for requests whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(w, r, dst)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
