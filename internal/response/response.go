package response

import (
	"net/http"

	"github.com/nhanzalone1/echo-app-sub000/internal"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Data  interface{}        `json:"data,omitempty"`
	Meta  map[string]any     `json:"meta,omitempty"`
	Error *internal.AppError `json:"error,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta}
}

// Failure builds an error envelope for the given HTTP status.
func Failure(status int, msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(status, msg)}
}

func Unauthorized() APIResponse {
	return Failure(http.StatusUnauthorized, "Unauthorized")
}
