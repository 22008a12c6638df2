package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
)

// ErrorResponse is the error payload. Code is the stable application
// error code clients can branch on.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondAppError maps an application error to its HTTP status. Errors
// without a code are treated as internal and their detail withheld.
func respondAppError(w http.ResponseWriter, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		respondError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, ErrorResponse{Error: appErr.Message, Code: appErr.Code}, statusForCode(appErr.Code))
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeInvalidAmount, apperrors.CodeInvalidMatchday, apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
