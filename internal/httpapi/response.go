package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/projects"
	"github.com/MrEthical07/goEMS/token"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func mapError(err error) (int, string, string) {
	var apiErr *projects.APIError
	switch {
	case errors.Is(err, goEMS.ErrUserRequired),
		errors.Is(err, projects.ErrNameRequired),
		errors.Is(err, projects.ErrManagerRequired),
		errors.Is(err, projects.ErrDeadlineInvalid):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, goEMS.ErrNotLoggedIn):
		return http.StatusUnauthorized, "UNAUTHORIZED", err.Error()
	case errors.Is(err, token.ErrExpired), errors.Is(err, projects.ErrUnauthorized):
		return http.StatusUnauthorized, "SESSION_EXPIRED", "session expired, please log in again"
	case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrSignature):
		return http.StatusUnauthorized, "INVALID_TOKEN", "stored token is invalid"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "UPSTREAM_ERROR", apiErr.Message
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
