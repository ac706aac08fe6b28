/*
Package resp provides helpers for writing JSON HTTP responses.

Successful relay responses are written as the bare payload the caller expects;
failures use a uniform {code, error} body produced from an errs.CustomError.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
)

// ErrorBody is the JSON body written for every failed request.
type ErrorBody struct {
	// Code is the business error code (see errs package).
	Code int `json:"code"`

	// Error is the caller-facing description.
	Error string `json:"error"`
}

// RespondJSON sets the JSON headers and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus, "path", r.URL.Path)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}

// RespondOK writes payload with HTTP 200.
func RespondOK(w http.ResponseWriter, r *http.Request, payload any) {
	RespondJSON(w, r, http.StatusOK, payload)
}

// RespondError writes the error body and status carried by customErr.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorBody{
		Code:  customErr.Code,
		Error: customErr.Message,
	})
}
