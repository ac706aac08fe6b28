/*
Package req provides helpers for decoding HTTP request bodies.

Bodies are size-capped and decoded as a single JSON document. Callers are trusted
services, so the Content-Type header is not checked and fields the target does not
know are ignored.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatify/internal/pkg/errs"
)

// MaxJSONBodySize bounds every JSON request body (1 MB); a notify payload carries one message.
const MaxJSONBodySize int64 = 1 << 20

// BindJSON decodes the request body into dst and rejects trailing data after the document.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
