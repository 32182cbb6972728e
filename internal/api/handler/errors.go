package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/combattracker/internal/api/apierr"
)

// maxBodyBytes bounds request bodies. Markdown notes are the largest payload.
const maxBodyBytes = 1 << 20

// WriteError maps err onto the API error envelope
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

func NewInternalError() error {
	return apierr.NewInternalError()
}

// decode reads a single JSON value from the request body into v
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewInvalidRequestError("Request body is required")
		}
		return NewInvalidRequestError("Invalid request body")
	}
	return nil
}
