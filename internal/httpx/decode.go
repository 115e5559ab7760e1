package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrEmptyBody     = errors.New("request body is empty")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrMalformedJSON = errors.New("malformed JSON body")
)

// strictJSON rejects fields the target struct does not declare.
var strictJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// DecodeJSON reads a single JSON value from the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	if !utf8.Valid(body) || !strictJSON.Valid(body) {
		return ErrMalformedJSON
	}
	if err := strictJSON.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// WriteDecodeError maps a DecodeJSON error onto an error envelope.
func WriteDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
	case errors.Is(err, ErrEmptyBody):
		JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Request body is required", nil)
	default:
		JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
	}
}
