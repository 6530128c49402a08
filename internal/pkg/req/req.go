/*
Package req provides helpers for HTTP request parsing and data binding.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"neochat/internal/pkg/errs"
)

const (
	// MaxFormMemory is the in-memory budget for non-file multipart
	// fields; larger file parts spill to temporary files.
	MaxFormMemory int64 = 32 << 20 // 32 MB

	// MaxRequestFileSize caps the whole multipart request body,
	// enforced via http.MaxBytesReader.
	MaxRequestFileSize int64 = 8 << 20 // 8 MB
)

// BindJSON binds the JSON request body to dst, rejecting unknown fields
// and trailing content.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.New(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.New(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.New(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart caps and parses a multipart form request body.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.New(errs.ErrRequestEntityTooLarge)
		}

		return errs.New(errs.ErrInvalidParams)
	}

	return nil
}
