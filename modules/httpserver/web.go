package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/majordome-go/majordome"
)

const jsonErrPrefix = "errors.generic.bad_request.json."

// MaxBodyBytes bounds the request bodies DecodeJSON reads.
var MaxBodyBytes int64 = 1 << 20

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as a JSON error response. A *majordome.Error is
// rendered with its own status; any other error becomes an internal error
// whose details only reach the log.
func WriteError(w http.ResponseWriter, err error, logger majordome.Logger) {
	var coded *majordome.Error
	if !errors.As(err, &coded) {
		coded = majordome.Internal(err, logger)
	}
	WriteJSON(w, coded.Status, coded)
}

// DecodeJSON decodes the JSON request body into v. Failures are returned as
// coded errors ready for WriteError.
func DecodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return majordome.NewError(
			jsonErrPrefix+"missing_content_type",
			"Expected request with `Content-Type: application/json`",
			http.StatusUnsupportedMediaType,
		)
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return majordome.NewError(
			jsonErrPrefix+"payload_too_large",
			fmt.Sprintf("JSON body exceeds %d bytes", tooLarge.Limit),
			http.StatusRequestEntityTooLarge,
			strconv.FormatInt(tooLarge.Limit, 10),
		).Wrap(err)
	}
	if err != nil {
		return majordome.NewError(
			jsonErrPrefix+"bytes_rejection",
			fmt.Sprintf("Failed to read JSON body: %s", err),
			http.StatusBadRequest,
			err.Error(),
		).Wrap(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return majordome.NewError(
				jsonErrPrefix+"syntax_error",
				fmt.Sprintf("Failed to parse JSON body: %s", err),
				http.StatusBadRequest,
				err.Error(),
			).Wrap(err)
		case errors.As(err, &typeErr):
			return majordome.NewError(
				jsonErrPrefix+"data_error",
				fmt.Sprintf("Failed to deserialize JSON body: %s", err),
				http.StatusBadRequest,
				err.Error(),
			).Wrap(err)
		default:
			return majordome.NewError(
				jsonErrPrefix+"unknown",
				fmt.Sprintf("Unknown JSON error: %s", err),
				http.StatusBadRequest,
				err.Error(),
			).Wrap(err)
		}
	}
	return nil
}

// recoverer turns handler panics into internal error responses.
func recoverer(logger majordome.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					WriteError(w, fmt.Errorf("handler panic: %v", rec), logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
