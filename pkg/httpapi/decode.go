package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/organi-flow/pkg/constants"
)

const MaxBodyBytes = 4 << 20

var ErrEmptyBody = errors.New("request body is empty")

// ValidationError is returned for a body that parsed but failed struct
// validation. Fields holds the failing field paths.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return "validate body: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DecodeJSON reads a single JSON document into dst, rejecting unknown fields
// and trailing data, and runs struct validation on the result.
func DecodeJSON(r *http.Request, dst any) error {
	return decodeJSON(r, dst, true)
}

// DecodeJSONLenient is DecodeJSON without the unknown field check.
func DecodeJSONLenient(r *http.Request, dst any) error {
	return decodeJSON(r, dst, false)
}

func decodeJSON(r *http.Request, dst any, strict bool) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return errors.Wrap(err, "decode body")
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON document")
	}
	if err := constants.Validate.Struct(dst); err != nil {
		verr := &ValidationError{Err: err}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Fields = append(verr.Fields, fe.Namespace())
			}
		}
		return verr
	}
	return nil
}

// ReadBody returns the raw body, bounded by MaxBodyBytes.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}
	return raw, nil
}
