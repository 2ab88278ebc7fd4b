package validators

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"

	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
	"github.com/vendora/vendora-backend/pkg/validation"
)

var validate = validation.New()

// DecodeJSONBody decodes a single JSON value into dest and validates it.
// Slice payloads are validated element by element and must not be empty.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	if decoder.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON value")
	}
	return validateValue(dest)
}

// DecodeLenientJSONBody is for third-party callbacks: unknown fields are
// ignored and at most maxBytes are read before the value is validated.
func DecodeLenientJSONBody(r *http.Request, dest any, maxBytes int64) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBytes)).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	return validateValue(dest)
}

func validateValue(dest any) error {
	value := reflect.Indirect(reflect.ValueOf(dest))
	var err error
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		err = validate.Var(value.Interface(), "required,min=1,dive")
	case reflect.Struct:
		err = validate.Struct(value.Interface())
	}
	if err != nil {
		return validation.Error(err, "validation failed")
	}
	return nil
}
