package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// DefaultMaxJSONSize is the default maximum size for JSON request bodies (1MB).
const DefaultMaxJSONSize = 1 << 20 // 1 MB

// JSON decodes an application/json body.
func JSON() Binder {
	return func(r *http.Request, v any) error {
		if err := r.Context().Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, _ := strings.Cut(contentType, ";")
		if mediaType = strings.TrimSpace(mediaType); mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, mediaType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		if err != nil {
			return fmt.Errorf("%w: failed to read request body: %v", ErrFailedToParseJSON, err)
		}
		if len(body) > DefaultMaxJSONSize {
			return fmt.Errorf("%w: request body too large (max %d bytes)", ErrFailedToParseJSON, DefaultMaxJSONSize)
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		var extra json.RawMessage
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}

		return sanitizeJSONStruct(v)
	}
}

// sanitizeJSONStruct recursively sanitizes all string fields in a struct.
func sanitizeJSONStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil
	}

	rv = rv.Elem()
	return sanitizeReflectValue(rv)
}

// sanitizeReflectValue recursively sanitizes reflect.Value.
func sanitizeReflectValue(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.String:
		if rv.CanSet() {
			sanitized := sanitizeStringValue(rv.String())
			rv.SetString(sanitized)
		}

	case reflect.Struct:
		for i := range rv.NumField() {
			field := rv.Field(i)
			if field.CanSet() {
				if err := sanitizeReflectValue(field); err != nil {
					return err
				}
			}
		}

	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			elem := rv.Index(i)
			if err := sanitizeReflectValue(elem); err != nil {
				return err
			}
		}

	case reflect.Map:
		for _, key := range rv.MapKeys() {
			value := rv.MapIndex(key)
			if value.CanSet() {
				if err := sanitizeReflectValue(value); err != nil {
					return err
				}
			}
		}

	case reflect.Pointer:
		if !rv.IsNil() {
			if err := sanitizeReflectValue(rv.Elem()); err != nil {
				return err
			}
		}

	case reflect.Interface:
		if !rv.IsNil() {
			if err := sanitizeReflectValue(rv.Elem()); err != nil {
				return err
			}
		}
	}

	return nil
}
