package binder

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

// Query binds URL query parameters into the `query:"name"` tagged fields of
// a struct. Untagged fields are left alone. Supported field types are
// strings (and named string types), signed integers, bools and anything
// implementing encoding.TextUnmarshaler, such as uuid.UUID. Only the first
// value of a repeated parameter is used; empty values keep the zero value.
func Query() Binder {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParseQuery)
		}
		rv = rv.Elem()

		values := r.URL.Query()
		for _, f := range reflect.VisibleFields(rv.Type()) {
			name, ok := f.Tag.Lookup("query")
			if !ok || name == "-" || !f.IsExported() || len(f.Index) > 1 {
				continue
			}
			raw := strings.TrimSpace(values.Get(name))
			if raw == "" {
				continue
			}
			if err := setQueryValue(rv.Field(f.Index[0]), raw); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFailedToParseQuery, name, err)
			}
		}
		return nil
	}
}

func setQueryValue(field reflect.Value, raw string) error {
	if field.Addr().Type().Implements(textUnmarshaler) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid bool %q", raw)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
