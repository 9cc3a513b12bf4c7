package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"

	"github.com/majordome-go/majordome/feeders"
)

var (
	// ErrMissingValue is returned by Require when a key is not configured.
	ErrMissingValue = errors.New("config value not found")
	// ErrInvalidValue is returned when a value cannot be parsed into the requested type.
	ErrInvalidValue = errors.New("config value cannot be parsed")
)

// Getter reads the settings of one module instance.
type Getter struct {
	src       *Source
	namespace string
	name      string
}

// Namespace returns the namespace the getter was created with.
func (g *Getter) Namespace() string {
	return g.namespace
}

// Key builds the full configuration key for a module setting.
func (g *Getter) Key(key string) string {
	parts := make([]string, 0, 3)
	if g.namespace != "" {
		parts = append(parts, g.namespace)
	}
	parts = append(parts, g.name, key)
	return feeders.NormalizeKey(strings.Join(parts, "_"))
}

// GetOr returns the value of key parsed as T, or def when the key is missing
// or cannot be parsed.
func GetOr[T any](g *Getter, key string, def T) T {
	full := g.Key(key)
	g.src.declare(Entry{Key: full, Default: fmt.Sprint(def)})

	raw, ok := g.src.Lookup(full)
	if !ok {
		return def
	}
	v, err := parse[T](raw)
	if err != nil {
		g.src.warn("Failed to parse config value, using default", "key", full, "error", err)
		return def
	}
	return v
}

// Require returns the value of key parsed as T. A missing or unparseable
// value is an error.
func Require[T any](g *Getter, key string) (T, error) {
	full := g.Key(key)
	g.src.declare(Entry{Key: full, Default: "<REQUIRED>", Required: true})

	var zero T
	raw, ok := g.src.Lookup(full)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingValue, full)
	}
	v, err := parse[T](raw)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", full, err)
	}
	return v, nil
}

// Optional returns the value of key parsed as T and whether it was present
// and valid.
func Optional[T any](g *Getter, key string) (T, bool) {
	full := g.Key(key)
	g.src.declare(Entry{Key: full})

	var zero T
	raw, ok := g.src.Lookup(full)
	if !ok {
		return zero, false
	}
	v, err := parse[T](raw)
	if err != nil {
		g.src.warn("Failed to parse optional config value", "key", full, "error", err)
		return zero, false
	}
	return v, true
}

var (
	durationType    = reflect.TypeFor[time.Duration]()
	stringSliceType = reflect.TypeFor[[]string]()
)

func parse[T any](raw string) (T, error) {
	var zero T
	typ := reflect.TypeFor[T]()

	var parsed any
	switch {
	case typ == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return zero, fmt.Errorf("%w: %q as duration: %w", ErrInvalidValue, raw, err)
		}
		parsed = d
	case typ == stringSliceType:
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		parsed = out
	case typ.Kind() == reflect.Slice:
		out := reflect.MakeSlice(typ, 0, 0)
		for _, p := range strings.Split(raw, ",") {
			item, err := castKind(strings.TrimSpace(p), typ.Elem())
			if err != nil {
				return zero, fmt.Errorf("%w: %q as %s: %w", ErrInvalidValue, raw, typ, err)
			}
			out = reflect.Append(out, item)
		}
		parsed = out.Interface()
	default:
		v, err := castKind(raw, typ)
		if err != nil {
			return zero, fmt.Errorf("%w: %q as %s: %w", ErrInvalidValue, raw, typ, err)
		}
		parsed = v.Interface()
	}

	rv := reflect.ValueOf(parsed)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(typ) {
		return zero, fmt.Errorf("%w: %q as %s", ErrInvalidValue, raw, typ)
	}
	return rv.Convert(typ).Interface().(T), nil
}

// castKind parses raw by the underlying kind of typ, so named types such as
// `type Mode string` parse like their base type.
func castKind(raw string, typ reflect.Type) (reflect.Value, error) {
	v, err := cast.FromString(raw, typ.Kind().String())
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v).Convert(typ), nil
}
