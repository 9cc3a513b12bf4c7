// Package feeders provides configuration sources for reading flat key/value
// settings from environment variables, .env files, YAML and TOML files.
//
// Every feeder writes upper-case keys into a shared map and never overwrites
// a key an earlier feeder already set, so the first feeder in a list has the
// highest precedence:
//
//	values := map[string]string{}
//	for _, f := range []feeders.Feeder{feeders.Env(), feeders.DotEnv(".env")} {
//		if err := f.Feed(values); err != nil { ... }
//	}
package feeders

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Feeder adds configuration values to a flat key/value map.
type Feeder interface {
	// Feed adds the feeder's values to dst, skipping keys that are already set.
	Feed(dst map[string]string) error
}

// FeederFunc adapts a function to the Feeder interface.
type FeederFunc func(dst map[string]string) error

// Feed implements Feeder.
func (f FeederFunc) Feed(dst map[string]string) error {
	return f(dst)
}

// Map returns a feeder serving a fixed set of values. Keys are normalised.
func Map(values map[string]string) Feeder {
	return FeederFunc(func(dst map[string]string) error {
		for k, v := range values {
			setDefault(dst, NormalizeKey(k), v)
		}
		return nil
	})
}

// Optional wraps a file based feeder so that a missing file is not an error.
func Optional(f Feeder) Feeder {
	return FeederFunc(func(dst map[string]string) error {
		if err := f.Feed(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

// NormalizeKey upper-cases a key and replaces '.', '-' and spaces with '_'.
func NormalizeKey(key string) string {
	key = strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(key)
	return strings.ToUpper(key)
}

func setDefault(dst map[string]string, key, value string) {
	if _, exists := dst[key]; !exists {
		dst[key] = value
	}
}

// flatten walks a decoded document and writes its leaves as PARENT_CHILD keys.
// Lists of scalars are joined with commas.
func flatten(dst map[string]string, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(dst, joinKey(prefix, k), v[k])
		}
	case map[any]any:
		for k, child := range v {
			flatten(dst, joinKey(prefix, fmt.Sprint(k)), child)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		setDefault(dst, NormalizeKey(prefix), strings.Join(parts, ","))
	case nil:
		setDefault(dst, NormalizeKey(prefix), "")
	default:
		setDefault(dst, NormalizeKey(prefix), fmt.Sprint(v))
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}
