package feeders

import (
	"os"
	"strings"
)

// EnvFeeder reads the process environment.
type EnvFeeder struct {
	// Prefix, when set, restricts the feeder to variables starting with it.
	Prefix string
}

// Env returns a feeder reading every OS environment variable.
func Env() EnvFeeder {
	return EnvFeeder{}
}

// NewEnvFeeder returns a feeder reading variables that start with prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: strings.ToUpper(prefix)}
}

// Feed implements Feeder.
func (f EnvFeeder) Feed(dst map[string]string) error {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, f.Prefix) {
			continue
		}
		setDefault(dst, key, value)
	}
	return nil
}
