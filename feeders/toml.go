package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file; tables are flattened like YamlFeeder does.
type TomlFeeder struct {
	Path string
}

// Toml returns a feeder for the TOML file at path.
func Toml(path string) TomlFeeder {
	return TomlFeeder{Path: path}
}

// Feed implements Feeder.
func (t TomlFeeder) Feed(dst map[string]string) error {
	var doc map[string]any
	if _, err := toml.DecodeFile(t.Path, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTomlDecode, t.Path, err)
	}
	flatten(dst, "", doc)
	return nil
}
