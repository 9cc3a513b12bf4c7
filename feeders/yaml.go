package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML document and flattens it into upper-case keys:
//
//	primary:
//	  cache:
//	    max_size: 10
//
// becomes PRIMARY_CACHE_MAX_SIZE=10.
type YamlFeeder struct {
	Path string
}

// Yaml returns a feeder for the YAML file at path.
func Yaml(path string) YamlFeeder {
	return YamlFeeder{Path: path}
}

// Feed implements Feeder.
func (y YamlFeeder) Feed(dst map[string]string) error {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("failed to read YAML: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", y.Path, err)
	}
	if doc == nil {
		return nil
	}

	switch doc.(type) {
	case map[string]any, map[any]any:
		flatten(dst, "", doc)
		return nil
	default:
		return wrapYamlMappingError(y.Path, doc)
	}
}
