package feeders

import (
	"errors"
	"fmt"
)

// Static error definitions for feeders
var (
	ErrDotEnvInvalidLineFormat = errors.New("invalid .env line format")
	ErrYamlNotAMapping         = errors.New("yaml document is not a mapping")
	ErrTomlDecode              = errors.New("toml decode failed")
)

func wrapDotEnvLineError(lineNum int, line string) error {
	return fmt.Errorf("%w at line %d: %s", ErrDotEnvInvalidLineFormat, lineNum, line)
}

func wrapYamlMappingError(path string, got any) error {
	return fmt.Errorf("%w: %s, got %T", ErrYamlNotAMapping, path, got)
}
