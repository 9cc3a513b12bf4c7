package feeders

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DotEnvFeeder reads KEY=VALUE lines from a .env file.
type DotEnvFeeder struct {
	Path string
}

// DotEnv returns a feeder for the .env file at path.
func DotEnv(path string) DotEnvFeeder {
	return DotEnvFeeder{Path: path}
}

// Feed implements Feeder.
func (f DotEnvFeeder) Feed(dst map[string]string) error {
	values, err := parseDotEnvFile(f.Path)
	if err != nil {
		return err
	}
	for key, value := range values {
		setDefault(dst, NormalizeKey(key), value)
	}
	return nil
}

// parseDotEnvFile parses a .env file and returns the key-value pairs
func parseDotEnvFile(filename string) (map[string]string, error) {
	result := make(map[string]string)

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, wrapDotEnvLineError(lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return result, nil
}
