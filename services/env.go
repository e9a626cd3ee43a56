package services

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadEnv reads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already present in the environment win over the
// file, so a deployment can override any .env default without editing it.
// Lines may carry an `export ` prefix for shell compatibility; a
// non-comment line without an equals sign is an error, not a silent skip.
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("%s:%d: malformed line %q", filename, lineNo, scanner.Text())
		}

		value = unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return nil
}

// unquote strips one matching pair of single or double quotes.
func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	if q := value[0]; (q == '"' || q == '\'') && value[len(value)-1] == q {
		return value[1 : len(value)-1]
	}
	return value
}
