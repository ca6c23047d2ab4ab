package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

// envVarPattern matches ${NAME} and ${NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// EnvVarMissingError reports a required ${NAME} substitution with no
// value in the process environment and no default clause.
type EnvVarMissingError struct {
	Name string
}

func (e *EnvVarMissingError) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

// expandEnvVars recursively resolves ${NAME}/${NAME:-default} in every
// string leaf of a decoded YAML/JSON document (spec §4.1 step 2).
func expandEnvVars(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			expanded, err := expandEnvVars(item)
			if err != nil {
				return nil, err
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := expandEnvVars(item)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

func expandEnvString(s string) (string, error) {
	var firstErr error
	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		hasDefault := groups[2] != ""
		defaultVal := groups[3]

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if hasDefault {
			return defaultVal
		}
		if firstErr == nil {
			firstErr = &EnvVarMissingError{Name: name}
		}
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// so subsequent ${NAME} substitution observes them. Missing files are not
// an error; malformed ones are.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
