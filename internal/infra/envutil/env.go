package envutil

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

const pathEnv = "PATH"

// Layer describes the environment a child process starts with. Entries
// are applied in order: base, dotenv file, PATH prefixes, overrides.
type Layer struct {
	Base        []string
	DotenvFile  string
	PathPrepend []string
	Overrides   map[string]string
}

// Build resolves a Layer into an environment list suitable for exec.Cmd.
func Build(layer Layer) ([]string, error) {
	env := append([]string(nil), layer.Base...)
	if layer.DotenvFile != "" {
		values, err := godotenv.Read(layer.DotenvFile)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", layer.DotenvFile, err)
		}
		for _, key := range sortedKeys(values) {
			env = setEnvValue(env, key, values[key])
		}
	}
	if len(layer.PathPrepend) > 0 {
		prefix := strings.Join(layer.PathPrepend, string(os.PathListSeparator))
		env = setEnvValue(env, pathEnv, mergePATH(prefix, envVarValue(env, pathEnv)))
	}
	for _, key := range sortedKeys(layer.Overrides) {
		env = setEnvValue(env, key, layer.Overrides[key])
	}
	return env, nil
}

// Lookup returns the last value bound to key in env.
func Lookup(env []string, key string) string {
	return envVarValue(env, key)
}

func envVarValue(env []string, key string) string {
	if key == "" {
		return ""
	}
	prefix := key + "="
	var value string
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			value = strings.TrimPrefix(entry, prefix)
		}
	}
	return value
}

func setEnvValue(env []string, key, value string) []string {
	if key == "" {
		return env
	}
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		out = append(out, entry)
	}
	return append(out, prefix+value)
}

func mergePATH(primary, fallback string) string {
	separator := string(os.PathListSeparator)
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)

	for _, path := range []string{primary, fallback} {
		for _, entry := range strings.Split(path, separator) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if _, exists := seen[entry]; exists {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}
	return strings.Join(out, separator)
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
