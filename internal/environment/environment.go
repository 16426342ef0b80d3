package environment

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
)

const (
	JavaToolOptionsKey = "JAVA_TOOL_OPTIONS"
	JavaOptionsKey     = "_JAVA_OPTIONS"
)

// CompatibilityFlags opens the JDK internals Spark still reaches into when it
// runs on a Java 17 runtime.
const CompatibilityFlags = "--add-exports=java.base/sun.nio.ch=ALL-UNNAMED " +
	"--add-opens=java.base/sun.nio.ch=ALL-UNNAMED " +
	"--add-opens=java.base/java.nio=ALL-UNNAMED"

// ReservedKeys are owned by the preparer and never taken from event data.
var ReservedKeys = []string{JavaToolOptionsKey, JavaOptionsKey}

func IsReserved(key string) bool {
	return slices.Contains(ReservedKeys, key)
}

// Environment is the set of variables the spark-submit process inherits.
type Environment interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	// Append adds value after the current one, separated by a space.
	Append(key, value string) error
	// Merge sets every non-reserved key and returns the keys it skipped.
	Merge(values map[string]string) (skipped []string, err error)
	// Environ returns KEY=VALUE pairs suitable for exec.Cmd.Env.
	Environ() []string
}

var (
	_ Environment = (*ProcessEnvironment)(nil)
	_ Environment = (*MapEnvironment)(nil)
)

// ProcessEnvironment reads and writes the environment of the current process.
// A warm Lambda sandbox keeps these values between invocations.
type ProcessEnvironment struct{}

func NewProcessEnvironment() *ProcessEnvironment {
	return &ProcessEnvironment{}
}

func (p *ProcessEnvironment) Get(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (p *ProcessEnvironment) Set(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *ProcessEnvironment) Append(key, value string) error {
	current, _ := p.Get(key)
	return p.Set(key, appendValue(current, value))
}

func (p *ProcessEnvironment) Merge(values map[string]string) ([]string, error) {
	return merge(p, values)
}

func (p *ProcessEnvironment) Environ() []string {
	return os.Environ()
}

// MapEnvironment is an in-memory environment seeded from a map.
type MapEnvironment struct {
	mutex  sync.RWMutex
	values map[string]string
}

func NewMapEnvironment(seed map[string]string) *MapEnvironment {
	values := make(map[string]string, len(seed))
	for key, value := range seed {
		values[key] = value
	}
	return &MapEnvironment{values: values}
}

func (m *MapEnvironment) Get(key string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MapEnvironment) Set(key, value string) error {
	// same rules as os.Setenv
	if key == "" || strings.ContainsAny(key, "=\x00") {
		return fmt.Errorf("failed to set %q: invalid variable name", key)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("failed to set %q: value contains a NUL byte", key)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.values[key] = value
	return nil
}

func (m *MapEnvironment) Append(key, value string) error {
	current, _ := m.Get(key)
	return m.Set(key, appendValue(current, value))
}

func (m *MapEnvironment) Merge(values map[string]string) ([]string, error) {
	return merge(m, values)
}

func (m *MapEnvironment) Environ() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return formatEnvVars(m.values)
}

func appendValue(current, value string) string {
	return strings.TrimSpace(current + " " + value)
}

func merge(env Environment, values map[string]string) ([]string, error) {
	var skipped []string
	for key, value := range values {
		if IsReserved(key) {
			skipped = append(skipped, key)
			continue
		}
		if err := env.Set(key, value); err != nil {
			return skipped, err
		}
	}
	sort.Strings(skipped)
	return skipped, nil
}

// formatEnvVars turns {"FOO": "bar"} into {"FOO=bar"}, sorted by key.
func formatEnvVars(env map[string]string) []string {
	variables := make([]string, 0, len(env))
	for key, value := range env {
		variables = append(variables, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(variables)
	return variables
}
