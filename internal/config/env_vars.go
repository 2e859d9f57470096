package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
)

// source holds values loaded from a config file, keyed by env var name.
type source map[string]string

func (s source) get(name, defaultValue string) string {
	if value, ok := s[name]; ok && value != "" {
		defaultValue = value
	}
	return GetEnv(name, defaultValue)
}

func (s source) duration(name string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s.get(name, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func (s source) int(name string, defaultValue int) int {
	i, err := strconv.Atoi(s.get(name, ""))
	if err != nil {
		return defaultValue
	}
	return i
}

func (s source) list(name, defaultValue string) []string {
	parts := strings.Split(s.get(name, defaultValue), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type EnvVars struct {
	values source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.values.get(appNameVar, "LLM Platform")
}

func (e EnvVars) GetEnv() string {
	return e.values.get(envVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.values.get(logLevelVar, "info")
}

// GetEnv returns the environment variable, or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
