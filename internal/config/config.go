package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configFileVar = "CONFIG_FILE"

type Config interface {
	EnvConfig
	EndpointConfig
	SessionConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Endpoints
	Session
	Store
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newConfig(nil)
}

// Load returns a Config whose defaults come from a flat YAML file keyed by the
// environment variable names. Environment variables always win over the file.
// An empty path falls back to $CONFIG_FILE; no file at all is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(configFileVar)
	}
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config Load] failed to read %s: %w", path, err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("[config Load] failed to parse %s: %w", path, err)
	}

	values := make(source, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return newConfig(values), nil
}

func newConfig(values source) mainConfig {
	return mainConfig{
		EnvVars:   EnvVars{values: values},
		Endpoints: Endpoints{values: values},
		Session:   Session{values: values},
		Store:     Store{values: values},
	}
}
