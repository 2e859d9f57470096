package config

import (
	"os"
	"path/filepath"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

type StoreConfig interface {
	GetTokenStore() string
	GetTokenFile() string
	GetTokenPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Store struct {
	values source
}

var _ StoreConfig = Store{}

// GetTokenStore returns one of StoreMemory, StoreFile or StoreRedis
func (s Store) GetTokenStore() string {
	return s.values.get("TOKEN_STORE", StoreFile)
}

func (s Store) GetTokenFile() string {
	return s.values.get("TOKEN_FILE", defaultTokenFile())
}

func (s Store) GetTokenPassphrase() string {
	return s.values.get("TOKEN_PASSPHRASE", "")
}

func (s Store) GetRedisAddr() string {
	return s.values.get("REDIS_ADDR", "localhost:6379")
}

func (s Store) GetRedisPassword() string {
	return s.values.get("REDIS_PASSWORD", "")
}

func (s Store) GetRedisDB() int {
	return s.values.int("REDIS_DB", 0)
}

func (s Store) GetRedisKeyPrefix() string {
	return s.values.get("REDIS_KEY_PREFIX", "llmctl:")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "tokens.json")
	}
	return filepath.Join(dir, "llmctl", "tokens.json")
}
