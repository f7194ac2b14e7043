package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// ConfigBackend abstracts where configuration values come from. The
// default implementation layers SENTID_* environment variables over a YAML
// file through viper; tests substitute in-memory backends.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
}

// viperBackend reads through a viper instance with env bindings and writes
// through a file-only instance so environment values never leak into the
// config file.
type viperBackend struct {
	path string
	v    *viper.Viper
}

func newPlatformBackend() ConfigBackend {
	return newViperBackend(configFilePath())
}

func newViperBackend(path string) *viperBackend {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SENTID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, s := range specs {
		if s.env != "" {
			_ = v.BindEnv(s.key, s.env)
		}
	}
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", path, err)
	}
	return &viperBackend{path: path, v: v}
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func (b *viperBackend) GetString(key string) (string, bool, error) {
	if !b.v.IsSet(key) {
		return "", false, nil
	}
	return b.v.GetString(key), true, nil
}

func (b *viperBackend) GetInt(key string) (int, bool, error) {
	if !b.v.IsSet(key) {
		return 0, false, nil
	}
	raw := strings.TrimSpace(b.v.GetString(key))
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *viperBackend) SetString(key, val string) error {
	return b.write(key, val)
}

func (b *viperBackend) SetInt(key string, val int) error {
	return b.write(key, val)
}

func (b *viperBackend) write(key string, val any) error {
	file := viper.New()
	file.SetConfigFile(b.path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !isNotFound(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	file.Set(key, val)

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := file.WriteConfigAs(b.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	b.v.Set(key, val)
	return nil
}
