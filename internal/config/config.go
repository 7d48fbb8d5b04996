// Package config loads service configuration from YAML with environment
// overrides, and hot-reloads the file so endpoint changes apply without a
// restart.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Port int `yaml:"port"`

	Database struct {
		// DSN is the sqlite file for the session store.
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Backend struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`

	AI struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Sessions struct {
		MaxAge      time.Duration `yaml:"max_age"`
		IdleTimeout time.Duration `yaml:"idle_timeout"`
	} `yaml:"sessions"`

	Captcha struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"captcha"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var c Config
	c.Port = 8080
	c.Database.DSN = "file:orms.db?_pragma=foreign_keys(1)"
	c.Backend.BaseURL = "https://projuniv-backend.onrender.com"
	c.Backend.Timeout = 30 * time.Second
	c.AI.BaseURL = "http://localhost:4000"
	c.AI.Timeout = 60 * time.Second
	c.Sessions.MaxAge = 24 * time.Hour
	c.Sessions.IdleTimeout = 2 * time.Hour
	c.Captcha.TTL = 10 * time.Minute
	return c
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("AI_URL"); v != "" {
		c.AI.BaseURL = v
	}
}

// Manager hands out the current configuration and swaps it atomically on
// reload. Getter closures derived from it (BackendURL, AIURL) always see
// the latest value.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
}

// NewManager loads path and returns a manager holding the result.
func NewManager(path string) (*Manager, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.current.Store(&c)
	return m, nil
}

// Current returns the active configuration.
func (m *Manager) Current() Config {
	return *m.current.Load()
}

// Reload re-reads the file. On error the previous configuration stays
// active.
func (m *Manager) Reload() error {
	c, err := Load(m.path)
	if err != nil {
		return err
	}
	m.current.Store(&c)
	return nil
}

// BackendURL returns a getter for the backend base URL.
func (m *Manager) BackendURL() func() string {
	return func() string { return m.Current().Backend.BaseURL }
}

// AIURL returns a getter for the AI service base URL.
func (m *Manager) AIURL() func() string {
	return func() string { return m.Current().AI.BaseURL }
}
