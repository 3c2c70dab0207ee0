/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBindName is the bind name used when a single unnamed
// configuration is supplied.
const DefaultBindName = "default"

// EngineOptions tunes the engine and its connection pool. Zero values are
// replaced by defaults when the bind is built.
type EngineOptions struct {
	Echo            bool          `json:"echo" yaml:"echo"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// SessionOptions tunes the sessions produced by a bind.
type SessionOptions struct {
	// Isolation names the transaction isolation level for every session of
	// the bind. Empty means the engine default. Recognized values:
	// "read uncommitted", "read committed", "repeatable read", "serializable".
	Isolation string `json:"isolation" yaml:"isolation"`
}

// BindConfig describes a single named bind: the engine URL, optional
// engine and session options, and whether the bind is async (sessions of
// async binds may be released through background tasks, see TaskRegistry).
type BindConfig struct {
	EngineURL      string          `json:"engine_url" yaml:"engine_url"`
	EngineOptions  *EngineOptions  `json:"engine_options" yaml:"engine_options"`
	SessionOptions *SessionOptions `json:"session_options" yaml:"session_options"`
	Async          bool            `json:"async" yaml:"async"`
}

// Config aggregates the named bind configurations of one bind manager.
type Config struct {
	Binds map[string]BindConfig `json:"binds" yaml:"binds"`
}

// DefaultEngineOptions returns the engine options applied underneath
// caller-supplied values.
func DefaultEngineOptions() *EngineOptions {
	return &EngineOptions{
		Echo:            false,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		ConnectTimeout:  time.Second * 10,
	}
}

// LoadConfig reads a YAML configuration file into a Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// withDefaults returns a copy of the config with default engine options
// merged underneath the caller-supplied ones.
func (c BindConfig) withDefaults() BindConfig {
	defaults := DefaultEngineOptions()
	if c.EngineOptions == nil {
		c.EngineOptions = defaults
		return c
	}

	merged := *c.EngineOptions
	if merged.MaxIdleConns == 0 {
		merged.MaxIdleConns = defaults.MaxIdleConns
	}
	if merged.MaxOpenConns == 0 {
		merged.MaxOpenConns = defaults.MaxOpenConns
	}
	if merged.ConnMaxLifetime == 0 {
		merged.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if merged.ConnMaxIdleTime == 0 {
		merged.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if merged.ConnectTimeout == 0 {
		merged.ConnectTimeout = defaults.ConnectTimeout
	}
	c.EngineOptions = &merged
	return c
}

func (c BindConfig) validate(name string) error {
	if strings.TrimSpace(c.EngineURL) == "" {
		return fmt.Errorf("%w: bind %q has an empty engine URL", ErrInvalidConfig, name)
	}

	u, err := url.Parse(c.EngineURL)
	if err != nil {
		return fmt.Errorf("%w: bind %q engine URL: %v", ErrInvalidConfig, name, err)
	}
	switch u.Scheme {
	case "mysql", "postgres", "postgresql", "sqlite", "sqlite3", "file":
	default:
		return fmt.Errorf("%w: bind %q has unsupported engine scheme %q", ErrInvalidConfig, name, u.Scheme)
	}

	if c.SessionOptions != nil {
		if _, err := parseIsolation(c.SessionOptions.Isolation); err != nil {
			return fmt.Errorf("%w: bind %q: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// txOptions maps the session options onto database/sql transaction options.
func (c BindConfig) txOptions() (*sql.TxOptions, error) {
	if c.SessionOptions == nil || c.SessionOptions.Isolation == "" {
		return &sql.TxOptions{}, nil
	}
	level, err := parseIsolation(c.SessionOptions.Isolation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &sql.TxOptions{Isolation: level}, nil
}

func parseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return sql.LevelDefault, nil
	case "read uncommitted":
		return sql.LevelReadUncommitted, nil
	case "read committed":
		return sql.LevelReadCommitted, nil
	case "repeatable read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", s)
	}
}
