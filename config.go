// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package whatsdump

// In this file: whatsdump configuration, the TOML configuration file and the
// environment overrides.

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rusq/osenv/v2"

	"github.com/rusq/whatsdump/internal/mcpclient"
	"github.com/rusq/whatsdump/internal/network"
)

// config is the option set for the Session.
type config struct {
	limits network.Limits
}

// defConfig is the default config used when initialising the session.
var defConfig = config{
	limits: network.DefLimits,
}

// Defaults for the public bridge.
const (
	DefServerName = "whatsapp"
	DefEndpoint   = "http://localhost:3000"
)

// Config is the runtime configuration: the tool server to talk to, the rate
// limits, and the phone number for pre-authorised pairing.
type Config struct {
	Server mcpclient.ServerConfig
	Limits network.Limits
	Phone  string
}

// DefConfig returns the configuration for a local bridge with the default
// rate limits.
func DefConfig() Config {
	return Config{
		Server: mcpclient.ServerConfig{
			Name:           DefServerName,
			Endpoint:       DefEndpoint,
			Kind:           mcpclient.KindStream,
			Timeout:        60 * time.Second,
			MaxRetries:     5,
			RetryDelay:     2 * time.Second,
			HealthInterval: 30 * time.Second,
			SessionTimeout: 2 * time.Hour,
		},
		Limits: network.DefLimits,
	}
}

// EnvConfig returns the default configuration with the environment overrides
// applied.
func EnvConfig() (Config, error) {
	cfg := DefConfig()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads the configuration file and applies the environment
// overrides on top of it.
func LoadConfig(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig reads the TOML configuration from r.  Values that the file does
// not mention keep their defaults, unknown keys are an error.  Environment
// overrides are applied on top.
func ReadConfig(r io.Reader) (Config, error) {
	fc := newFileConfig(DefConfig())
	md, err := toml.NewDecoder(r).Decode(&fc)
	if err != nil {
		return Config{}, fmt.Errorf("error reading the configuration: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown configuration keys: %v", undecoded)
	}
	cfg, err := fc.config()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv applies the WHATSDUMP_* environment variables.  Environment wins
// over the file.
func (c *Config) applyEnv() error {
	if v := osenv.Value("WHATSDUMP_ENDPOINT", ""); v != "" {
		c.Server.Endpoint = v
	}
	if v := osenv.Value("WHATSDUMP_CONNECTION_TYPE", ""); v != "" {
		kind, err := mcpclient.ParseKind(v)
		if err != nil {
			return fmt.Errorf("WHATSDUMP_CONNECTION_TYPE: %w", err)
		}
		c.Server.Kind = kind
	}
	if v := osenv.Secret("WHATSDUMP_AUTH_TOKEN", ""); v != "" {
		c.Server.AuthToken = v
	}
	if v := osenv.Value("WHATSDUMP_TIMEOUT", ""); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WHATSDUMP_TIMEOUT: expected seconds: %w", err)
		}
		c.Server.Timeout = time.Duration(sec) * time.Second
	}
	if v := osenv.Value("WHATSDUMP_MAX_RETRIES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WHATSDUMP_MAX_RETRIES: %w", err)
		}
		c.Server.MaxRetries = n
	}
	if v := osenv.Value("WHATSDUMP_PHONE", ""); v != "" {
		c.Phone = v
	}
	return nil
}

// duration is a [time.Duration] that converts to and from a TOML string,
// i.e. timeout = "90s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// fileConfig is the configuration file schema.
type fileConfig struct {
	Phone  string        `toml:"phone_number"`
	Server serverSection `toml:"server"`
	Limits limitsSection `toml:"limits"`
}

type serverSection struct {
	Name           string            `toml:"name"`
	Endpoint       string            `toml:"endpoint"`
	Type           string            `toml:"connection_type"`
	AuthToken      string            `toml:"auth_token"`
	Timeout        duration          `toml:"timeout"`
	MaxRetries     int               `toml:"max_retries"`
	RetryDelay     duration          `toml:"retry_delay"`
	HealthInterval duration          `toml:"health_check_interval"`
	SessionTimeout duration          `toml:"session_timeout"`
	Headers        map[string]string `toml:"headers"`
	Args           []string          `toml:"args"`
	Env            []string          `toml:"env"`
}

type limitsSection struct {
	Workers           int      `toml:"workers"`
	MessagesPerMinute int      `toml:"messages_per_minute"`
	ChatsPerMinute    int      `toml:"chats_per_minute"`
	RequestsPerSecond int      `toml:"requests_per_second"`
	Burst             uint     `toml:"burst_limit"`
	FailFast          bool     `toml:"fail_fast"`
	CooldownAfter     int      `toml:"cooldown_after"`
	Cooldown          duration `toml:"cooldown_period"`
}

// newFileConfig prefills the file schema with cfg, so that keys missing from
// the file keep their values.
func newFileConfig(cfg Config) fileConfig {
	return fileConfig{
		Phone: cfg.Phone,
		Server: serverSection{
			Name:           cfg.Server.Name,
			Endpoint:       cfg.Server.Endpoint,
			Type:           string(cfg.Server.Kind),
			AuthToken:      cfg.Server.AuthToken,
			Timeout:        duration(cfg.Server.Timeout),
			MaxRetries:     cfg.Server.MaxRetries,
			RetryDelay:     duration(cfg.Server.RetryDelay),
			HealthInterval: duration(cfg.Server.HealthInterval),
			SessionTimeout: duration(cfg.Server.SessionTimeout),
			Headers:        cfg.Server.Headers,
			Args:           cfg.Server.Args,
			Env:            cfg.Server.Env,
		},
		Limits: limitsSection{
			Workers:           cfg.Limits.Workers,
			MessagesPerMinute: cfg.Limits.MessagesPerMinute,
			ChatsPerMinute:    cfg.Limits.ChatsPerMinute,
			RequestsPerSecond: cfg.Limits.RequestsPerSecond,
			Burst:             cfg.Limits.Burst,
			FailFast:          cfg.Limits.FailFast,
			CooldownAfter:     cfg.Limits.CooldownAfter,
			Cooldown:          duration(cfg.Limits.Cooldown),
		},
	}
}

func (fc fileConfig) config() (Config, error) {
	kind, err := mcpclient.ParseKind(fc.Server.Type)
	if err != nil {
		return Config{}, fmt.Errorf("server.connection_type: %w", err)
	}
	return Config{
		Phone: fc.Phone,
		Server: mcpclient.ServerConfig{
			Name:           fc.Server.Name,
			Endpoint:       fc.Server.Endpoint,
			Kind:           kind,
			AuthToken:      fc.Server.AuthToken,
			Timeout:        time.Duration(fc.Server.Timeout),
			MaxRetries:     fc.Server.MaxRetries,
			RetryDelay:     time.Duration(fc.Server.RetryDelay),
			HealthInterval: time.Duration(fc.Server.HealthInterval),
			SessionTimeout: time.Duration(fc.Server.SessionTimeout),
			Headers:        fc.Server.Headers,
			Args:           fc.Server.Args,
			Env:            fc.Server.Env,
		},
		Limits: network.Limits{
			Workers:           fc.Limits.Workers,
			MessagesPerMinute: fc.Limits.MessagesPerMinute,
			ChatsPerMinute:    fc.Limits.ChatsPerMinute,
			RequestsPerSecond: fc.Limits.RequestsPerSecond,
			Burst:             fc.Limits.Burst,
			FailFast:          fc.Limits.FailFast,
			CooldownAfter:     fc.Limits.CooldownAfter,
			Cooldown:          time.Duration(fc.Limits.Cooldown),
		},
	}, nil
}

// sampleConfig is the documented configuration template with the default
// values.  It must stay in sync with [DefConfig], the tests enforce it.
const sampleConfig = `# whatsdump configuration file.
# This file uses TOML format: https://toml.io

# Phone number in international format, for pre-authorised pairing.
# phone_number = "+15551230001"

[server]
# Logical server name, referenced in the log messages.
name = "whatsapp"
# Bridge endpoint URL, or the command to run for the "pipe" connection.
endpoint = "http://localhost:3000"
# Connection type: stream, http, socket or pipe.
connection_type = "stream"
# Bearer credential, sent with every request when set.
auth_token = ""
# Single round trip budget.
timeout = "60s"
# Number of attempts for a failing call.
max_retries = 5
# Initial backoff delay, doubles on every retry.
retry_delay = "2s"
# Connection probe interval.
health_check_interval = "30s"
# Idle session lifetime.  A session that has not seen traffic for longer is
# re-established before use.
session_timeout = "2h"

[limits]
# Concurrent chat fetchers for bulk extraction.
workers = 4
messages_per_minute = 60
chats_per_minute = 30
requests_per_second = 2
burst_limit = 10
# Fail immediately instead of waiting when the budget is exhausted.
fail_fast = false
# Consecutive server throttles before the cooldown engages.
cooldown_after = 3
cooldown_period = "5m"
`

// WriteSampleConfig writes the documented configuration file template with
// the default values to w.
func WriteSampleConfig(w io.Writer) error {
	_, err := io.WriteString(w, sampleConfig)
	return err
}
