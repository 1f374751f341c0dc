// Package config holds the receiver's session parameters and the
// daemon's process-level configuration (listen defaults, log rotation,
// reordering mode), loaded from a YAML file and overlaid with CLI
// flags the way the teacher's command-line tools do.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport is the wire transport a session listens on.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportTCP Transport = "tcp"
)

// ParseTransport normalizes s per spec §6: case-insensitive, unknown
// values fall back to udp.
func ParseTransport(s string) Transport {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return TransportTCP
	default:
		return TransportUDP
	}
}

// Session is one session's immutable parameters, validated before
// SessionSupervisor.Start accepts them (spec §6 acceptable values).
type Session struct {
	Port        int       `yaml:"port"`
	JitterMS    int       `yaml:"jitter_ms"`
	Transport   Transport `yaml:"transport"`
	Reorder     bool      `yaml:"reorder"` // opt-in sequence-ordered jitter buffer variant
}

// Validate checks the acceptable-value ranges from spec §6 and
// normalizes Transport the same way ParseTransport does for the CLI
// flag path: case-insensitive, unknown values fall back to udp. This
// runs for every Session regardless of origin (YAML file, CLI flags,
// or a literal struct in tests), so a config file's `transport: UDP`
// or `transport: sctp` behaves identically to the flag path instead of
// being rejected.
func (s *Session) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("config: port %d out of range [1,65535]", s.Port)
	}
	if s.JitterMS < 1 {
		return fmt.Errorf("config: jitter_ms %d must be >= 1", s.JitterMS)
	}
	s.Transport = ParseTransport(string(s.Transport))
	return nil
}

// Daemon is the process-level configuration for cmd/audioreceiverd,
// loaded from YAML and overlaid with CLI flags.
type Daemon struct {
	Session Session `yaml:"session"`

	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	LogCompress   bool   `yaml:"log_compress"`
	Debug         bool   `yaml:"debug"`
}

// DefaultDaemon returns sensible defaults, mirroring the values a fresh
// install should run with before any config file or flags are applied.
func DefaultDaemon() Daemon {
	return Daemon{
		Session: Session{
			Port:      9876,
			JitterMS:  40,
			Transport: TransportUDP,
		},
		LogFile:       "audioreceiverd.log",
		LogMaxSizeMB:  20,
		LogMaxBackups: 5,
		LogMaxAgeDays: 14,
		LogCompress:   true,
	}
}

// LoadDaemon reads a YAML config file. Unlike a background GUI client
// that should keep running on a malformed preferences file, this is a
// daemon: a malformed config file is an operator error and must fail
// fast rather than silently fall back to defaults.
func LoadDaemon(path string) (Daemon, error) {
	cfg := DefaultDaemon()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Daemon{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Daemon{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
