// Package config holds the daemon configuration: JSON on disk, defaults
// filled in for anything unset.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that accepts "5s"-style JSON strings.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard-library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Seconds returns the duration in seconds, the unit the engine ticks in.
func (d Duration) Seconds() float64 { return time.Duration(d).Seconds() }

// Config is the root configuration structure.
type Config struct {
	Watch  WatchConfig  `json:"watch"`
	Server ServerConfig `json:"server"`
	Engine EngineConfig `json:"engine"`
	API    APIConfig    `json:"api"`
	Stats  StatsConfig  `json:"stats"`
}

// WatchConfig configures the mirrored directory tree.
type WatchConfig struct {
	Root string `json:"root"` // "." default
}

// ServerConfig configures the relay subscription.
type ServerConfig struct {
	URL          string   `json:"url"`
	ReconnectMin Duration `json:"reconnectMin"`
	ReconnectMax Duration `json:"reconnectMax"`
}

// EngineConfig configures agent lifecycle timing.
type EngineConfig struct {
	TickRate        int      `json:"tickRate"` // steps per second
	SpawnDuration   Duration `json:"spawnDuration"`
	IdleTimeout     Duration `json:"idleTimeout"`
	DespawnDuration Duration `json:"despawnDuration"`
	MoveDuration    Duration `json:"moveDuration"` // per move, distance-independent
}

// APIConfig configures the read-only state endpoint.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// StatsConfig configures visit-statistics persistence.
type StatsConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Root: ".",
		},
		Server: ServerConfig{
			URL:          "ws://127.0.0.1:8080/ws",
			ReconnectMin: Duration(time.Second),
			ReconnectMax: Duration(30 * time.Second),
		},
		Engine: EngineConfig{
			TickRate:        30,
			SpawnDuration:   Duration(500 * time.Millisecond),
			IdleTimeout:     Duration(5 * time.Second),
			DespawnDuration: Duration(500 * time.Millisecond),
			MoveDuration:    Duration(1200 * time.Millisecond),
		},
		API: APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8090",
		},
		Stats: StatsConfig{
			Enabled: false,
			DBPath:  "~/.local/share/galaxy/stats.db",
		},
	}
}

// Validate checks the configuration for errors, correcting recoverable
// ones in place.
func (c *Config) Validate() error {
	if c.Watch.Root == "" {
		c.Watch.Root = "."
	}
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must be set")
	}
	if c.Engine.TickRate <= 0 {
		c.Engine.TickRate = 30
	}
	if c.Engine.SpawnDuration < 0 {
		c.Engine.SpawnDuration = Duration(500 * time.Millisecond)
	}
	if c.Engine.IdleTimeout <= 0 {
		c.Engine.IdleTimeout = Duration(5 * time.Second)
	}
	if c.Engine.DespawnDuration < 0 {
		c.Engine.DespawnDuration = Duration(500 * time.Millisecond)
	}
	if c.Engine.MoveDuration <= 0 {
		c.Engine.MoveDuration = Duration(1200 * time.Millisecond)
	}
	return nil
}
