package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Track holds the pipeline tunables. All durations are Go duration
	// strings (e.g. "300ms", "8s").
	Track TrackConfig `json:"track"`

	// Scenarios drive the built-in simulator. An entry without a
	// schedule runs once at startup; with a cron schedule it re-runs.
	Scenarios []ScenarioConfig `json:"scenarios,omitempty"`

	Presenter *PresenterConfig `json:"presenter,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// TrackConfig exposes the pipeline's tunables.
//
// Defaults (when fields are omitted/zero):
//   - batch_window: "300ms"
//   - max_notifications: 10
//   - notification_ttl: "8s" ("0s" disables auto-expiry)
//   - history_depth: 100
//   - queue_size: 256
type TrackConfig struct {
	// BatchWindow is the debounce interval of the batching dispatcher.
	BatchWindow string `json:"batch_window,omitempty"`

	// MaxNotifications bounds the notification queue depth.
	MaxNotifications int `json:"max_notifications,omitempty"`

	// NotificationTTL is the auto-expiry timeout of a surfaced
	// notification. Use "0s" to keep notifications until dismissed.
	NotificationTTL string `json:"notification_ttl,omitempty"`

	// HistoryDepth bounds the per-unit event history kept for inspection.
	HistoryDepth int `json:"history_depth,omitempty"`

	// QueueSize bounds the run loop's task queue.
	QueueSize int `json:"queue_size,omitempty"`
}

// PresenterConfig controls the console presenter.
//
// Enabled is a pointer so we can distinguish "omitted" (default true)
// from an explicit false.
type PresenterConfig struct {
	Enabled    *bool `json:"enabled,omitempty"`
	RatePerSec int   `json:"rate_per_sec,omitempty"`
	ShowBadges bool  `json:"show_badges,omitempty"`
}

// ScenarioConfig names a built-in simulator scenario and, optionally, a
// cron schedule to re-run it on (5-field, or 6-field with seconds).
type ScenarioConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule,omitempty"`
}

// Validate checks field syntax. Semantic checks (unknown scenario names,
// cron specs) belong to the services consuming the section.
func (c *Config) Validate() error {
	if _, err := ParseDuration("track.batch_window", c.Track.BatchWindow); err != nil {
		return err
	}
	if _, err := ParseDuration("track.notification_ttl", c.Track.NotificationTTL); err != nil {
		return err
	}
	if c.Track.MaxNotifications < 0 {
		return fmt.Errorf("track.max_notifications: must be >= 0")
	}
	if c.Track.HistoryDepth < 0 {
		return fmt.Errorf("track.history_depth: must be >= 0")
	}
	if c.Track.QueueSize < 0 {
		return fmt.Errorf("track.queue_size: must be >= 0")
	}
	if c.Presenter != nil && c.Presenter.RatePerSec < 0 {
		return fmt.Errorf("presenter.rate_per_sec: must be >= 0")
	}
	for i, sc := range c.Scenarios {
		if strings.TrimSpace(sc.Name) == "" {
			return fmt.Errorf("scenarios[%d]: name is required", i)
		}
	}
	return nil
}

// Default returns the config used when no file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Console: true},
	}
}
