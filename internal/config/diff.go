package config

import (
	"reflect"
	"strings"

	logx "rendertrace/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus
// structured attrs for logging the reload.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Track tunables
	if oldCfg.Track != newCfg.Track {
		changed = append(changed, "track")
		attrs = append(attrs,
			logx.String("track.batch_window", strings.TrimSpace(newCfg.Track.BatchWindow)),
			logx.Int("track.max_notifications", newCfg.Track.MaxNotifications),
			logx.String("track.notification_ttl", strings.TrimSpace(newCfg.Track.NotificationTTL)),
			logx.Int("track.history_depth", newCfg.Track.HistoryDepth),
		)
	}

	// Presenter
	oP := derefPresenter(oldCfg.Presenter)
	nP := derefPresenter(newCfg.Presenter)
	if (oldCfg.Presenter != nil) != (newCfg.Presenter != nil) || !reflect.DeepEqual(oP, nP) {
		changed = append(changed, "presenter")
		attrs = append(attrs,
			logx.Bool("presenter.enabled", nP.Enabled == nil || *nP.Enabled),
			logx.Int("presenter.rate_per_sec", nP.RatePerSec),
		)
	}

	// Scenarios
	if !reflect.DeepEqual(oldCfg.Scenarios, newCfg.Scenarios) {
		changed = append(changed, "scenarios")
		attrs = append(attrs, logx.Int("scenarios.count", len(newCfg.Scenarios)))
	}

	return changed, attrs
}

func derefPresenter(p *PresenterConfig) PresenterConfig {
	if p == nil {
		return PresenterConfig{}
	}
	return *p
}
