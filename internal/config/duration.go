package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration tunables travel through the config file as Go duration
// strings ("300ms", "8s"). Two kinds of fallback exist: DurationOrDefault
// for fields where zero makes no sense (a zero batch window is just "use
// the built-in one"), and OptionalDuration for fields where an explicit
// "0s" is a meaningful setting of its own (expiry disabled) and only a
// missing value falls back.

// ParseDuration parses raw as a non-negative duration. A blank value
// parses to zero without error so callers can layer their own fallback.
func ParseDuration(name, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", name, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %q is negative", name, raw)
	}
	return d, nil
}

// DurationOrDefault substitutes def when the field is blank or zero.
func DurationOrDefault(name, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDuration(name, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// OptionalDuration substitutes def only when the field is absent; an
// explicit "0s" comes back as zero.
func OptionalDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return ParseDuration(name, raw)
}
