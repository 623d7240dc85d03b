package config

import (
	"fmt"
	"time"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

// DefaultInterval applies to sensors that leave interval unset.
const DefaultInterval = 2 * time.Second

type SensorConfig struct {
	ID       string        `yaml:"id"`
	Type     string        `yaml:"type"`
	Interval time.Duration `yaml:"interval"`
}

func (s SensorConfig) interval() time.Duration {
	if s.Interval == 0 {
		return DefaultInterval
	}
	return s.Interval
}

func (c *Config) validateSensors() []error {
	var errs []error
	seen := make(map[string]bool, len(c.Sensors))

	for i, s := range c.Sensors {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sensors[%d]: id is required", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sensors[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true

		if _, err := model.ParseKind(s.Type); err != nil {
			errs = append(errs, fmt.Errorf("sensors[%d] %s: %w", i, s.ID, err))
		}
		if s.Interval < 0 {
			errs = append(errs, fmt.Errorf("sensors[%d] %s: interval must be positive", i, s.ID))
		}
	}

	return errs
}

// Identities converts the configured fleet, applying the default interval.
func (c *Config) Identities() ([]model.Identity, error) {
	ids := make([]model.Identity, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		kind, err := model.ParseKind(s.Type)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.ID, err)
		}
		ids = append(ids, model.NewIdentity(s.ID, kind, s.interval()))
	}
	return ids, nil
}
