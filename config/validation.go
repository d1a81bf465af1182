package config

import "errors"

func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Decoys.MinDistance < 0 {
		return errors.New("decoys.minDistance must not be negative")
	}
	if c.Decoys.MinDistance > c.Decoys.MaxDistance {
		return errors.New("decoys.minDistance must not exceed decoys.maxDistance")
	}
	if c.Decoys.FallbackLat < -90 || c.Decoys.FallbackLat > 90 {
		return errors.New("decoys.fallbackLat out of range")
	}
	if c.Decoys.FallbackLon < -180 || c.Decoys.FallbackLon > 180 {
		return errors.New("decoys.fallbackLon out of range")
	}

	if c.Sweep.Interval < 1 {
		return errors.New("sweep.interval must be at least 1 second")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.New("invalid metrics port")
		}
		if c.Metrics.Port == c.Server.Port {
			return errors.New("metrics port must differ from server port")
		}
	}

	if c.Radio.Enabled && c.Radio.Duration < 1 {
		return errors.New("radio.duration must be at least 1 second")
	}

	return nil
}
