package config

import "testing"

func validConfig() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Port: 5000, ReadTimeout: 15},
		Decoys:  DecoyConfig{MinDistance: 50, MaxDistance: 500, FallbackLat: 40.7128, FallbackLon: -74.0060},
		Sweep:   SweepConfig{Interval: 10},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"zero server port", func(c *AppConfig) { c.Server.Port = 0 }},
		{"port out of range", func(c *AppConfig) { c.Server.Port = 70000 }},
		{"negative min distance", func(c *AppConfig) { c.Decoys.MinDistance = -1 }},
		{"min above max", func(c *AppConfig) { c.Decoys.MinDistance = 600 }},
		{"fallback lat out of range", func(c *AppConfig) { c.Decoys.FallbackLat = 91 }},
		{"fallback lon out of range", func(c *AppConfig) { c.Decoys.FallbackLon = -181 }},
		{"zero sweep interval", func(c *AppConfig) { c.Sweep.Interval = 0 }},
		{"metrics port clash", func(c *AppConfig) { c.Metrics.Port = c.Server.Port }},
		{"radio without duration", func(c *AppConfig) { c.Radio.Enabled = true; c.Radio.Duration = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}
