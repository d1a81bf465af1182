package config

import "github.com/spf13/viper"

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.readTimeout", 15)

	// Decoys
	viper.SetDefault("decoys.minDistance", 50.0)
	viper.SetDefault("decoys.maxDistance", 500.0)
	// Default map viewport center
	viper.SetDefault("decoys.fallbackLat", 40.7128)
	viper.SetDefault("decoys.fallbackLon", -74.0060)

	// Sweep
	viper.SetDefault("sweep.interval", 10)

	// Metrics
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")

	// Data
	viper.SetDefault("data.dir", ".")

	// Speech
	viper.SetDefault("speech.model", "whisper-1")

	// Radio
	viper.SetDefault("radio.enabled", false)
	viper.SetDefault("radio.countryCode", "US")
	viper.SetDefault("radio.duration", 120)
}

func bindEnvVars() {
	viper.BindEnv("server.port", "BEACON_PORT")

	viper.BindEnv("decoys.minDistance", "BEACON_DECOY_MIN_DISTANCE")
	viper.BindEnv("decoys.maxDistance", "BEACON_DECOY_MAX_DISTANCE")

	viper.BindEnv("sweep.interval", "BEACON_SWEEP_INTERVAL")

	viper.BindEnv("metrics.enabled", "BEACON_METRICS_ENABLED")
	viper.BindEnv("metrics.port", "BEACON_METRICS_PORT")

	viper.BindEnv("data.dir", "BEACON_DATA_DIR")

	viper.BindEnv("speech.apiKey", "OPENAI_API_KEY")
	viper.BindEnv("speech.baseURL", "OPENAI_API_URL")
	viper.BindEnv("speech.model", "BEACON_SPEECH_MODEL")

	viper.BindEnv("radio.enabled", "BEACON_RADIO_ENABLED")
	viper.BindEnv("radio.countryCode", "BEACON_RADIO_COUNTRY")
	viper.BindEnv("radio.stream", "BEACON_RADIO_STREAM")
}
