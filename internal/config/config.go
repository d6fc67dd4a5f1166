package config

import (
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	// Tracking
	MonitoringDistance float64       // Significant-change threshold, meters
	NearbyRadius       float64       // Place adoption and merge radius, meters
	DistanceFilter     float64       // Sampler minimum reporting distance, meters
	CheckpointInterval time.Duration // Session re-flush interval
	MergeInterval      time.Duration // Dedupe pass interval
	MergeInitialDelay  time.Duration // Delay before the first dedupe pass
	AllowBackground    bool          // Keep sampling while the app is backgrounded

	// Photo import
	PhotoDir string
}

// Load 加载配置
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/places/places.db"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		MonitoringDistance: getEnvFloat("MONITORING_DISTANCE", 50.0),
		NearbyRadius:       getEnvFloat("NEARBY_RADIUS", 50.0),
		DistanceFilter:     getEnvFloat("DISTANCE_FILTER", 10.0),
		CheckpointInterval: getEnvDuration("CHECKPOINT_INTERVAL", time.Second),
		MergeInterval:      getEnvDuration("MERGE_INTERVAL", 15*time.Second),
		MergeInitialDelay:  getEnvDuration("MERGE_INITIAL_DELAY", 10*time.Second),
		AllowBackground:    getEnvBool("ALLOW_BACKGROUND", true),

		PhotoDir: getEnv("PHOTO_DIR", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
