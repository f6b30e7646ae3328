package config

import (
	"os"
	"strconv"
)

type Config struct {
	MongoURI         string
	MongoDB          string
	Port             string
	SweepIntervalMin int
	SweepBatchSize   int
	OfferTTLMin      int
}

// LoadConfig reads configuration from the environment, falling back to
// development defaults.
func LoadConfig() *Config {
	return &Config{
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGO_DB", "linkup"),
		Port:             getEnv("PORT", "3000"),
		SweepIntervalMin: getEnvInt("SWEEP_INTERVAL_MINUTES", 5),
		SweepBatchSize:   getEnvInt("SWEEP_BATCH_SIZE", 100),
		OfferTTLMin:      getEnvInt("OFFER_TTL_MINUTES", 30),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
