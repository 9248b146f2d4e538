package config

import (
	"strings"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

func normalizeMongoConfig(cfg MongoRuntimeConfig) MongoRuntimeConfig {
	cfg.URI = strings.TrimSpace(cfg.URI)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Database = strings.TrimSpace(cfg.Database)
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))

	if cfg.Host == "" {
		cfg.Host = defaultMongoHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultMongoPort
	}
	if cfg.Database == "" && cfg.URI != "" {
		if cs, err := connstring.Parse(cfg.URI); err == nil {
			cfg.Database = cs.Database
		}
	}
	if cfg.Database == "" {
		cfg.Database = defaultMongoDatabase
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = defaultMongoPoolSize
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMongo
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeRateLimit(cfg RateLimitConfig, redisEnabled bool) RateLimitConfig {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		if redisEnabled {
			cfg.Backend = RateLimitRedis
		} else {
			cfg.Backend = RateLimitMemory
		}
	}
	return cfg
}

func normalizeMetricsPath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultMetricsPath
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Logs = strings.TrimSpace(paths.Logs)
	return paths
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
