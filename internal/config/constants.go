package config

const (
	// DefaultConfigPath is used when -config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3000
	defaultEnv        = "development"

	defaultMongoHost     = "127.0.0.1"
	defaultMongoPort     = 27017
	defaultMongoDatabase = "insightboard"
	defaultMongoPoolSize = 10
	defaultMongoSSTMS    = 5000
	defaultMongoSocketMS = 45000

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20

	defaultMetricsPath = "/metrics"

	defaultLogRetentionDays = 14
	defaultLogSubdir        = "logs"

	// DriverMongo and DriverMemory select the insight store backend.
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	// RateLimitRedis and RateLimitMemory select the rate limiter backend.
	RateLimitRedis  = "redis"
	RateLimitMemory = "memory"
)
