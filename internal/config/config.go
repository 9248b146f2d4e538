package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Mongo          MongoRuntimeConfig `yaml:"mongo"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	Auth           AuthConfig         `yaml:"auth"`
	Metrics        MetricsConfig      `yaml:"metrics"`
	Jobs           JobsConfig         `yaml:"jobs"`
}

type MongoRuntimeConfig struct {
	URI                      string            `yaml:"uri"`
	Host                     string            `yaml:"host"`
	Port                     int               `yaml:"port"`
	Username                 string            `yaml:"username"`
	Password                 string            `yaml:"password"`
	Database                 string            `yaml:"database"`
	Params                   map[string]string `yaml:"params"`
	MaxPoolSize              uint64            `yaml:"max_pool_size"`
	ServerSelectionTimeoutMS int               `yaml:"server_selection_timeout_ms"`
	SocketTimeoutMS          int               `yaml:"socket_timeout_ms"`
	EnsureIndexes            bool              `yaml:"ensure_indexes"`
	Driver                   string            `yaml:"driver"` // "mongo" | "memory"
}

type RedisRuntimeConfig struct {
	Enable   bool   `yaml:"enable"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type RateLimitConfig struct {
	Enable            bool    `yaml:"enable"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Backend           string  `yaml:"backend"` // "redis" | "memory"
}

type AuthConfig struct {
	Enable    bool   `yaml:"enable"`
	JWTSecret string `yaml:"jwt_secret"`
}

type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// JobsConfig controls the background maintenance scheduler.
type JobsConfig struct {
	Enable           bool `yaml:"enable"`
	LogRetentionDays int  `yaml:"log_retention_days"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawAppConfig struct {
	Port               int              `yaml:"port"`
	Env                string           `yaml:"env"`
	NodeEnv            string           `yaml:"node_env"`
	AllowedOrigins     []string         `yaml:"allowed_origins"`
	CORSAllowedOrigins []string         `yaml:"cors_allowed_origins"`
	Paths              rawPathsConfig   `yaml:"paths"`
	LogDir             string           `yaml:"log_dir"`
	MongoDBURI         string           `yaml:"mongodb_uri"`
	Mongo              rawMongoConfig   `yaml:"mongo"`
	Redis              rawRedisConfig   `yaml:"redis"`
	RedisURL           string           `yaml:"redis_url"`
	RateLimit          rawRateLimit     `yaml:"rate_limit"`
	Auth               rawAuthConfig    `yaml:"auth"`
	JWTSecret          string           `yaml:"jwt_secret"`
	Metrics            rawMetricsConfig `yaml:"metrics"`
	Jobs               rawJobsConfig    `yaml:"jobs"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawMongoConfig struct {
	URI                      string            `yaml:"uri"`
	URL                      string            `yaml:"url"`
	Host                     string            `yaml:"host"`
	Port                     int               `yaml:"port"`
	User                     string            `yaml:"user"`
	Username                 string            `yaml:"username"`
	Password                 string            `yaml:"password"`
	Database                 string            `yaml:"database"`
	Name                     string            `yaml:"name"`
	Params                   map[string]string `yaml:"params"`
	MaxPoolSize              *uint64           `yaml:"max_pool_size"`
	ServerSelectionTimeoutMS *int              `yaml:"server_selection_timeout_ms"`
	SocketTimeoutMS          *int              `yaml:"socket_timeout_ms"`
	EnsureIndexes            *bool             `yaml:"ensure_indexes"`
	Driver                   string            `yaml:"driver"`
}

type rawRedisConfig struct {
	Enable   *bool  `yaml:"enable"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawRateLimit struct {
	Enable            *bool    `yaml:"enable"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`
	Burst             *int     `yaml:"burst"`
	Backend           string   `yaml:"backend"`
}

type rawAuthConfig struct {
	Enable    *bool  `yaml:"enable"`
	JWTSecret string `yaml:"jwt_secret"`
}

type rawMetricsConfig struct {
	Enable *bool  `yaml:"enable"`
	Path   string `yaml:"path"`
}

type rawJobsConfig struct {
	Enable           *bool `yaml:"enable"`
	LogRetentionDays *int  `yaml:"log_retention_days"`
}

// Load reads configPath and applies environment overrides. When configPath
// is empty and the default file does not exist, defaults are used.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawAppConfig{}
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		applyRawAppConfig(&cfg, raw)
	case !explicit && errors.Is(err, fs.ErrNotExist):
		path = "<defaults>"
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w in %q", err, path)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Mongo: MongoRuntimeConfig{
			Host:                     defaultMongoHost,
			Port:                     defaultMongoPort,
			MaxPoolSize:              defaultMongoPoolSize,
			ServerSelectionTimeoutMS: defaultMongoSSTMS,
			SocketTimeoutMS:          defaultMongoSocketMS,
			EnsureIndexes:            true,
			Driver:                   DriverMongo,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: defaultRateLimitRPS,
			Burst:             defaultRateLimitBurst,
		},
		Metrics: MetricsConfig{
			Enable: true,
			Path:   defaultMetricsPath,
		},
		Jobs: JobsConfig{
			Enable:           true,
			LogRetentionDays: defaultLogRetentionDays,
		},
	}
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	if len(raw.CORSAllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.CORSAllowedOrigins
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	cfg.Mongo = applyRawMongoConfig(cfg.Mongo, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	rl := raw.RateLimit
	if rl.Enable != nil {
		cfg.RateLimit.Enable = *rl.Enable
	}
	if rl.RequestsPerSecond != nil {
		cfg.RateLimit.RequestsPerSecond = *rl.RequestsPerSecond
	}
	if rl.Burst != nil {
		cfg.RateLimit.Burst = *rl.Burst
	}
	if v := strings.TrimSpace(rl.Backend); v != "" {
		cfg.RateLimit.Backend = v
	}

	if raw.Auth.Enable != nil {
		cfg.Auth.Enable = *raw.Auth.Enable
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Auth.JWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if raw.Metrics.Enable != nil {
		cfg.Metrics.Enable = *raw.Metrics.Enable
	}
	if v := strings.TrimSpace(raw.Metrics.Path); v != "" {
		cfg.Metrics.Path = v
	}

	if raw.Jobs.Enable != nil {
		cfg.Jobs.Enable = *raw.Jobs.Enable
	}
	if raw.Jobs.LogRetentionDays != nil {
		cfg.Jobs.LogRetentionDays = *raw.Jobs.LogRetentionDays
	}
}

func applyRawMongoConfig(current MongoRuntimeConfig, raw rawAppConfig) MongoRuntimeConfig {
	next := current
	m := raw.Mongo

	if v := strings.TrimSpace(raw.MongoDBURI); v != "" {
		next.URI = v
	}
	if v := strings.TrimSpace(m.URL); v != "" {
		next.URI = v
	}
	if v := strings.TrimSpace(m.URI); v != "" {
		next.URI = v
	}
	if v := strings.TrimSpace(m.Host); v != "" {
		next.Host = v
	}
	if m.Port != 0 {
		next.Port = m.Port
	}
	if v := strings.TrimSpace(m.User); v != "" {
		next.Username = v
	}
	if v := strings.TrimSpace(m.Username); v != "" {
		next.Username = v
	}
	if m.Password != "" {
		next.Password = m.Password
	}
	if v := strings.TrimSpace(m.Name); v != "" {
		next.Database = v
	}
	if v := strings.TrimSpace(m.Database); v != "" {
		next.Database = v
	}
	if len(m.Params) > 0 {
		next.Params = copyStringMap(m.Params)
	}
	if m.MaxPoolSize != nil {
		next.MaxPoolSize = *m.MaxPoolSize
	}
	if m.ServerSelectionTimeoutMS != nil {
		next.ServerSelectionTimeoutMS = *m.ServerSelectionTimeoutMS
	}
	if m.SocketTimeoutMS != nil {
		next.SocketTimeoutMS = *m.SocketTimeoutMS
	}
	if m.EnsureIndexes != nil {
		next.EnsureIndexes = *m.EnsureIndexes
	}
	if v := strings.TrimSpace(m.Driver); v != "" {
		next.Driver = v
	}
	return next
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	next := current
	r := raw.Redis

	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		next.URL = v
	}
	if v := strings.TrimSpace(r.URL); v != "" {
		next.URL = v
	}
	if r.Enable != nil {
		next.Enable = *r.Enable
	} else if next.URL != "" {
		next.Enable = true
	}
	if v := strings.TrimSpace(r.Host); v != "" {
		next.Host = v
	}
	if r.Port != 0 {
		next.Port = r.Port
	}
	if v := strings.TrimSpace(r.Username); v != "" {
		next.Username = v
	}
	if r.Password != "" {
		next.Password = r.Password
	}
	if r.DB != nil {
		next.DB = *r.DB
	}
	if r.TLS != nil {
		next.TLS = *r.TLS
	}
	return next
}

// applyEnv lets the deployment environment override the file.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("MONGODB_URI"); ok && strings.TrimSpace(v) != "" {
		cfg.Mongo.URI = strings.TrimSpace(v)
	}
	if v, ok := lookup("PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Port = port
		}
	}
}

func (c *AppConfig) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.AllowedOrigins = normalizeOrigins(c.AllowedOrigins)
	c.Paths = normalizeRuntimePaths(c.Paths)
	c.Mongo = normalizeMongoConfig(c.Mongo)
	c.Redis = normalizeRedisConfig(c.Redis)
	c.RateLimit = normalizeRateLimit(c.RateLimit, c.Redis.Enable)
	c.Metrics.Path = normalizeMetricsPath(c.Metrics.Path)
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Mongo.Port < 1 || c.Mongo.Port > 65535 {
		return fmt.Errorf("invalid mongo.port %d, expected 1-65535", c.Mongo.Port)
	}
	if c.Mongo.Driver != DriverMongo && c.Mongo.Driver != DriverMemory {
		return fmt.Errorf("invalid mongo.driver %q, expected %q or %q", c.Mongo.Driver, DriverMongo, DriverMemory)
	}
	if c.Mongo.ServerSelectionTimeoutMS < 0 || c.Mongo.SocketTimeoutMS < 0 {
		return errors.New("invalid mongo timeouts, expected >= 0")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.RateLimit.Enable {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid rate_limit.requests_per_second %v, expected > 0", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("invalid rate_limit.burst %d, expected >= 1", c.RateLimit.Burst)
		}
		if c.RateLimit.Backend != RateLimitRedis && c.RateLimit.Backend != RateLimitMemory {
			return fmt.Errorf("invalid rate_limit.backend %q, expected %q or %q", c.RateLimit.Backend, RateLimitRedis, RateLimitMemory)
		}
		if c.RateLimit.Backend == RateLimitRedis && !c.Redis.Enable {
			return errors.New("rate_limit.backend \"redis\" requires redis.enable")
		}
	}
	if c.Jobs.LogRetentionDays < 0 {
		return fmt.Errorf("invalid jobs.log_retention_days %d, expected >= 0", c.Jobs.LogRetentionDays)
	}
	if c.Auth.Enable && c.Auth.JWTSecret == "" {
		return errors.New("auth.enable requires auth.jwt_secret")
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// LogDir is the directory the rotating logs are written to. A relative
// paths.logs resolves against the directory holding the binary.
func (c *AppConfig) LogDir() string {
	dir := defaultLogSubdir
	if c != nil && strings.TrimSpace(c.Paths.Logs) != "" {
		dir = strings.TrimSpace(c.Paths.Logs)
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(binaryDir(), dir)
}

// binaryDir falls back to the working directory when the executable path
// cannot be determined.
func binaryDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
