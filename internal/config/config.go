package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`

	DataDir         string `yaml:"data_dir"`
	UsersFile       string `yaml:"users_file"`
	CriteriaFile    string `yaml:"criteria_file"`
	EvaluationsFile string `yaml:"evaluations_file"`
	ExportsDir      string `yaml:"exports_dir"`
	BackupsDir      string `yaml:"backups_dir"`
	LogsDir         string `yaml:"logs_dir"`
	LogToFile       bool   `yaml:"log_to_file"`

	RatingMin int `yaml:"rating_min"`
	RatingMax int `yaml:"rating_max"`

	LockTimeout time.Duration `yaml:"lock_timeout"`
	LockMode    string        `yaml:"lock_mode"`

	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`

	CORSOrigins    []string `yaml:"cors_origins"`
	LoginRateLimit int      `yaml:"login_rate_limit"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	AdminFullName string `yaml:"admin_full_name"`
	AdminEmail    string `yaml:"admin_email"`

	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`

	BackupInterval time.Duration `yaml:"backup_interval"`
	WorkerPort     int           `yaml:"worker_port"`
}

const (
	LockModePerOperation = "per-operation"
	LockModeSerialized   = "serialized"
)

func Default() Config {
	return Config{
		Env:            "dev",
		Port:           8080,
		DataDir:        "data",
		ExportsDir:     "exports",
		BackupsDir:     "backups",
		LogsDir:        "logs",
		RatingMin:      1,
		RatingMax:      5,
		LockTimeout:    10 * time.Second,
		LockMode:       LockModePerOperation,
		AccessTokenTTL: 8 * time.Hour,
		ServiceName:    "perfeval",
		CORSOrigins:    []string{"http://localhost:3000"},
		LoginRateLimit: 10,
		MaxBodyBytes:   1 << 20,
		AdminFullName:  "System Administrator",
		AdminEmail:     "admin@example.com",
		BackupInterval: 24 * time.Hour,
		WorkerPort:     8081,
	}
}

// Load layers defaults, the optional YAML file at path (or $PERFEVAL_CONFIG),
// a .env file in the working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PERFEVAL_CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnvInt("PORT", cfg.Port, &errs)

	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.UsersFile = getEnv("USERS_FILE", cfg.UsersFile)
	cfg.CriteriaFile = getEnv("CRITERIA_FILE", cfg.CriteriaFile)
	cfg.EvaluationsFile = getEnv("EVALUATIONS_FILE", cfg.EvaluationsFile)
	cfg.ExportsDir = getEnv("EXPORTS_DIR", cfg.ExportsDir)
	cfg.BackupsDir = getEnv("BACKUPS_DIR", cfg.BackupsDir)
	cfg.LogsDir = getEnv("LOGS_DIR", cfg.LogsDir)
	cfg.LogToFile = getEnvBool("LOG_TO_FILE", cfg.LogToFile, &errs)

	cfg.RatingMin = getEnvInt("RATING_MIN", cfg.RatingMin, &errs)
	cfg.RatingMax = getEnvInt("RATING_MAX", cfg.RatingMax, &errs)

	cfg.LockTimeout = getEnvDuration("STORE_LOCK_TIMEOUT", cfg.LockTimeout, &errs)
	cfg.LockMode = getEnv("STORE_LOCK_MODE", cfg.LockMode)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL, &errs)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB, &errs)

	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	cfg.LoginRateLimit = getEnvInt("LOGIN_RATE_LIMIT", cfg.LoginRateLimit, &errs)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes), &errs))

	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.AdminFullName = getEnv("ADMIN_FULL_NAME", cfg.AdminFullName)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)

	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", cfg.S3SecretKey)

	cfg.BackupInterval = getEnvDuration("BACKUP_INTERVAL", cfg.BackupInterval, &errs)
	cfg.WorkerPort = getEnvInt("WORKER_PORT", cfg.WorkerPort, &errs)

	return errors.Join(errs...)
}

// resolvePaths fills unset data file paths from DataDir.
func (c *Config) resolvePaths() {
	if c.UsersFile == "" {
		c.UsersFile = filepath.Join(c.DataDir, "users.json")
	}
	if c.CriteriaFile == "" {
		c.CriteriaFile = filepath.Join(c.DataDir, "criteria.json")
	}
	if c.EvaluationsFile == "" {
		c.EvaluationsFile = filepath.Join(c.DataDir, "evaluations.json")
	}
}

// WithDataDir points every data file at dir, dropping per-file overrides.
func (c Config) WithDataDir(dir string) Config {
	c.DataDir = dir
	c.UsersFile, c.CriteriaFile, c.EvaluationsFile = "", "", ""
	c.resolvePaths()
	return c
}

func (c Config) Validate() error {
	var errs []error

	if c.RatingMin > c.RatingMax {
		errs = append(errs, fmt.Errorf("rating range %d..%d is empty", c.RatingMin, c.RatingMax))
	}
	if c.LockMode != LockModePerOperation && c.LockMode != LockModeSerialized {
		errs = append(errs, fmt.Errorf("STORE_LOCK_MODE must be %q or %q, got %q", LockModePerOperation, LockModeSerialized, c.LockMode))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, errors.New("STORE_LOCK_TIMEOUT must be positive"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.BackupInterval <= 0 {
		errs = append(errs, errors.New("BACKUP_INTERVAL must be positive"))
	}
	if c.Env == "prod" && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in prod"))
	}

	return errors.Join(errs...)
}

func (c Config) IsDev() bool { return c.Env == "dev" }

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return d
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
