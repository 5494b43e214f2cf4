package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	LogDir         string                `yaml:"log_dir"`
	Storage        StorageConfig         `yaml:"storage"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Mongo          MongoRuntimeConfig    `yaml:"mongo"`
	RedisURL       string                `yaml:"redis_url"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	AI             AIConfig              `yaml:"ai"`
	ImageFetch     ImageFetchConfig      `yaml:"image_fetch"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type MongoRuntimeConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

// ProviderConfig describes one generative provider binding.
type ProviderConfig struct {
	Type        string        `yaml:"type"`
	APIKey      string        `yaml:"api_key"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"-"`
}

type AIConfig struct {
	Vision     ProviderConfig `yaml:"vision"`
	Text       ProviderConfig `yaml:"text"`
	Language   string         `yaml:"language"`
	BatchDelay time.Duration  `yaml:"-"`
}

type ImageFetchConfig struct {
	Timeout  time.Duration `yaml:"-"`
	MaxBytes int64         `yaml:"max_bytes"`
	S3       S3Config      `yaml:"s3"`
}

// S3Config configures the fetcher used for s3:// slide image URLs.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// Enabled reports whether S3 credentials were configured.
func (c S3Config) Enabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type rawAppConfig struct {
	Port               int               `yaml:"port"`
	Env                string            `yaml:"env"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_allowed_origins"`
	LogDir             string            `yaml:"log_dir"`
	Storage            rawStorageConfig  `yaml:"storage"`
	DSN                string            `yaml:"dsn"`
	Database           rawDatabaseConfig `yaml:"database"`
	Mongo              rawMongoConfig    `yaml:"mongo"`
	RedisURL           string            `yaml:"redis_url"`
	Redis              rawRedisConfig    `yaml:"redis"`
	AI                 rawAIConfig       `yaml:"ai"`
	ImageFetch         rawImageFetch     `yaml:"image_fetch"`
}

type rawStorageConfig struct {
	Driver string `yaml:"driver"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawMongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

type rawProviderConfig struct {
	Type           string   `yaml:"type"`
	APIKey         string   `yaml:"api_key"`
	Endpoint       string   `yaml:"endpoint"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type rawAIConfig struct {
	Vision       rawProviderConfig `yaml:"vision"`
	Text         rawProviderConfig `yaml:"text"`
	Language     string            `yaml:"language"`
	BatchDelayMS *int              `yaml:"batch_delay_ms"`
}

type rawImageFetch struct {
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	MaxBytes       int64       `yaml:"max_bytes"`
	S3             rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}
