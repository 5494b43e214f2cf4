package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content on top of the defaults and validates the result.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawAppConfig{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		applyRawAppConfig(&cfg, raw)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Storage.Driver {
	case StorageMySQL:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
	case StorageMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required when storage.driver is %q", StorageMongo)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q, expected mysql, mongo or memory", c.Storage.Driver)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if err := validateProvider("ai.vision", c.AI.Vision, visionProviderTypes); err != nil {
		return err
	}
	if err := validateProvider("ai.text", c.AI.Text, textProviderTypes); err != nil {
		return err
	}
	if c.AI.BatchDelay < 0 {
		return fmt.Errorf("invalid ai.batch_delay_ms %s, expected >= 0", c.AI.BatchDelay)
	}
	if c.ImageFetch.MaxBytes <= 0 {
		return fmt.Errorf("invalid image_fetch.max_bytes %d, expected > 0", c.ImageFetch.MaxBytes)
	}
	return nil
}

var (
	visionProviderTypes = []string{"gemini", "openai-compatible"}
	textProviderTypes   = []string{"groq", "openai", "openai-compatible", "anthropic", "gemini"}
)

func validateProvider(name string, p ProviderConfig, allowed []string) error {
	known := false
	for _, t := range allowed {
		if p.Type == t {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid %s.type %q, expected one of %s", name, p.Type, strings.Join(allowed, ", "))
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("invalid %s.temperature %v, expected 0-2", name, p.Temperature)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("invalid %s.max_tokens %d, expected >= 0", name, p.MaxTokens)
	}
	return nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port:    defaultPort,
		Env:     defaultEnv,
		Storage: StorageConfig{Driver: StorageMySQL},
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Mongo: MongoRuntimeConfig{
			URI:      defaultMongoURI,
			Database: defaultMongoDatabase,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		AI: AIConfig{
			Vision: ProviderConfig{
				Type:        defaultVisionType,
				Endpoint:    defaultVisionEndpoint,
				Model:       defaultVisionModel,
				Temperature: defaultTemperature,
				Timeout:     defaultAITimeout,
			},
			Text: ProviderConfig{
				Type:        defaultTextType,
				Model:       defaultTextModel,
				Temperature: defaultTemperature,
				MaxTokens:   defaultMaxTokens,
				Timeout:     defaultAITimeout,
			},
			Language:   defaultLanguage,
			BatchDelay: defaultBatchDelay,
		},
		ImageFetch: ImageFetchConfig{
			Timeout:  defaultFetchTimeout,
			MaxBytes: defaultFetchMaxBytes,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = v
	}
	if v := strings.TrimSpace(raw.Storage.Driver); v != "" {
		cfg.Storage.Driver = v
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.Mongo.URI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.Mongo.Database); v != "" {
		cfg.Mongo.Database = v
	}

	cfg.AI.Vision = applyRawProviderConfig(cfg.AI.Vision, raw.AI.Vision)
	cfg.AI.Text = applyRawProviderConfig(cfg.AI.Text, raw.AI.Text)
	if v := strings.TrimSpace(raw.AI.Language); v != "" {
		cfg.AI.Language = v
	}
	if raw.AI.BatchDelayMS != nil {
		cfg.AI.BatchDelay = time.Duration(*raw.AI.BatchDelayMS) * time.Millisecond
	}

	if raw.ImageFetch.TimeoutSeconds > 0 {
		cfg.ImageFetch.Timeout = time.Duration(raw.ImageFetch.TimeoutSeconds) * time.Second
	}
	if raw.ImageFetch.MaxBytes != 0 {
		cfg.ImageFetch.MaxBytes = raw.ImageFetch.MaxBytes
	}
	cfg.ImageFetch.S3 = S3Config{
		Endpoint:        strings.TrimSpace(raw.ImageFetch.S3.Endpoint),
		Region:          strings.TrimSpace(raw.ImageFetch.S3.Region),
		AccessKeyID:     strings.TrimSpace(raw.ImageFetch.S3.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(raw.ImageFetch.S3.SecretAccessKey),
		PathStyle:       raw.ImageFetch.S3.PathStyle,
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Storage.Driver = normalizeStorageDriver(cfg.Storage.Driver)
	cfg.AI.Vision = normalizeProviderConfig(cfg.AI.Vision)
	cfg.AI.Text = normalizeProviderConfig(cfg.AI.Text)
	cfg.AI.Language = normalizeLanguage(cfg.AI.Language)
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Database.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.Host); v != "" {
		cfg.Host = v
	}
	if raw.Database.Port != 0 {
		cfg.Port = raw.Database.Port
	}
	if v := strings.TrimSpace(raw.Database.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Database.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.Charset); v != "" {
		cfg.Charset = v
	}
	if raw.Database.ParseTime != nil {
		cfg.ParseTime = *raw.Database.ParseTime
	}
	if v := strings.TrimSpace(raw.Database.Loc); v != "" {
		cfg.Loc = v
	}
	if raw.Database.Params != nil {
		cfg.Params = copyStringMap(raw.Database.Params)
	}
	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if raw.Redis.Enable != nil {
		cfg.Enable = *raw.Redis.Enable
	}
	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
		if raw.Redis.Enable == nil {
			cfg.Enable = true
		}
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}
	return normalizeRedisConfig(cfg)
}

func applyRawProviderConfig(current ProviderConfig, raw rawProviderConfig) ProviderConfig {
	cfg := current
	if v := strings.TrimSpace(raw.Type); v != "" && !strings.EqualFold(v, cfg.Type) {
		// A new provider type invalidates the default endpoint and model.
		cfg.Type = v
		cfg.Endpoint = ""
		cfg.Model = ""
	}
	if v := strings.TrimSpace(raw.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	if raw.Temperature != nil {
		cfg.Temperature = *raw.Temperature
	}
	if raw.MaxTokens != 0 {
		cfg.MaxTokens = raw.MaxTokens
	}
	if raw.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	return cfg
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// LogDirPath resolves the log directory against HomeDir.
func (c *AppConfig) LogDirPath() string {
	return ResolveRuntimePath(c.LogDir, "logs")
}
