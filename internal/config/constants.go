package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8082
	defaultEnv        = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "slidehub_ai"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "slidehub"

	defaultVisionType     = "gemini"
	defaultVisionEndpoint = "https://generativelanguage.googleapis.com"
	defaultVisionModel    = "gemini-1.5-flash"
	defaultTextType       = "groq"
	defaultTextModel      = "llama-3.3-70b-versatile"
	defaultTemperature    = 0.7
	defaultMaxTokens      = 1024
	defaultAITimeout      = 60 * time.Second
	defaultLanguage       = "es"
	defaultBatchDelay     = 1500 * time.Millisecond

	defaultFetchTimeout  = 30 * time.Second
	defaultFetchMaxBytes = 16 << 20
)

// Storage drivers accepted in storage.driver.
const (
	StorageMySQL  = "mysql"
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)
