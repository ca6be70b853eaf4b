package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerPort     string
	AllowedOrigins []string
	LogLevel       string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	// JWT
	JWTSecret string

	// AWS S3 (content replica and avatars)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	S3UseSSL           string
	S3BucketName       string

	// IPFS
	IPFSAPIURL   string
	IPFSGateways []string

	// Content storage: "ipfs", "s3" or "memory"; replica is "s3" or empty
	ContentBackend string
	ContentReplica string

	// Contract
	ContractMode    string // "eth" or "memory"
	EthRPCURL       string
	ContractAddress string
	RelayerKey      string
	ChainID         int64

	// Local list limits
	NotificationCap int
	MessageCap      int

	// Mirror worker
	MirrorWorkers int
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE. It carries the
// list-valued settings that are awkward to express in environment variables.
type fileConfig struct {
	Server struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	IPFS struct {
		APIURL   string   `yaml:"api_url"`
		Gateways []string `yaml:"gateways"`
	} `yaml:"ipfs"`
}

var defaultGateways = []string{
	"https://ipfs.io",
	"https://gateway.pinata.cloud",
	"https://cloudflare-ipfs.com",
	"https://dweb.link",
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "blockconnect"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RabbitMQHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
		S3UseSSL:           getEnv("S3_USE_SSL", "true"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "blockconnect-content"),

		IPFSAPIURL:   getEnv("IPFS_API_URL", "localhost:5001"),
		IPFSGateways: splitList(getEnv("IPFS_GATEWAYS", "")),

		ContentBackend: getEnv("CONTENT_BACKEND", "ipfs"),
		ContentReplica: getEnv("CONTENT_REPLICA", ""),

		ContractMode:    getEnv("CONTRACT_MODE", "eth"),
		EthRPCURL:       getEnv("ETH_RPC_URL", "http://localhost:8545"),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		RelayerKey:      getEnv("RELAYER_PRIVATE_KEY", ""),
		ChainID:         int64(getEnvInt("CHAIN_ID", 31337)),

		NotificationCap: getEnvInt("NOTIFICATION_CAP", 100),
		MessageCap:      getEnvInt("MESSAGE_CAP", 500),

		MirrorWorkers: getEnvInt("MIRROR_WORKERS", 4),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if len(config.IPFSGateways) == 0 {
		config.IPFSGateways = append([]string(nil), defaultGateways...)
	}

	if config.ContractMode == "eth" && config.ContractAddress == "" {
		return nil, fmt.Errorf("CONTRACT_ADDRESS is required when CONTRACT_MODE=eth")
	}

	return config, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(fc.Server.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.Server.AllowedOrigins
	}
	if fc.IPFS.APIURL != "" {
		c.IPFSAPIURL = fc.IPFS.APIURL
	}
	if len(fc.IPFS.Gateways) > 0 {
		c.IPFSGateways = fc.IPFS.Gateways
	}
	return nil
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the DSN shared by gorm and goose.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
