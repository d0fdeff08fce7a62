package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	OCR      OCRConfig      `yaml:"ocr"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	PoolSize          int           `yaml:"pool_size"`
	VerificationQueue string        `yaml:"verification_queue"`
	DLQSuffix         string        `yaml:"dlq_suffix"`
	ResultTTL         time.Duration `yaml:"result_ttl"`
}

type StorageConfig struct {
	Backend string             `yaml:"backend"` // "s3" or "local"
	Local   LocalStorageConfig `yaml:"local"`
	S3      S3Config           `yaml:"s3"`
}

type LocalStorageConfig struct {
	Root string `yaml:"root"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type OCRConfig struct {
	ScratchDir   string `yaml:"scratch_dir"`
	PdftoppmPath string `yaml:"pdftoppm_path"`
	Language     string `yaml:"language"`
	Density      int    `yaml:"density"`
	PageWidth    int    `yaml:"page_width"`
	PageHeight   int    `yaml:"page_height"`
}

type WorkersConfig struct {
	Verify VerifyWorkerConfig `yaml:"verify"`
}

type VerifyWorkerConfig struct {
	Count      int           `yaml:"count"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Redis.VerificationQueue == "" {
		c.Redis.VerificationQueue = "verify:jobs"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Workers.Verify.Count <= 0 {
		c.Workers.Verify.Count = 4
	}
	if c.Workers.Verify.JobTimeout <= 0 {
		c.Workers.Verify.JobTimeout = 2 * time.Minute
	}
	if c.OCR.ScratchDir == "" {
		c.OCR.ScratchDir = os.TempDir()
	}
	if c.OCR.PdftoppmPath == "" {
		c.OCR.PdftoppmPath = "pdftoppm"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.OCR.Density <= 0 {
		c.OCR.Density = 200
	}
	if c.OCR.PageWidth <= 0 {
		c.OCR.PageWidth = 1200
	}
	if c.OCR.PageHeight <= 0 {
		c.OCR.PageHeight = 1600
	}
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
