package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RateLimit      float64  `yaml:"rateLimit"` // requests per second per client
		RateBurst      int      `yaml:"rateBurst"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Public     bool   `yaml:"public"` // bucket readable without signature
	} `yaml:"minio"`

	AI struct {
		APIKey           string        `yaml:"apiKey"`
		BaseURL          string        `yaml:"baseURL"`
		Model            string        `yaml:"model"`
		MatchMaxTokens   int           `yaml:"matchMaxTokens"`
		GapMaxTokens     int           `yaml:"gapMaxTokens"`
		Timeout          time.Duration `yaml:"timeout"`
		EnforceMatchRule bool          `yaml:"enforce_match_rule"`
		StrictShape      bool          `yaml:"strict_shape"`
	} `yaml:"ai"`

	Analysis struct {
		MaxUploadBytes int64  `yaml:"maxUploadBytes"`
		Concurrency    int    `yaml:"concurrency"`
		SeedChecklist  string `yaml:"seedChecklist"` // optional YAML file, embedded ISO list otherwise
	} `yaml:"analysis"`
}

// ValidationError describes one invalid config field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Load baca file config.yaml. Missing file is fine, defaults + env dipakai.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	mergeWithEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 20
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case DriverPostgres:
			c.Database.Port = 5432
		default:
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "evidence"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}

	if c.AI.Model == "" {
		c.AI.Model = "gpt-3.5-turbo"
	}
	if c.AI.MatchMaxTokens == 0 {
		c.AI.MatchMaxTokens = 500
	}
	if c.AI.GapMaxTokens == 0 {
		c.AI.GapMaxTokens = 800
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}

	if c.Analysis.MaxUploadBytes == 0 {
		c.Analysis.MaxUploadBytes = 5 << 20
	}
	if c.Analysis.Concurrency == 0 {
		c.Analysis.Concurrency = 4
	}
}

func mergeWithEnv(c *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate returns every problem found, empty when the config is usable.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be between 1 and 65535"})
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverMySQL, DriverPostgres:
		if c.Database.Name == "" {
			errs = append(errs, ValidationError{"database.name", "required for " + c.Database.Driver})
		}
	default:
		errs = append(errs, ValidationError{"database.driver", "must be mysql, postgres or memory"})
	}
	if c.AI.APIKey == "" {
		errs = append(errs, ValidationError{"ai.apiKey", "required (or set OPENAI_API_KEY)"})
	}
	if c.AI.MatchMaxTokens < 0 || c.AI.GapMaxTokens < 0 {
		errs = append(errs, ValidationError{"ai.maxTokens", "must not be negative"})
	}
	if c.Analysis.MaxUploadBytes < 0 {
		errs = append(errs, ValidationError{"analysis.maxUploadBytes", "must not be negative"})
	}
	if c.Analysis.Concurrency < 0 {
		errs = append(errs, ValidationError{"analysis.concurrency", "must not be negative"})
	}
	return errs
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// MinioEnabled reports whether uploaded documents should be kept in MinIO.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != ""
}
