package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 8080
database:
  driver: postgres
  host: db
  user: app
  password: secret
  name: evidence
minio:
  endpoint: minio:9000
  bucketName: docs
ai:
  apiKey: sk-file
  model: gpt-4o-mini
  timeout: 30s
  enforce_match_rule: true
analysis:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.AI.EnforceMatchRule)
	assert.False(t, cfg.AI.StrictShape)
	assert.Equal(t, 8, cfg.Analysis.Concurrency)
	assert.EqualValues(t, 5<<20, cfg.Analysis.MaxUploadBytes)
	assert.True(t, cfg.MinioEnabled())
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=evidence sslmode=disable", cfg.PostgresDSN())
}

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local/v1")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, "http://llm.local/v1", cfg.AI.BaseURL)
	assert.Equal(t, 500, cfg.AI.MatchMaxTokens)
	assert.Equal(t, 800, cfg.AI.GapMaxTokens)
	assert.Equal(t, 4, cfg.Analysis.Concurrency)
	assert.False(t, cfg.MinioEnabled())
	assert.Empty(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	cfg.Database.Driver = "sqlite"
	cfg.Server.Port = 70000

	errs := cfg.Validate()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"server.port", "database.driver", "ai.apiKey"}, fields)

	cfg.Database.Driver = DriverMySQL
	cfg.Server.Port = 3001
	cfg.AI.APIKey = "k"
	errs = cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "database.name: required for mysql", errs[0].Error())
}

func TestMySQLDSN(t *testing.T) {
	var cfg Config
	cfg.Database.User = "root"
	cfg.Database.Password = "pw"
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 3306
	cfg.Database.Name = "evidence"
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/evidence?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}
