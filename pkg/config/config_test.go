package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsms/warehouse-backend/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("warehouse-service")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "wsms_warehouse", cfg.Database.Database)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, "wsms", cfg.JWT.Issuer)

	assert.NotEmpty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestDatabaseDSN(t *testing.T) {
	t.Run("builds DSN from parts", func(t *testing.T) {
		cfg := config.DatabaseConfig{
			Host:     "db.internal",
			Port:     5432,
			User:     "wsms",
			Password: "secret",
			Database: "wsms_warehouse",
			SSLMode:  "require",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "host=db.internal")
		assert.Contains(t, dsn, "dbname=wsms_warehouse")
		assert.Contains(t, dsn, "sslmode=require")
	})

	t.Run("URL takes precedence", func(t *testing.T) {
		cfg := config.DatabaseConfig{
			URL:  "postgres://u:p@db.internal:5432/wsms?sslmode=disable",
			Host: "ignored",
		}

		assert.Equal(t, cfg.URL, cfg.DSN())
	})
}

func TestDatabaseValidate(t *testing.T) {
	t.Run("development allows localhost", func(t *testing.T) {
		cfg := config.DatabaseConfig{Host: "localhost"}
		assert.NoError(t, cfg.Validate(config.EnvDevelopment))
	})

	t.Run("production rejects localhost host", func(t *testing.T) {
		cfg := config.DatabaseConfig{Host: "localhost"}
		assert.Error(t, cfg.Validate(config.EnvProduction))
	})

	t.Run("production accepts explicit URL", func(t *testing.T) {
		cfg := config.DatabaseConfig{URL: "postgres://u:p@db.prod:5432/wsms"}
		assert.NoError(t, cfg.Validate(config.EnvProduction))
	})

	t.Run("staging requires host or URL", func(t *testing.T) {
		cfg := config.DatabaseConfig{}
		assert.Error(t, cfg.Validate(config.EnvStaging))
	})
}
