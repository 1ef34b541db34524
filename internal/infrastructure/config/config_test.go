package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"BATCHLY_APP_NAME":                os.Getenv("BATCHLY_APP_NAME"),
		"BATCHLY_APP_ENV":                 os.Getenv("BATCHLY_APP_ENV"),
		"BATCHLY_APP_PORT":                os.Getenv("BATCHLY_APP_PORT"),
		"BATCHLY_DATABASE_HOST":           os.Getenv("BATCHLY_DATABASE_HOST"),
		"BATCHLY_DATABASE_PORT":           os.Getenv("BATCHLY_DATABASE_PORT"),
		"BATCHLY_DATABASE_USER":           os.Getenv("BATCHLY_DATABASE_USER"),
		"BATCHLY_DATABASE_PASSWORD":       os.Getenv("BATCHLY_DATABASE_PASSWORD"),
		"BATCHLY_DATABASE_DBNAME":         os.Getenv("BATCHLY_DATABASE_DBNAME"),
		"BATCHLY_DATABASE_SSLMODE":        os.Getenv("BATCHLY_DATABASE_SSLMODE"),
		"BATCHLY_DATABASE_MAX_OPEN_CONNS": os.Getenv("BATCHLY_DATABASE_MAX_OPEN_CONNS"),
		"BATCHLY_DATABASE_MAX_IDLE_CONNS": os.Getenv("BATCHLY_DATABASE_MAX_IDLE_CONNS"),
		"BATCHLY_SYNC_BATCH_SIZE":         os.Getenv("BATCHLY_SYNC_BATCH_SIZE"),
		"BATCHLY_SYNC_BACKOFF_BASE":       os.Getenv("BATCHLY_SYNC_BACKOFF_BASE"),
		"BATCHLY_SYNC_BACKOFF_CAP":        os.Getenv("BATCHLY_SYNC_BACKOFF_CAP"),
		"APP_ENV":                         os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "batchly-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "batchly", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 50, cfg.Sync.BatchSize)
		assert.Equal(t, 5, cfg.Sync.MaxAttempts)
		assert.Equal(t, 5, cfg.Scheduler.Workers)
	})

	t.Run("loads values from environment variables with BATCHLY prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("BATCHLY_APP_NAME", "test-app")
		os.Setenv("BATCHLY_APP_ENV", "testing")
		os.Setenv("BATCHLY_APP_PORT", "9000")
		os.Setenv("BATCHLY_DATABASE_HOST", "testdb.local")
		os.Setenv("BATCHLY_DATABASE_PORT", "5433")
		os.Setenv("BATCHLY_DATABASE_USER", "testuser")
		os.Setenv("BATCHLY_DATABASE_PASSWORD", "testpass")
		os.Setenv("BATCHLY_DATABASE_DBNAME", "testdb")
		os.Setenv("BATCHLY_DATABASE_SSLMODE", "require")
		os.Setenv("BATCHLY_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("BATCHLY_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("BATCHLY_SYNC_BATCH_SIZE", "25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 25, cfg.Sync.BatchSize)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("BATCHLY_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("BATCHLY_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("BATCHLY_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("BATCHLY_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates backoff base cannot exceed cap", func(t *testing.T) {
		clearEnv()
		os.Setenv("BATCHLY_SYNC_BACKOFF_BASE", "2h")
		os.Setenv("BATCHLY_SYNC_BACKOFF_CAP", "1h")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backoff_base")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"BATCHLY_APP_ENV":                os.Getenv("BATCHLY_APP_ENV"),
		"BATCHLY_DATABASE_PASSWORD":      os.Getenv("BATCHLY_DATABASE_PASSWORD"),
		"BATCHLY_DATABASE_SSLMODE":       os.Getenv("BATCHLY_DATABASE_SSLMODE"),
		"BATCHLY_LEDGER_API_BASE_URL":    os.Getenv("BATCHLY_LEDGER_API_BASE_URL"),
		"BATCHLY_LEDGER_CLIENT_ID":       os.Getenv("BATCHLY_LEDGER_CLIENT_ID"),
		"BATCHLY_LEDGER_CLIENT_SECRET":   os.Getenv("BATCHLY_LEDGER_CLIENT_SECRET"),
		"BATCHLY_WEBHOOK_SIGNING_SECRET": os.Getenv("BATCHLY_WEBHOOK_SIGNING_SECRET"),
		"APP_ENV":                        os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("BATCHLY_APP_ENV", "production")
		os.Setenv("BATCHLY_DATABASE_PASSWORD", "secure-password")
		os.Setenv("BATCHLY_DATABASE_SSLMODE", "require")
		os.Setenv("BATCHLY_LEDGER_API_BASE_URL", "https://ledger.example.com")
		os.Setenv("BATCHLY_LEDGER_CLIENT_ID", "client-id")
		os.Setenv("BATCHLY_LEDGER_CLIENT_SECRET", "client-secret")
		os.Setenv("BATCHLY_WEBHOOK_SIGNING_SECRET", "webhook-signing-secret")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("BATCHLY_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("BATCHLY_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires ledger credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("BATCHLY_LEDGER_CLIENT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.client_id and ledger.client_secret are required in production")
	})

	t.Run("requires webhook signing secret in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("BATCHLY_WEBHOOK_SIGNING_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook.signing_secret is required in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
