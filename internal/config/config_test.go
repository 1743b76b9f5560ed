package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DATABASE", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 100, cfg.MessageLimit)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, "gpt-4o-mini", cfg.CompletionModel)
	assert.Equal(t, 30*time.Second, cfg.CompletionTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "DB_DATABASE=/tmp/botdesk.db\nMESSAGE_LIMIT=25\nCOMPLETION_TIMEOUT=5s\nADMIN_EMAIL=root@example.com\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("ENV_FILE", envFile)
	// godotenv does not override variables that are already set
	t.Setenv("PORT", "8080")
	for _, key := range []string{"DB_DATABASE", "MESSAGE_LIMIT", "COMPLETION_TIMEOUT", "ADMIN_EMAIL"} {
		key := key
		prev, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/tmp/botdesk.db", cfg.DBDatabase)
	assert.Equal(t, 25, cfg.MessageLimit)
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing database", Config{DBType: "sqlite", MessageLimit: 1, HistoryLimit: 1}, "DB_DATABASE"},
		{"server db needs user", Config{DBType: "postgres", DBDatabase: "bots", MessageLimit: 1, HistoryLimit: 1}, "DB_USER"},
		{"zero message limit", Config{DBType: "sqlite", DBDatabase: "x.db", HistoryLimit: 1}, "MESSAGE_LIMIT"},
		{"zero history limit", Config{DBType: "sqlite", DBDatabase: "x.db", MessageLimit: 1}, "HISTORY_LIMIT"},
		{"ok", Config{DBType: "sqlite", DBDatabase: "x.db", MessageLimit: 1, HistoryLimit: 1}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Config{AuthzURL: "http://authz:8080", AuthzClientID: "client"}
	assert.ErrorContains(t, cfg.ValidateServer(), "COMPLETION_API_KEY")

	cfg.CompletionAPIKey = "sk-test"
	assert.NoError(t, cfg.ValidateServer())
}

func TestGetEnvAsDuration_Invalid(t *testing.T) {
	t.Setenv("BOTDESK_TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("BOTDESK_TEST_DURATION", time.Minute))
}
