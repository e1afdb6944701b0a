package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "7638792b79244226452948404d635166546a576e5a7234753778214125442a47"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvMailAPIKey, "re_env_key")
	t.Setenv(EnvEncryptionKey, testEncryptionKey)
	t.Setenv(EnvScanKey, "scan-secret")
	t.Setenv(EnvControlKey, "control-secret")
}

func TestLoadConfig_DefaultsWithEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "certificates.db", config.Storage.Path)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "Validy <onboarding@resend.dev>", config.Mail.From)
	assert.Equal(t, "0 9 * * *", config.Notify.Schedule)
	assert.Equal(t, 10, config.Notify.DaysThreshold)
	assert.Equal(t, time.Second, config.Notify.SendInterval)

	assert.Equal(t, "re_env_key", config.Mail.APIKey)
	assert.Equal(t, testEncryptionKey, config.Encryption.Key)
	assert.Equal(t, "scan-secret", config.API.ScanKey)
	assert.Equal(t, "control-secret", config.API.ControlKey)
}

func TestLoadConfig_FileValuesAndEnvOverride(t *testing.T) {
	setRequiredEnv(t)

	path := writeConfigFile(t, `
server:
  addr: ":9090"
storage:
  path: /var/lib/validy/certs.db
log:
  level: debug
  format: json
mail:
  api_key: re_file_key
  from: "Alerts <alerts@example.com>"
notify:
  schedule: "30 8 * * 1-5"
  days_threshold: 21
  send_interval: 2s
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, "/var/lib/validy/certs.db", config.Storage.Path)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "Alerts <alerts@example.com>", config.Mail.From)
	assert.Equal(t, "30 8 * * 1-5", config.Notify.Schedule)
	assert.Equal(t, 21, config.Notify.DaysThreshold)
	assert.Equal(t, 2*time.Second, config.Notify.SendInterval)

	// Environment wins over the file for the secrets.
	assert.Equal(t, "re_env_key", config.Mail.APIKey)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := map[string]struct {
		unsetEnv string
		yaml     string
		errMsg   string
	}{
		"missing mail api key": {
			unsetEnv: EnvMailAPIKey,
			errMsg:   "mail.api_key is required",
		},
		"missing encryption key": {
			unsetEnv: EnvEncryptionKey,
			errMsg:   "encryption.key is required",
		},
		"missing scan key": {
			unsetEnv: EnvScanKey,
			errMsg:   "api.scan_key is required",
		},
		"missing control key": {
			unsetEnv: EnvControlKey,
			errMsg:   "api.control_key is required",
		},
		"bad log level": {
			yaml:   "log:\n  level: verbose\n",
			errMsg: "invalid log level",
		},
		"bad log format": {
			yaml:   "log:\n  format: xml\n",
			errMsg: "invalid log format",
		},
		"negative days threshold": {
			yaml:   "notify:\n  days_threshold: -1\n",
			errMsg: "days_threshold must be >= 0",
		},
		"negative send interval": {
			yaml:   "notify:\n  send_interval: -1s\n",
			errMsg: "send_interval must be >= 0",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			if test.unsetEnv != "" {
				t.Setenv(test.unsetEnv, "")
			}

			path := ""
			if test.yaml != "" {
				path = writeConfigFile(t, test.yaml)
			}

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errMsg)
		})
	}
}

func TestLoadConfig_MissingFileFails(t *testing.T) {
	setRequiredEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_MalformedYamlFails(t *testing.T) {
	setRequiredEnv(t)

	path := writeConfigFile(t, "server: [not a map")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}
