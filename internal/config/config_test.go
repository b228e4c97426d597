package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "未设置的host取默认值")
	assert.Equal(t, "Recruitment Agent with Guardrails", cfg.Server.APITitle)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "qwen-plus", cfg.Aliyun.Model)
	assert.Equal(t, 5, cfg.Aliyun.MaxAttempts)
	assert.Equal(t, 7, cfg.Aliyun.BackoffBase)
	assert.Equal(t, []int{429, 500, 503, 504}, cfg.Aliyun.RetryableStatusList)
	assert.Equal(t, 5000, cfg.Guardrails.MaxInputLength)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9999")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("API_TITLE", "Custom Title")
	t.Setenv("DEBUG", "true")
	t.Setenv("ALIYUN_API_KEY", "env-key")
	t.Setenv("ALIYUN_MODEL", "qwen-max")

	path := writeTempConfig(t, `
server:
  host: "0.0.0.0"
  port: 8080
aliyun:
  api_key: "file-key"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "Custom Title", cfg.Server.APITitle)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "env-key", cfg.Aliyun.APIKey, "环境变量覆盖文件值")
	assert.Equal(t, "qwen-max", cfg.Aliyun.Model)
}

func TestLoadConfigInvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	path := writeTempConfig(t, `
server:
  port: 8081
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port, "非法PORT值应被忽略")
}

func TestLoadConfigMissingFileFallsBackInTests(t *testing.T) {
	// go test下允许无配置文件运行
	cfg, err := LoadConfig("definitely-missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Guardrails.Enabled)
}

func TestServerConfigAddress(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadConfigFromFileOnlyRejectsMissing(t *testing.T) {
	_, err := LoadConfigFromFileOnly("definitely-missing.yaml")
	assert.Error(t, err)
}
