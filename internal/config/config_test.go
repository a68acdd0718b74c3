package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[mainConfig]
port = 9100

[databaseConfig]
driver = "postgres"
sslMode = "disable"

[realtimeConfig]
brokerMode = "nats"
pingInterval = 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, conf.MainConfig.Port)
	assert.Equal(t, "postgres", conf.Driver)
	assert.Equal(t, "nats", conf.BrokerMode)
	assert.Equal(t, time.Duration(15), conf.PingInterval)
	// 未配置的字段使用默认值
	assert.Equal(t, "0.0.0.0", conf.MainConfig.Host)
	assert.Equal(t, "medichat.realtime", conf.NatsConfig.Subject)
	assert.Equal(t, int64(8<<20), conf.MaxFileSize)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	require.NotNil(t, conf)
	assert.Equal(t, "standalone", conf.BrokerMode)
	assert.Equal(t, "mysql", conf.Driver)
	assert.Equal(t, 8000, conf.MainConfig.Port)
	assert.Equal(t, 256, conf.SendBufferSize)
}
