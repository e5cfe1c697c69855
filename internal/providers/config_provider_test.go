package providers

import (
	"aprsd/internal/structures"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYaml = `
webServer:
  host: 127.0.0.1
  port: 8081
persistence:
  filePath: /tmp/stations.dat
logger:
  level: info
  mode: 420
  dir: /tmp
stations:
  ownCall: la7eca
channels:
  - id: aprsis
    type: inet
    options:
      host: rotate.aprs2.net
      port: 14580
      maxRetry: 4
  - id: rf
    type: tnc2
    backup: true
    options:
      port: /dev/ttyUSB0
      baud: 1200
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aprsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigProvider_LoadsYaml(t *testing.T) {
	path := writeConfig(t, testConfigYaml)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)

	assert.Equal(t, AppName, conf.AppName)
	assert.True(t, conf.Debug)
	assert.Equal(t, 8081, conf.WebServer.Port)
	assert.Equal(t, "LA7ECA", conf.Stations.OwnCall)
	require.Len(t, conf.Channels, 2)
	assert.Equal(t, "aprsis", conf.Channels[0].Id)
	assert.Equal(t, "inet", conf.Channels[0].Type)
	assert.Equal(t, "rotate.aprs2.net", conf.Channels[0].Options["host"])
	assert.True(t, conf.Channels[1].Backup)
}

func TestNewConfigProvider_Defaults(t *testing.T) {
	path := writeConfig(t, testConfigYaml)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, time.Minute, conf.Persistence.CheckInterval)
	assert.Equal(t, 30*time.Minute, conf.Persistence.GcInterval)
	assert.Equal(t, time.Hour, conf.Stations.ExpireTime)
	assert.Equal(t, 24*time.Hour, conf.Stations.RouteRetention)
	assert.Equal(t, 30*time.Second, conf.DupCheck.Window)
}

func TestNewConfigProvider_EnvOverride(t *testing.T) {
	path := writeConfig(t, testConfigYaml)
	t.Setenv("APRSD_EXPIRE_TIME", "2h")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, conf.Stations.ExpireTime)
}

func TestNewConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestNewConfigProvider_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "webServer:\n  host: 127.0.0.1\n")

	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	assert.Error(t, err)
}
