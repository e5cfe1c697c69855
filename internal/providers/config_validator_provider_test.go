package providers

import (
	"aprsd/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Persistence: structures.Persistence{
			FilePath:      "/tmp/stations.dat",
			CheckInterval: time.Minute,
			GcInterval:    30 * time.Minute,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Stations: structures.StationsConfig{
			ExpireTime: time.Hour,
		},
		Channels: []structures.ChannelConfig{
			{Id: "aprsis", Type: "inet"},
			{Id: "rf", Type: "tnc2"},
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	assert.NoError(t, NewCnfValidator(validConfig()).Validate())

	c := validConfig()
	c.Channels = nil
	c.History = structures.HistoryConfig{Enabled: true, Path: "/tmp/history.db"}
	assert.NoError(t, NewCnfValidator(c).Validate(), "no channels and history on")
}

func TestConfigValidator_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *structures.Config)
		message string
	}{
		{"empty host", func(c *structures.Config) { c.WebServer.Host = "" }, ""},
		{"zero port", func(c *structures.Config) { c.WebServer.Port = 0 }, ""},
		{"empty log level", func(c *structures.Config) { c.Logger.Level = "" }, ""},
		{"unknown log level", func(c *structures.Config) { c.Logger.Level = "verbose" }, ""},
		{"no expire time", func(c *structures.Config) { c.Stations.ExpireTime = 0 }, ""},
		{"no stations file", func(c *structures.Config) { c.Persistence.FilePath = "" }, ""},
		{"channel without id", func(c *structures.Config) {
			c.Channels = append(c.Channels, structures.ChannelConfig{Type: "inet"})
		}, "channels[2]: missing id"},
		{"duplicate channel id", func(c *structures.Config) {
			c.Channels = append(c.Channels, structures.ChannelConfig{Id: "rf", Type: "inet"})
		}, `duplicate id "rf"`},
		{"negative dup window", func(c *structures.Config) { c.DupCheck.Window = -time.Second }, "dupCheck.window"},
		{"history without path", func(c *structures.Config) { c.History.Enabled = true }, "history.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := NewCnfValidator(c).Validate()
			if tt.message == "" {
				assert.Error(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.message)
		})
	}
}
