package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath      string        `yaml:"filePath" validate:"required|unixPath"`
	CheckInterval time.Duration `yaml:"checkInterval" validate:"required|min:1"`
	GcInterval    time.Duration `yaml:"gcInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode       uint32 `yaml:"mode" validate:"required|uint"`
	Dir        string `yaml:"dir" validate:"required|unixPath"`
	LogPackets bool   `yaml:"logPackets"`
	PacketFile string `yaml:"packetFile"`
}

type StationsConfig struct {
	ExpireTime     time.Duration `yaml:"expireTime" validate:"required|min:1"`
	RouteRetention time.Duration `yaml:"routeRetention"`
	TrailLength    int           `yaml:"trailLength"`
	OwnCall        string        `yaml:"ownCall"`
	HeardLimit     int           `yaml:"heardLimit"`
}

type DupCheckConfig struct {
	Window time.Duration `yaml:"window"`
	SizeMB int           `yaml:"sizeMB"`
}

type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ChannelConfig describes one channel instance. Transport settings live in
// Options and are read by the channel constructor.
type ChannelConfig struct {
	Id      string         `yaml:"id"`
	Type    string         `yaml:"type"`
	Backup  bool           `yaml:"backup"`
	Filter  string         `yaml:"filter"`
	Options map[string]any `yaml:"options"`
}

type Config struct {
	AppName     string
	Version     string
	Debug       bool
	Path        string
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Stations    StationsConfig  `yaml:"stations"`
	DupCheck    DupCheckConfig  `yaml:"dupCheck"`
	History     HistoryConfig   `yaml:"history"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Channels    []ChannelConfig `yaml:"channels"`
}
