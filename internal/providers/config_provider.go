package providers

import (
	"aprsd/internal/structures"
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"strings"
	"time"
)

const (
	AppName    = "aprsd"
	AppVersion = "2.6.0"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("persistence.checkInterval", time.Minute)
	v.SetDefault("persistence.gcInterval", 30*time.Minute)
	v.SetDefault("stations.expireTime", 60*time.Minute)
	v.SetDefault("stations.routeRetention", 24*time.Hour)
	v.SetDefault("stations.trailLength", 24)
	v.SetDefault("stations.ownCall", "NOCALL")
	v.SetDefault("stations.heardLimit", 50000)
	v.SetDefault("dupCheck.window", 30*time.Second)
	v.SetDefault("dupCheck.sizeMB", 4)
	v.SetDefault("history.retention", 7*24*time.Hour)

	v.BindEnv("logger.level", "APRSD_LOG_LEVEL")
	v.BindEnv("persistence.filePath", "APRSD_STATIONS_FILE")
	v.BindEnv("stations.expireTime", "APRSD_EXPIRE_TIME")
	v.BindEnv("stations.ownCall", "APRSD_MYCALL")
	v.BindEnv("metrics.enabled", "APRSD_METRICS_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Version = AppVersion
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode
	conf.Stations.OwnCall = strings.ToUpper(strings.TrimSpace(conf.Stations.OwnCall))

	return &conf, nil
}
