package main

import (
	"aprsd/internal/di"
	"aprsd/internal/providers"
	"aprsd/internal/structures"
	"fmt"
	"github.com/spf13/pflag"
	"os"
)

func main() {
	configPath := pflag.StringP("config", "c", "config/aprsd.yaml", "Path to the configuration file")
	debug := pflag.BoolP("debug", "d", false, "Enable debug mode")
	version := pflag.BoolP("version", "v", false, "Print version and exit")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", providers.AppName)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *version {
		fmt.Printf("%s %s\n", providers.AppName, providers.AppVersion)
		return
	}

	_, err := di.InitApp(&structures.CliFlags{
		ConfigPath: *configPath,
		DebugMode:  *debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", providers.AppName, err)
		os.Exit(1)
	}
}
