package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("livepaper")
		viper.SetConfigType("toml")
		viper.AddConfigPath("$HOME/.config/livepaper")
		viper.AddConfigPath("/etc/xdg/livepaper")
	}

	viper.SetDefault("interval", 100)
	viper.SetDefault("scale_mode", "stretched")
	viper.SetDefault("backend", "gl")
	viper.SetDefault("width", 1920)
	viper.SetDefault("height", 1080)
	viper.SetDefault("poll_interval", 16)
	viper.SetDefault("notify", true)
	viper.SetDefault("debug", false)

	viper.SetEnvPrefix("livepaper")
	viper.AutomaticEnv() // read environment variables that match

	// The config file is optional; everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatalf("Error reading config: %v", err)
		}
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
}
