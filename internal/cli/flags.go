package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func RegisterFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/livepaper/livepaper.toml)")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().BoolP("installconfig", "i", false, "Install a default config file")
	rootCmd.PersistentFlags().Bool("show-config", false, "Dump resolved config")
	rootCmd.PersistentFlags().BoolP("background", "b", false, "Run as a daemon")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Print version")
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Print usage")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.Flags().String("scale-mode", "", "How the image is fitted: stretched, center, horizontal, vertical or cover")
	viper.BindPFlag("scale_mode", rootCmd.Flags().Lookup("scale-mode"))
	rootCmd.Flags().Int("interval", 0, "Milliseconds between frames")
	viper.BindPFlag("interval", rootCmd.Flags().Lookup("interval"))
	rootCmd.Flags().String("backend", "", "Rendering backend: gl or software")
	viper.BindPFlag("backend", rootCmd.Flags().Lookup("backend"))
}
