/*
Copyright © 2025 Nathan Ollerenshaw <chrome@stupendous.net>
*/
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"
	"github.com/matjam/livepaper"
	"github.com/matjam/livepaper/internal/cli/cmd"
	"github.com/matjam/livepaper/internal/cli/cmd/utils"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "livepaper [image]",
	Short: "An animated wallpaper for X11 desktops",
	Long: `Livepaper plays an animated GIF, or shows any still image, as the
desktop background, behind your icons. Without an image argument a file
chooser is shown.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		if v, err := c.Flags().GetBool("show-config"); err == nil && v {
			log.Infof("Using config file: %v", viper.ConfigFileUsed())
			log.Infof("All settings:")
			utils.PrintJSONColored(viper.AllSettings())
			return
		}

		babyBlue := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
		yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		green := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
		if v, err := c.Flags().GetBool("version"); err == nil && v {
			log.Infof("%v version %v © 2025 %v",
				babyBlue.Render("livepaper "),
				green.Render(strings.Trim(livepaper.Version, "\n\r ")),
				yellow.Render("Nathan Ollerenshaw"))
			return
		}

		if v, err := c.Flags().GetBool("installconfig"); err == nil && v {
			utils.InstallDefaultConfig()
			return
		}

		var path string
		if len(args) > 0 {
			path = args[0]
		}

		if v, err := c.Flags().GetBool("background"); err == nil && v && !daemon.WasReborn() {
			dctx := &daemon.Context{
				WorkDir: "/",
				Umask:   027,
				Env:     append(os.Environ(), "BACKGROUND_PROCESS=1"),
			}
			child, err := dctx.Reborn()
			if err != nil {
				log.Fatalf("Failed to run in background: %v", err)
			}
			if child != nil {
				log.Infof("livepaper started in the background as PID %d", child.Pid)
				return
			}
			defer dctx.Release()
		}

		if code := cmd.StartWallpaper(path); code != 0 {
			os.Exit(code)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RegisterFlags(rootCmd)

	gg.SetLogger(slog.New(log.Default()))

	rootCmd.AddCommand(
		cmd.NewStatusCmd(),
		cmd.NewStopCmd(),
		cmd.NewRedrawCmd(),
		cmd.NewInfoCmd(),
		cmd.NewSnapshotCmd(),
		cmd.NewGenManCmd(rootCmd),
	)
}
