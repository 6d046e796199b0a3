package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"igharvest/pkg/config"
	"igharvest/pkg/logger"
	"igharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	useTUI        bool
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igharvest",
	Short: "Download Instagram posts, stories, highlights and saved posts",
	Long: `igharvest downloads the content of an Instagram profile, a single post,
reel, story or highlight, or your own saved posts.

Features:
  - Posts filtered by date range or capped by count
  - Stories, highlights and the profile picture
  - Password login with two-factor authentication, or a saved session
  - Human-like pacing with long pauses and rate-limit backoff
  - Skips files that are already on disk, so interrupted runs can be repeated
  - Pause, resume and stop from the interactive terminal UI
  - A history of every download run`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(!noColor)
		if useTUI || quiet {
			return
		}
		switch cmd.Name() {
		case "download":
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use the interactive terminal UI")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every downloaded file and debug logs")

	rootCmd.SetVersionTemplate(`igharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig reads the configuration and sets up the global logger. extra
// carries command-specific flag overrides.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{}
	for k, v := range extra {
		flags[k] = v
	}
	level := logLevel
	switch {
	case level != "":
	case verbose:
		level = "debug"
	case quiet || useTUI:
		level = "error"
	}
	if level != "" {
		flags["log-level"] = strings.ToLower(level)
	}
	if notifications {
		flags["notifications"] = true
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Debug("igharvest starting")
	return cfg, nil
}

// credentialDir holds the encrypted credential file next to the config
func credentialDir() string {
	return filepath.Dir(config.DefaultPath())
}
