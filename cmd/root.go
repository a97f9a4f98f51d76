package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/AnyUserName/saveimg/internal/config"
	"github.com/AnyUserName/saveimg/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	verbose    bool
	configPath string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "saveimg",
	Short: "Save and copy web images as PNG or JPEG",
	Long: `saveimg — converts any image a browser can display into PNG or JPEG,
then saves it to disk or copies it to the clipboard of a page.

Conversion runs in an isolated offscreen document first and falls back
to the page itself when that context is missing, slow or failing.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (saveimg.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"saveimg %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setup loads the configuration and builds the logger for every command.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == validateCmd.Name() {
		cfg = config.DefaultConfig()
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log = logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: os.Stderr})
	return nil
}
