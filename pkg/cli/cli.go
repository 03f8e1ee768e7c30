// Package cli provides the command-line interface for pixelrunner.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/config"
	"github.com/devicelab-dev/pixelrunner/pkg/device"
	"github.com/devicelab-dev/pixelrunner/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "Device serial to target (empty = first connected)",
		EnvVars: []string{"PIXELRUNNER_DEVICE"},
	},
	&cli.StringFlag{
		Name:  "config",
		Usage: "Path to config.yaml (default: config.yaml in the working directory)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"PIXELRUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pixelrunner",
		Usage:   "Pixel-exact visual regression testing over adb",
		Version: Version,
		Description: `Pixelrunner replays scripted input on an Android device, captures the
screen and compares it pixel by pixel against reference images.

Examples:
  pixelrunner test
  pixelrunner test vttest_launch wraptest --threshold 10
  pixelrunner compare actual.png expected.png
  pixelrunner review`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			testCommand,
			listCommand,
			compareCommand,
			screenshotCommand,
			logsCommand,
			reviewCommand,
			validateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then the global --device flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	if serial := c.String("device"); serial != "" {
		cfg.Device = serial
	}
	return cfg, nil
}

// newLogger builds the run logger. logFile may be empty for commands that
// produce no artifact directory.
func newLogger(c *cli.Context, logFile string) (*logrus.Logger, func(), error) {
	return logger.New(logger.Config{
		Verbose: c.Bool("verbose"),
		File:    logFile,
	})
}

// connectDevice creates the controller for the configured device.
func connectDevice(cfg *config.Config, log *logrus.Logger) (*device.Controller, error) {
	ctrl, err := device.New(cfg.Device, cfg.App, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	return ctrl, nil
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
