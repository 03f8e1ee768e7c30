package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

var screenshotCommand = &cli.Command{
	Name:  "screenshot",
	Usage: "Capture a screenshot from the connected device",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Where to save the PNG (default: screenshot_<timestamp>.png)",
		},
	},
	Action: runScreenshot,
}

func runScreenshot(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(c, "")
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl, err := connectDevice(cfg, log)
	if err != nil {
		return err
	}
	if !ctrl.CheckConnection() {
		return fmt.Errorf("device %s is not responding", ctrl.Serial())
	}

	out := c.String("output")
	if out == "" {
		out = fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	}
	if err := ctrl.CaptureScreenshot(out); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	fmt.Printf("Screenshot saved to %s\n", out)
	return nil
}

var logsCommand = &cli.Command{
	Name:  "logs",
	Usage: "Dump log output for the app under test",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "clear",
			Usage: "Clear the device log buffer instead of dumping it",
		},
	},
	Action: runLogs,
}

func runLogs(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(c, "")
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl, err := connectDevice(cfg, log)
	if err != nil {
		return err
	}

	if c.Bool("clear") {
		if err := ctrl.ClearLogs(); err != nil {
			return fmt.Errorf("failed to clear logs: %w", err)
		}
		fmt.Println("Device log buffer cleared")
		return nil
	}

	out, err := ctrl.Logs()
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}
	if out == "" {
		fmt.Printf("No log output, %s is not running\n", cfg.App.Package)
		return nil
	}
	fmt.Print(out)
	return nil
}
