// Package device drives an Android device over ADB: app lifecycle, scripted
// input and screenshot capture.
package device

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Remote scratch path for screenshots before they are pulled locally.
const remoteScreenshotPath = "/sdcard/pixelrunner_screenshot.png"

// stopSettle is how long force-stop gets before the process check.
const stopSettle = 500 * time.Millisecond

// AppConfig identifies the app under test. Activity is relative to the
// package when it starts with a dot (".MainActivity").
type AppConfig struct {
	Package  string `yaml:"package"`
	Activity string `yaml:"activity"`
}

// Component returns the pkg/activity form used by am start -n.
func (a AppConfig) Component() string {
	return a.Package + "/" + a.Activity
}

// commandRunner abstracts subprocess execution so tests can replay canned
// transcripts instead of touching a live device.
type commandRunner interface {
	run(name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) run(name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Controller manages one Android device connection via ADB.
type Controller struct {
	serial  string
	adbPath string
	app     AppConfig
	runner  commandRunner
	log     logrus.FieldLogger
}

// New creates a Controller for the given serial. If serial is empty, it
// auto-detects the first connected device.
func New(serial string, app AppConfig, log logrus.FieldLogger) (*Controller, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	if serial == "" {
		serial, err = detectDeviceSerial(adbPath)
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
	}

	return &Controller{
		serial:  serial,
		adbPath: adbPath,
		app:     app,
		runner:  execRunner{},
		log:     log.WithField("component", "device"),
	}, nil
}

// detectDeviceSerial finds the first connected device serial.
func detectDeviceSerial(adbPath string) (string, error) {
	cmd := exec.Command(adbPath, "devices")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(out), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("no connected devices found")
}

// Serial returns the device serial number.
func (c *Controller) Serial() string {
	return c.serial
}

// App returns the configured app under test.
func (c *Controller) App() AppConfig {
	return c.app
}

// CheckConnection reports whether the device session is responsive.
func (c *Controller) CheckConnection() bool {
	out, err := c.adb("get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// Model returns the device model name, or "" when the query fails. Used
// for report metadata only, never for control flow.
func (c *Controller) Model() string {
	out, err := c.shell("getprop", "ro.product.model")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// AppPID returns the PID of the app under test, or false when not running.
func (c *Controller) AppPID() (int, bool) {
	out, err := c.shell("pidof", "-s", c.app.Package)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// IsAppRunning reports whether the app under test has a live process.
func (c *Controller) IsAppRunning() bool {
	_, ok := c.AppPID()
	return ok
}

// LaunchApp starts the app's launcher activity and waits settle for it to
// come up. It is a no-op when the app is already running.
func (c *Controller) LaunchApp(settle time.Duration) error {
	if c.IsAppRunning() {
		c.log.Debug("app already running, skipping launch")
		return nil
	}

	c.log.WithField("activity", c.app.Component()).Debug("launching app")
	_, err := c.shell("am", "start",
		"-n", c.app.Component(),
		"-a", "android.intent.action.MAIN",
		"-c", "android.intent.category.LAUNCHER")
	if err != nil {
		return err
	}

	time.Sleep(settle)
	if !c.IsAppRunning() {
		return fmt.Errorf("app %s is not running after launch", c.app.Package)
	}
	return nil
}

// StopApp force-stops the app under test. Stopping an app that is not
// running succeeds.
func (c *Controller) StopApp() error {
	if _, err := c.shell("am", "force-stop", c.app.Package); err != nil {
		return err
	}

	time.Sleep(stopSettle)
	if c.IsAppRunning() {
		return fmt.Errorf("app %s still running after force-stop", c.app.Package)
	}
	return nil
}

// ClearAppData wipes the app's data and cache.
func (c *Controller) ClearAppData() error {
	_, err := c.shell("pm", "clear", c.app.Package)
	return err
}

// CaptureScreenshot captures the device screen to localPath. The frame is
// written to a remote scratch file, pulled, then removed from the device.
func (c *Controller) CaptureScreenshot(localPath string) error {
	if _, err := c.shell("screencap", "-p", remoteScreenshotPath); err != nil {
		return err
	}

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if _, err := c.adb("pull", remoteScreenshotPath, localPath); err != nil {
		return err
	}

	if _, err := c.shell("rm", remoteScreenshotPath); err != nil {
		c.log.WithError(err).Warn("failed to remove remote screenshot")
	}

	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("screenshot not found after pull: %w", err)
	}
	return nil
}

// ClearLogs resets the device logcat buffer.
func (c *Controller) ClearLogs() error {
	_, err := c.adb("logcat", "-c")
	return err
}

// Logs dumps the logcat stream for the app's process. Returns an empty
// string when the app is not running.
func (c *Controller) Logs() (string, error) {
	pid, ok := c.AppPID()
	if !ok {
		return "", nil
	}
	return c.adb("logcat", "-d", "--pid", strconv.Itoa(pid))
}

// shell executes a shell command on the device.
func (c *Controller) shell(args ...string) (string, error) {
	return c.adb(append([]string{"shell"}, args...)...)
}

// adb executes an ADB command.
func (c *Controller) adb(args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if c.serial != "" {
		cmdArgs = append(cmdArgs, "-s", c.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	stdout, stderr, err := c.runner.run(c.adbPath, cmdArgs...)
	if err != nil {
		errMsg := stderr
		if errMsg == "" {
			errMsg = stdout
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, errMsg)
	}

	return stdout, nil
}

// findADB locates the ADB binary via PATH, then the SDK platform-tools.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}

	if home := androidHome(); home != "" {
		path := filepath.Join(home, "platform-tools", "adb")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}

func androidHome() string {
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		return home
	}
	if home := os.Getenv("ANDROID_SDK_ROOT"); home != "" {
		return home
	}
	return ""
}
