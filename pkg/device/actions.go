package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

// textEscaper rewrites text for `input text`: the shell on the device splits
// on spaces, so they travel as %s, and single quotes need a backslash.
var textEscaper = strings.NewReplacer(" ", "%s", "'", `\'`)

// ExecuteAction performs one scripted action on the device. Sleep actions
// run locally and always succeed.
func (c *Controller) ExecuteAction(a scenario.Action) error {
	switch a.Type {
	case scenario.ActionText:
		return c.sendText(a.Value)
	case scenario.ActionKey:
		return c.sendKey(a.Value)
	case scenario.ActionSleep:
		time.Sleep(a.Duration)
		return nil
	default:
		return fmt.Errorf("unknown action type: %s", a.Type)
	}
}

// sendText types literal text into the focused view.
func (c *Controller) sendText(text string) error {
	c.log.WithField("text", text).Debug("sending text")
	_, err := c.shell("input", "text", textEscaper.Replace(text))
	return err
}

// sendKey presses a single named key.
func (c *Controller) sendKey(name string) error {
	code := MapKey(name)
	c.log.WithFields(logrus.Fields{"key": name, "keycode": code}).Debug("sending key")
	_, err := c.shell("input", "keyevent", code)
	return err
}
