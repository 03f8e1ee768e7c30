package scenario

import (
	"fmt"
	"time"
)

// DefaultTimeout bounds a single test case when no explicit timeout is set.
const DefaultTimeout = 10 * time.Second

// TestCase is a named sequence of actions with an optional reference image.
// An empty ReferenceImage means capture-only: the run records a screenshot
// but performs no comparison.
type TestCase struct {
	Name           string
	Description    string
	Actions        []Action
	ReferenceImage string
	Timeout        time.Duration
}

// New creates an empty test case with the default timeout. Actions are
// appended with the chainable Type/Key/Sleep builders.
func New(name, description string) *TestCase {
	return &TestCase{
		Name:        name,
		Description: description,
		Timeout:     DefaultTimeout,
	}
}

// Type appends a text-typing action.
func (tc *TestCase) Type(text string) *TestCase {
	tc.Actions = append(tc.Actions, Action{Type: ActionText, Value: text})
	return tc
}

// Key appends a key-press action. Names follow the device key table;
// unmapped names are sent uppercased as raw keycode names.
func (tc *TestCase) Key(name string) *TestCase {
	tc.Actions = append(tc.Actions, Action{Type: ActionKey, Value: name})
	return tc
}

// Sleep appends a pause action.
func (tc *TestCase) Sleep(d time.Duration) *TestCase {
	tc.Actions = append(tc.Actions, Action{Type: ActionSleep, Duration: d})
	return tc
}

// WithReference sets the reference image path used for comparison.
func (tc *TestCase) WithReference(path string) *TestCase {
	tc.ReferenceImage = path
	return tc
}

// WithTimeout overrides the default case timeout.
func (tc *TestCase) WithTimeout(d time.Duration) *TestCase {
	tc.Timeout = d
	return tc
}

// Validate checks that the case is runnable. An empty action list is valid:
// the case then captures the app's idle screen.
func (tc *TestCase) Validate() error {
	if tc.Name == "" {
		return fmt.Errorf("test case has no name")
	}
	for _, a := range tc.Actions {
		switch a.Type {
		case ActionText, ActionKey, ActionSleep:
		default:
			return fmt.Errorf("test case %s: unknown action type %q", tc.Name, a.Type)
		}
	}
	return nil
}
