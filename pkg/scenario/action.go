// Package scenario defines scripted input sequences and their YAML case files.
package scenario

import (
	"fmt"
	"time"
)

// ActionType identifies the kind of scripted action.
type ActionType string

// Action type constants.
const (
	ActionText  ActionType = "type"  // type literal text
	ActionKey   ActionType = "key"   // press a named key
	ActionSleep ActionType = "sleep" // pause between inputs
)

// Action is one scripted input: typed text, a key press, or a pause.
// Value carries the text or key name; Duration carries the pause length.
type Action struct {
	Type     ActionType
	Value    string
	Duration time.Duration
}

// Describe returns a short human-readable form for logs and error messages.
func (a Action) Describe() string {
	switch a.Type {
	case ActionText:
		return fmt.Sprintf("type(%q)", a.Value)
	case ActionKey:
		return fmt.Sprintf("key(%s)", a.Value)
	case ActionSleep:
		return fmt.Sprintf("sleep(%s)", a.Duration)
	}
	return string(a.Type)
}
