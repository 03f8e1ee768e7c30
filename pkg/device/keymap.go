package device

import "strings"

// keyMap translates terminal-style key names into Android keyevent names.
var keyMap = map[string]string{
	"Return":    "ENTER",
	"Enter":     "ENTER",
	"Tab":       "TAB",
	"Escape":    "ESCAPE",
	"Up":        "DPAD_UP",
	"Down":      "DPAD_DOWN",
	"Left":      "DPAD_LEFT",
	"Right":     "DPAD_RIGHT",
	"BackSpace": "DEL",
	"Delete":    "FORWARD_DEL",
}

// MapKey resolves a key name to the Android keyevent name. Unmapped names
// pass through uppercased, so "home" becomes HOME.
func MapKey(name string) string {
	if code, ok := keyMap[name]; ok {
		return code
	}
	return strings.ToUpper(name)
}

// KnownKey reports whether name has an explicit key table entry.
func KnownKey(name string) bool {
	_, ok := keyMap[name]
	return ok
}
