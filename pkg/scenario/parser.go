package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseError represents a case file error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single YAML case file. A relative reference path is
// resolved against the file's directory.
func ParseFile(path string) (*TestCase, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided case file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML case content.
func Parse(data []byte, sourcePath string) (*TestCase, error) {
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Timeout     float64     `yaml:"timeout"` // seconds
		Reference   string      `yaml:"reference"`
		Actions     []yaml.Node `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("invalid case file: %v", err),
		}
	}
	if raw.Name == "" {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "case has no name",
		}
	}

	tc := New(raw.Name, raw.Description)
	if raw.Timeout > 0 {
		tc.Timeout = time.Duration(raw.Timeout * float64(time.Second))
	}
	if raw.Reference != "" {
		ref := raw.Reference
		if !filepath.IsAbs(ref) && sourcePath != "" {
			ref = filepath.Join(filepath.Dir(sourcePath), ref)
		}
		tc.ReferenceImage = ref
	}

	for i := range raw.Actions {
		action, err := parseAction(&raw.Actions[i], sourcePath)
		if err != nil {
			return nil, err
		}
		tc.Actions = append(tc.Actions, action)
	}

	return tc, nil
}

// parseAction decodes one actions entry. Each entry must be a mapping with
// exactly one known key: {type: text}, {key: name} or {sleep: seconds}.
func parseAction(node *yaml.Node, sourcePath string) (Action, error) {
	if node.Kind != yaml.MappingNode {
		return Action{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "action must be a mapping: {type: ...}, {key: ...} or {sleep: ...}",
		}
	}

	var typ ActionType
	var valueNode *yaml.Node
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := node.Content[i].Value
		if !isActionType(key) {
			return Action{}, &ParseError{
				Path:    sourcePath,
				Line:    node.Content[i].Line,
				Message: fmt.Sprintf("unknown action type: %s", key),
			}
		}
		if typ != "" {
			return Action{}, &ParseError{
				Path:    sourcePath,
				Line:    node.Content[i].Line,
				Message: "action must have exactly one type",
			}
		}
		typ = ActionType(key)
		valueNode = node.Content[i+1]
	}
	if typ == "" {
		return Action{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "empty action",
		}
	}

	if typ == ActionSleep {
		var secs float64
		if err := valueNode.Decode(&secs); err != nil {
			return Action{}, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if secs < 0 {
			return Action{}, &ParseError{
				Path:    sourcePath,
				Line:    valueNode.Line,
				Message: "sleep must not be negative",
			}
		}
		return Action{Type: ActionSleep, Duration: time.Duration(secs * float64(time.Second))}, nil
	}

	var value string
	if err := valueNode.Decode(&value); err != nil {
		return Action{}, wrapParseError(sourcePath, valueNode.Line, err)
	}
	return Action{Type: typ, Value: value}, nil
}

func isActionType(key string) bool {
	switch ActionType(key) {
	case ActionText, ActionKey, ActionSleep:
		return true
	}
	return false
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
	}
}

// LoadDir parses all YAML case files under dir, in lexical path order.
// Any parse error fails the whole load so a broken case cannot silently
// drop out of a run.
func LoadDir(dir string) ([]*TestCase, error) {
	var cases []*TestCase

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		tc, parseErr := ParseFile(path)
		if parseErr != nil {
			return parseErr
		}
		cases = append(cases, tc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cases, nil
}
