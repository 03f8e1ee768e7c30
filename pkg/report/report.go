package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names written under the report directory.
const (
	RunFile  = "run.json"
	HTMLFile = "report.html"
)

// Write persists the run document and its HTML rendering under dir.
func Write(dir string, run *Run) error {
	if err := ensureDir(dir); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := atomicWriteJSON(filepath.Join(dir, RunFile), run); err != nil {
		return fmt.Errorf("write %s: %w", RunFile, err)
	}
	if err := GenerateHTML(dir, HTMLConfig{EmbedAssets: true}); err != nil {
		return fmt.Errorf("generate html: %w", err)
	}
	return nil
}

// Read loads a run document previously written by Write.
func Read(dir string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, RunFile)) //#nosec G304 -- dir comes from CLI flags
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", RunFile, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse %s: %w", RunFile, err)
	}
	return &run, nil
}

// atomicWriteJSON writes JSON through a temp file and rename so a reader
// never observes a partial document.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
