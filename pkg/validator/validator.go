// Package validator checks case files before execution. It parses all
// files upfront and reports every problem in one pass, so a broken case
// surfaces before a run instead of halfway through one.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/pixelrunner/pkg/device"
	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files is the list of case file paths in load order.
	Files []string
	// Cases holds the parsed test cases, parallel to Files.
	Cases []*scenario.TestCase
	// Errors contains all validation errors found.
	Errors []error
	// Warnings lists conditions a run tolerates: key names outside the
	// key table and reference images not on disk yet.
	Warnings []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validate validates a case file or a directory of case files.
func Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("cannot access: %v", err),
		})
		return result
	}

	var files []string
	if info.IsDir() {
		files, err = collectCaseFiles(path)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to scan directory: %v", err),
			})
			return result
		}
	} else {
		files = []string{path}
	}

	seen := make(map[string]string)
	for _, file := range files {
		validateFile(file, result, seen)
	}

	return result
}

// collectCaseFiles finds all .yaml/.yml files in a directory.
func collectCaseFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// validateFile parses and checks a single case file. seen maps case names
// to the file that first defined them.
func validateFile(path string, result *Result, seen map[string]string) {
	tc, err := scenario.ParseFile(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}
	if err := tc.Validate(); err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: err.Error(),
		})
		return
	}

	// Screenshots and diff images are written under the case name, so two
	// cases sharing a name would overwrite each other's artifacts.
	if prev, ok := seen[tc.Name]; ok {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("duplicate case name %q, already defined in %s", tc.Name, prev),
		})
		return
	}
	seen[tc.Name] = path

	checkKeys(tc, path, result)
	checkReference(tc, path, result)

	result.Files = append(result.Files, path)
	result.Cases = append(result.Cases, tc)
}

// checkKeys warns about key names without a key table entry. Unmapped
// names still run, sent uppercased as raw keyevent names.
func checkKeys(tc *scenario.TestCase, path string, result *Result) {
	for _, a := range tc.Actions {
		if a.Type != scenario.ActionKey || device.KnownKey(a.Value) {
			continue
		}
		result.Warnings = append(result.Warnings, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("key %q has no key table entry, will be sent as keycode %s", a.Value, device.MapKey(a.Value)),
		})
	}
}

// checkReference warns when a configured reference image is not on disk.
// The run still passes such a case, treating its capture as a new baseline.
func checkReference(tc *scenario.TestCase, path string, result *Result) {
	if tc.ReferenceImage == "" {
		return
	}
	if _, err := os.Stat(tc.ReferenceImage); err != nil {
		result.Warnings = append(result.Warnings, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("reference image not found: %s", tc.ReferenceImage),
		})
	}
}
