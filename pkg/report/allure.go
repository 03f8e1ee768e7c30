package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// AllureExecutor holds executor branding info.
type AllureExecutor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ReportURL  string `json:"reportUrl"`
	ReportName string `json:"reportName"`
}

// GenerateAllure generates Allure-compatible report files in
// <reportDir>/allure-results/. Screenshot, reference and diff images are
// copied in flat under per-attachment names so the directory can be fed
// to allure-commandline as is.
func GenerateAllure(reportDir string) error {
	run, err := Read(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	allureDir := filepath.Join(reportDir, "allure-results")
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	// Write one result file per test
	for i := range run.Tests {
		test := &run.Tests[i]
		uuid := fmt.Sprintf("%s-%03d", run.RunID, i+1)
		atts := testAttachments(uuid, test)

		result := buildAllureResult(run, test, uuid, atts)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %s: %w", test.Name, err)
		}

		resultPath := filepath.Join(allureDir, uuid+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %s: %w", test.Name, err)
		}

		for _, a := range atts {
			copyFile(resolveArtifact(reportDir, a.src), filepath.Join(allureDir, a.att.Source))
		}
	}

	// Write categories.json
	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}

	// Write environment.properties
	if err := writeAllureEnvironment(allureDir, run); err != nil {
		return err
	}

	// Write executor.json
	return writeAllureExecutor(allureDir)
}

// allureAttachment pairs the schema entry with the on-disk path it is
// copied from. Source names carry the result UUID so actual and reference
// images with the same base name cannot collide in the flat directory.
type allureAttachment struct {
	att AllureAttachment
	src string
}

func testAttachments(uuid string, test *Test) []allureAttachment {
	var out []allureAttachment
	add := func(name, role, path string) {
		if path == "" {
			return
		}
		out = append(out, allureAttachment{
			att: AllureAttachment{
				Name:   name,
				Source: fmt.Sprintf("%s-%s-attachment.png", uuid, role),
				Type:   "image/png",
			},
			src: path,
		})
	}
	add("Actual", "actual", test.Screenshot)
	add("Reference", "reference", test.Reference)
	add("Diff", "diff", test.DiffImage)
	return out
}

// buildAllureResult builds an AllureResult from a test entry in the run document.
func buildAllureResult(run *Run, test *Test, uuid string, atts []allureAttachment) AllureResult {
	var startMs, stopMs int64
	if !test.StartTime.IsZero() {
		startMs = test.StartTime.UnixMilli()
		stopMs = startMs + test.Duration
	}

	labels := []AllureLabel{
		{Name: "suite", Value: run.App.Package},
		{Name: "framework", Value: "pixelrunner"},
		{Name: "severity", Value: "normal"},
	}
	if run.Device.Model != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: run.Device.Model})
	} else if run.Device.Serial != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: run.Device.Serial})
	}
	if run.Device.Serial != "" {
		labels = append(labels, AllureLabel{Name: "thread", Value: run.Device.Serial})
	}

	var statusDetails AllureStatusDetails
	if test.Error != "" {
		statusDetails.Message = test.Error
	} else if test.Message != "" {
		statusDetails.Message = test.Message
	}

	attachments := make([]AllureAttachment, 0, len(atts))
	for _, a := range atts {
		attachments = append(attachments, a.att)
	}

	return AllureResult{
		UUID:          uuid,
		HistoryID:     fnv32aHash(run.App.Package + ":" + test.Name),
		FullName:      run.App.Package + ":" + test.Name,
		Name:          test.Name,
		Status:        mapAllureStatus(test.Status),
		Stage:         "finished",
		Start:         startMs,
		Stop:          stopMs,
		Labels:        labels,
		StatusDetails: statusDetails,
		Attachments:   attachments,
	}
}

// copyFile copies a single file from src to dst, ignoring errors silently
// (artifacts may be absent for tests that never reached a capture).
func copyFile(src, dst string) {
	in, err := os.Open(src) //#nosec G304 -- paths come from the run document
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst) //#nosec G304 -- dst is inside the allure-results dir
	if err != nil {
		return
	}
	defer out.Close()

	_, _ = io.Copy(out, in)
}

// mapAllureStatus maps a runner status to the Allure status string. Allure
// calls a test that never reached a verdict "broken".
func mapAllureStatus(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return "passed"
	case runner.StatusFailed:
		return "failed"
	case runner.StatusError:
		return "broken"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// writeAllureCategories writes categories.json for failure categorization.
// Order matters: Allure assigns the first matching category, and several
// of the broken messages mention screenshots.
func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Pixel Mismatch", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*pixels differ.*"},
		{Name: "Device Unreachable", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*device.*|.*adb.*"},
		{Name: "App Launch Failed", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*launch.*|.*app.*crash.*"},
		{Name: "Input Action Failed", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*action.*|.*input.*|.*keyboard.*"},
		{Name: "Comparison Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*compar.*|.*dimensions.*"},
		{Name: "Capture Failed", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*capture.*|.*screenshot.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	path := filepath.Join(allureDir, "categories.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}

	return nil
}

// writeAllureEnvironment writes environment.properties with device and
// comparison metadata.
func writeAllureEnvironment(allureDir string, run *Run) error {
	var b strings.Builder
	b.WriteString("framework=pixelrunner\n")
	b.WriteString(fmt.Sprintf("runner.version=%s\n", Version))

	if run.Device.Serial != "" {
		b.WriteString(fmt.Sprintf("device.serial=%s\n", run.Device.Serial))
	}
	if run.Device.Model != "" {
		b.WriteString(fmt.Sprintf("device.model=%s\n", run.Device.Model))
	}
	if run.App.Package != "" {
		b.WriteString(fmt.Sprintf("app.package=%s\n", run.App.Package))
	}
	if run.Backend != "" {
		b.WriteString(fmt.Sprintf("comparison.backend=%s\n", run.Backend))
	}
	b.WriteString(fmt.Sprintf("comparison.threshold=%d\n", run.Threshold))

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}

	return nil
}

// writeAllureExecutor writes executor.json with DeviceLab branding.
func writeAllureExecutor(allureDir string) error {
	executor := AllureExecutor{
		Name:       "DeviceLab",
		Type:       "devicelab",
		ReportURL:  "https://devicelab.dev",
		ReportName: "Powered by DeviceLab",
	}

	data, err := json.MarshalIndent(executor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal executor: %w", err)
	}

	path := filepath.Join(allureDir, "executor.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write executor.json: %w", err)
	}

	return nil
}
