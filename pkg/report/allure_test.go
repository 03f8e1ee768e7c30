package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

// helper to write a run document to disk.
func writeTestRun(t *testing.T, tmpDir string, run *Run) {
	t.Helper()
	if err := atomicWriteJSON(filepath.Join(tmpDir, RunFile), run); err != nil {
		t.Fatalf("write run document: %v", err)
	}
}

func TestGenerateAllurePassedTest(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	run := &Run{
		Version:   Version,
		RunID:     "run01",
		Device:    Device{Serial: "emulator-5554", Model: "Pixel 6"},
		App:       App{Package: "com.example.app"},
		StartTime: now,
		Duration:  5000,
		Summary:   Summary{Total: 1, Passed: 1},
		Tests: []Test{
			{Name: "login", Status: runner.StatusPassed, StartTime: now, Duration: 2500},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	// Verify result file exists
	resultPath := filepath.Join(tmpDir, "allure-results", "run01-001-result.json")
	data, err := os.ReadFile(resultPath)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}

	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if result.UUID != "run01-001" {
		t.Errorf("UUID = %q, want run01-001", result.UUID)
	}
	if result.Name != "login" {
		t.Errorf("Name = %q, want login", result.Name)
	}
	if result.FullName != "com.example.app:login" {
		t.Errorf("FullName = %q, want com.example.app:login", result.FullName)
	}
	if result.Status != "passed" {
		t.Errorf("Status = %q, want passed", result.Status)
	}
	if result.Stage != "finished" {
		t.Errorf("Stage = %q, want finished", result.Stage)
	}
	if result.Start == 0 {
		t.Error("Start should not be 0")
	}
	if result.Stop != result.Start+2500 {
		t.Errorf("Stop = %d, want Start + 2500", result.Stop)
	}
	if len(result.HistoryID) != 8 {
		t.Errorf("HistoryID = %q, want 8-char hash", result.HistoryID)
	}
}

func TestGenerateAllureFailedTest(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	run := &Run{
		Version:   Version,
		RunID:     "run02",
		Device:    Device{Serial: "emulator-5554", Model: "Pixel 6"},
		App:       App{Package: "com.test"},
		StartTime: now,
		Duration:  3000,
		Summary:   Summary{Total: 1, Failed: 1},
		Tests: []Test{
			{
				Name:      "checkout",
				Status:    runner.StatusFailed,
				Message:   "42 pixels differ from reference",
				StartTime: now,
				Duration:  1500,
			},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "allure-results", "run02-001-result.json"))
	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if result.Status != "failed" {
		t.Errorf("Status = %q, want failed", result.Status)
	}
	if result.StatusDetails.Message != "42 pixels differ from reference" {
		t.Errorf("StatusDetails.Message = %q", result.StatusDetails.Message)
	}
}

func TestGenerateAllureBrokenTest(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	// Error results map to Allure's "broken"; with no device model the
	// host label falls back to the serial.
	run := &Run{
		Version:   Version,
		RunID:     "run03",
		Device:    Device{Serial: "emulator-5554"},
		App:       App{Package: "com.test"},
		StartTime: now,
		Duration:  3000,
		Summary:   Summary{Total: 1, Errors: 1},
		Tests: []Test{
			{
				Name:      "profile",
				Status:    runner.StatusError,
				ErrorKind: "app",
				Error:     "failed to launch app: activity not found",
				StartTime: now,
				Duration:  900,
			},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "allure-results", "run03-001-result.json"))
	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if result.Status != "broken" {
		t.Errorf("Status = %q, want broken", result.Status)
	}
	if result.StatusDetails.Message != "failed to launch app: activity not found" {
		t.Errorf("StatusDetails.Message = %q", result.StatusDetails.Message)
	}

	labelMap := map[string]string{}
	for _, l := range result.Labels {
		labelMap[l.Name] = l.Value
	}
	if labelMap["host"] != "emulator-5554" {
		t.Errorf("host = %q, want serial fallback", labelMap["host"])
	}
}

func TestAllureAttachments(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	// Actual and diff live inside the report dir, the reference outside it
	if err := os.MkdirAll(filepath.Join(tmpDir, "screenshots"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "diffs"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	refDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "screenshots", "login.actual.png"), []byte("actual-data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "diffs", "login.diff.png"), []byte("diff-data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	refPath := filepath.Join(refDir, "login.png")
	if err := os.WriteFile(refPath, []byte("reference-data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	run := &Run{
		Version:   Version,
		RunID:     "run04",
		App:       App{Package: "com.test"},
		StartTime: now,
		Summary:   Summary{Total: 1, Failed: 1},
		Tests: []Test{
			{
				Name:       "login",
				Status:     runner.StatusFailed,
				Screenshot: "screenshots/login.actual.png",
				Reference:  refPath,
				DiffImage:  "diffs/login.diff.png",
				StartTime:  now,
				Duration:   1000,
			},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "allure-results", "run04-001-result.json"))
	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if len(result.Attachments) != 3 {
		t.Fatalf("expected 3 attachments, got %d", len(result.Attachments))
	}
	wantSources := map[string]string{
		"Actual":    "run04-001-actual-attachment.png",
		"Reference": "run04-001-reference-attachment.png",
		"Diff":      "run04-001-diff-attachment.png",
	}
	for _, att := range result.Attachments {
		if att.Type != "image/png" {
			t.Errorf("attachment %s type = %q", att.Name, att.Type)
		}
		if want := wantSources[att.Name]; att.Source != want {
			t.Errorf("attachment %s source = %q, want %q", att.Name, att.Source, want)
		}
	}

	// Files are copied flat under their attachment names
	allureDir := filepath.Join(tmpDir, "allure-results")
	for name, content := range map[string]string{
		"run04-001-actual-attachment.png":    "actual-data",
		"run04-001-reference-attachment.png": "reference-data",
		"run04-001-diff-attachment.png":      "diff-data",
	} {
		copied, err := os.ReadFile(filepath.Join(allureDir, name))
		if err != nil {
			t.Errorf("copied file %s not found: %v", name, err)
			continue
		}
		if string(copied) != content {
			t.Errorf("copied %s content = %q, want %q", name, copied, content)
		}
	}
}

func TestGenerateAllureMixedResults(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	run := &Run{
		Version:   Version,
		RunID:     "run05",
		Device:    Device{Serial: "emu-5554", Model: "Pixel 6"},
		App:       App{Package: "com.test"},
		StartTime: now,
		Duration:  10000,
		Summary:   Summary{Total: 3, Passed: 1, Failed: 1, Errors: 1},
		Tests: []Test{
			{Name: "login", Status: runner.StatusPassed, StartTime: now, Duration: 2500},
			{Name: "checkout", Status: runner.StatusFailed, Message: "9 pixels differ from reference", StartTime: now, Duration: 2500},
			{Name: "settings", Status: runner.StatusError, Error: "failed to capture screenshot: device offline", StartTime: now, Duration: 2500},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	allureDir := filepath.Join(tmpDir, "allure-results")

	for _, tc := range []struct {
		file   string
		status string
	}{
		{"run05-001-result.json", "passed"},
		{"run05-002-result.json", "failed"},
		{"run05-003-result.json", "broken"},
	} {
		data, err := os.ReadFile(filepath.Join(allureDir, tc.file))
		if err != nil {
			t.Errorf("missing result file %s", tc.file)
			continue
		}
		var result AllureResult
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("json.Unmarshal: %v", err)
		}
		if result.Status != tc.status {
			t.Errorf("%s status = %q, want %q", tc.file, result.Status, tc.status)
		}
	}
}

func TestAllureCategoriesJSON(t *testing.T) {
	tmpDir := t.TempDir()

	run := &Run{
		Version:   Version,
		RunID:     "run06",
		App:       App{Package: "com.test"},
		StartTime: time.Now(),
		Summary:   Summary{},
		Tests:     []Test{},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "allure-results", "categories.json"))
	if err != nil {
		t.Fatalf("read categories.json: %v", err)
	}

	var categories []AllureCategory
	if err := json.Unmarshal(data, &categories); err != nil {
		t.Fatalf("unmarshal categories: %v", err)
	}

	if len(categories) != 6 {
		t.Errorf("expected 6 categories, got %d", len(categories))
	}

	found := map[string][]string{}
	for _, c := range categories {
		found[c.Name] = c.MatchedStatuses
	}
	if statuses, ok := found["Pixel Mismatch"]; !ok || len(statuses) != 1 || statuses[0] != "failed" {
		t.Errorf("Pixel Mismatch category = %v", statuses)
	}
	for _, name := range []string{"Device Unreachable", "App Launch Failed", "Capture Failed", "Comparison Error"} {
		statuses, ok := found[name]
		if !ok {
			t.Errorf("missing category %q", name)
			continue
		}
		if len(statuses) != 1 || statuses[0] != "broken" {
			t.Errorf("category %q should match only 'broken', got %v", name, statuses)
		}
	}
}

func TestAllureEnvironmentProperties(t *testing.T) {
	tmpDir := t.TempDir()

	run := &Run{
		Version:   Version,
		RunID:     "run07",
		Device:    Device{Serial: "emu-5554", Model: "Pixel 6"},
		App:       App{Package: "com.example.app"},
		Threshold: 25,
		Backend:   "magick",
		StartTime: time.Now(),
		Summary:   Summary{},
		Tests:     []Test{},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "allure-results", "environment.properties"))
	if err != nil {
		t.Fatalf("read environment.properties: %v", err)
	}
	content := string(data)

	checks := []string{
		"framework=pixelrunner",
		"runner.version=" + Version,
		"device.serial=emu-5554",
		"device.model=Pixel 6",
		"app.package=com.example.app",
		"comparison.backend=magick",
		"comparison.threshold=25",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("environment.properties missing: %s\nGot:\n%s", check, content)
		}
	}
}

func TestAllureEnvironmentMinimalFields(t *testing.T) {
	// Empty device and app fields are skipped entirely.
	tmpDir := t.TempDir()

	run := &Run{}
	if err := writeAllureEnvironment(tmpDir, run); err != nil {
		t.Fatalf("writeAllureEnvironment: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "environment.properties"))
	content := string(data)

	want := "framework=pixelrunner\nrunner.version=" + Version + "\ncomparison.threshold=0\n"
	if content != want {
		t.Errorf("expected minimal properties, got:\n%s", content)
	}
}

func TestAllureExecutorJSON(t *testing.T) {
	tmpDir := t.TempDir()

	run := &Run{
		Version:   Version,
		RunID:     "run08",
		App:       App{Package: "com.test"},
		StartTime: time.Now(),
		Summary:   Summary{},
		Tests:     []Test{},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "allure-results", "executor.json"))
	if err != nil {
		t.Fatalf("read executor.json: %v", err)
	}

	var exec AllureExecutor
	if err := json.Unmarshal(data, &exec); err != nil {
		t.Fatalf("unmarshal executor: %v", err)
	}

	if exec.Name != "DeviceLab" {
		t.Errorf("executor name = %q, want DeviceLab", exec.Name)
	}
	if exec.Type != "devicelab" {
		t.Errorf("executor type = %q, want devicelab", exec.Type)
	}
	if exec.ReportURL != "https://devicelab.dev" {
		t.Errorf("executor reportUrl = %q", exec.ReportURL)
	}
	if exec.ReportName != "Powered by DeviceLab" {
		t.Errorf("executor reportName = %q", exec.ReportName)
	}
}

func TestAllureLabels(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()

	run := &Run{
		Version:   Version,
		RunID:     "run09",
		Device:    Device{Serial: "emulator-5554", Model: "Pixel 6"},
		App:       App{Package: "com.example.app"},
		StartTime: now,
		Summary:   Summary{Total: 1, Passed: 1},
		Tests: []Test{
			{Name: "login", Status: runner.StatusPassed, StartTime: now, Duration: 1000},
		},
	}
	writeTestRun(t, tmpDir, run)

	if err := GenerateAllure(tmpDir); err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "allure-results", "run09-001-result.json"))
	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	labelMap := map[string]string{}
	for _, l := range result.Labels {
		labelMap[l.Name] = l.Value
	}

	if labelMap["suite"] != "com.example.app" {
		t.Errorf("suite label = %q", labelMap["suite"])
	}
	if labelMap["framework"] != "pixelrunner" {
		t.Errorf("framework label = %q", labelMap["framework"])
	}
	if labelMap["severity"] != "normal" {
		t.Errorf("severity label = %q", labelMap["severity"])
	}
	if labelMap["host"] != "Pixel 6" {
		t.Errorf("host label = %q", labelMap["host"])
	}
	if labelMap["thread"] != "emulator-5554" {
		t.Errorf("thread label = %q", labelMap["thread"])
	}
}

func TestAllureHistoryIdDeterministic(t *testing.T) {
	// Same input should produce same hash
	h1 := fnv32aHash("com.example.app:login")
	h2 := fnv32aHash("com.example.app:login")
	if h1 != h2 {
		t.Errorf("historyId not deterministic: %s != %s", h1, h2)
	}

	// Different input should produce different hash
	h3 := fnv32aHash("com.example.app:checkout")
	if h1 == h3 {
		t.Errorf("different inputs produced same hash: %s", h1)
	}

	// Should be 8-char hex
	if len(h1) != 8 {
		t.Errorf("hash length = %d, want 8", len(h1))
	}
}

func TestAllureStatusMapping(t *testing.T) {
	tests := []struct {
		input    runner.Status
		expected string
	}{
		{runner.StatusPassed, "passed"},
		{runner.StatusFailed, "failed"},
		{runner.StatusError, "broken"},
		{runner.Status("bogus"), "unknown"},
	}
	for _, tt := range tests {
		got := mapAllureStatus(tt.input)
		if got != tt.expected {
			t.Errorf("mapAllureStatus(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGenerateAllureReportMissing(t *testing.T) {
	tmpDir := t.TempDir()
	if err := GenerateAllure(tmpDir); err == nil {
		t.Error("expected error when run.json missing")
	}
}

func TestGenerateAllureBlockedDir(t *testing.T) {
	tmpDir := t.TempDir()

	run := &Run{
		Version:   Version,
		RunID:     "run10",
		App:       App{Package: "com.test"},
		StartTime: time.Now(),
		Summary:   Summary{},
		Tests:     []Test{},
	}
	writeTestRun(t, tmpDir, run)

	// A file where the directory should be makes MkdirAll fail
	if err := os.WriteFile(filepath.Join(tmpDir, "allure-results"), []byte("block"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := GenerateAllure(tmpDir); err == nil {
		t.Error("expected error when allure-results dir cannot be created")
	}
}

func TestCopyFileSourceMissing(t *testing.T) {
	tmpDir := t.TempDir()
	dst := filepath.Join(tmpDir, "out.png")

	// copyFile silently ignores missing source
	copyFile("/nonexistent/path/file.png", dst)

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("dst should not exist when source is missing")
	}
}

func TestCopyFileDestUnwritable(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.png")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Point dst to a path inside a non-existent directory
	dst := filepath.Join(tmpDir, "nodir", "subdir", "out.png")

	// copyFile silently ignores create errors
	copyFile(src, dst)

	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("dst should not exist when directory doesn't exist")
	}
}

func TestAllureStopFromDuration(t *testing.T) {
	now := time.Now()
	run := &Run{App: App{Package: "com.test"}}
	test := &Test{Name: "timing", Status: runner.StatusPassed, StartTime: now, Duration: 3000}

	result := buildAllureResult(run, test, "u-001", nil)

	expectedStop := now.UnixMilli() + 3000
	if result.Stop != expectedStop {
		t.Errorf("Stop = %d, want %d (StartTime + Duration)", result.Stop, expectedStop)
	}
}

func TestAllureZeroStartTime(t *testing.T) {
	// A test that never started keeps zero timestamps instead of a
	// nonsense epoch-relative stop.
	run := &Run{App: App{Package: "com.test"}}
	test := &Test{Name: "never-ran", Status: runner.StatusError}

	result := buildAllureResult(run, test, "u-001", nil)

	if result.Start != 0 || result.Stop != 0 {
		t.Errorf("Start/Stop = %d/%d, want 0/0", result.Start, result.Stop)
	}
}
