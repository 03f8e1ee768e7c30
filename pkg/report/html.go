package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath  string // Path to write the HTML file
	EmbedAssets bool   // Embed images as base64 (larger file but fully portable)
	Title       string // Report title (default: "Visual Test Report")
	ReportDir   string // Directory containing run.json (needed for asset paths)
}

// GenerateHTML renders the run document from reportDir into a single HTML file.
func GenerateHTML(reportDir string, cfg HTMLConfig) error {
	run, err := Read(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = "Visual Test Report"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = reportDir
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, HTMLFile)
	}

	data := buildHTMLData(run, cfg)

	html, err := renderHTML(data)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	return nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title       string
	GeneratedAt string
	Run         *Run
	Tests       []TestHTMLData
	Duration    string

	// Cumulative conic-gradient stops for the pie chart, 0-100. The
	// remainder past ErrEnd covers tests the run never attempted.
	PassPct     float64
	FailEnd     float64
	ErrEnd      float64
	Unattempted int
}

// TestHTMLData contains test data formatted for HTML.
type TestHTMLData struct {
	Test
	StatusClass string
	StatusLabel string
	DurationStr string
	Reference   string // path or data URI
	Actual      string
	Diff        string
	HasImages   bool
}

func buildHTMLData(run *Run, cfg HTMLConfig) HTMLData {
	tests := make([]TestHTMLData, len(run.Tests))
	for i, t := range run.Tests {
		td := TestHTMLData{
			Test:        t,
			StatusClass: string(t.Status),
			StatusLabel: t.Status.Label(),
			DurationStr: formatDuration(t.Duration),
			Reference:   resolveAsset(cfg, t.Reference),
			Actual:      resolveAsset(cfg, t.Screenshot),
			Diff:        resolveAsset(cfg, t.DiffImage),
		}
		td.HasImages = td.Reference != "" || td.Actual != "" || td.Diff != ""
		tests[i] = td
	}

	var passPct, failEnd, errEnd float64
	if run.Summary.Total > 0 {
		total := float64(run.Summary.Total)
		passPct = float64(run.Summary.Passed) / total * 100
		failEnd = passPct + float64(run.Summary.Failed)/total*100
		errEnd = failEnd + float64(run.Summary.Errors)/total*100
	}

	return HTMLData{
		Title:       cfg.Title,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Run:         run,
		Tests:       tests,
		Duration:    formatDuration(run.Duration),
		PassPct:     passPct,
		FailEnd:     failEnd,
		ErrEnd:      errEnd,
		Unattempted: run.Summary.Total - len(run.Tests),
	}
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// resolveAsset returns the value for an img src: a data URI when embedding,
// otherwise the stored path, which is already relative to the report
// directory for artifacts that live inside it.
func resolveAsset(cfg HTMLConfig, path string) string {
	if path == "" {
		return ""
	}
	if !cfg.EmbedAssets {
		return path
	}
	return loadAsBase64(resolveArtifact(cfg.ReportDir, path))
}

// resolveArtifact maps a stored artifact path to a file on disk: relative
// paths are tried against the report directory first, then as given.
func resolveArtifact(reportDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if joined := filepath.Join(reportDir, path); fileExists(joined) {
		return joined
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from the run document
	if err != nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --bg-tertiary: #f3f4f6;
            --text-primary: #000000;
            --text-secondary: rgb(75, 85, 99);
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --errored: #f97316;
            --errored-bg: rgba(249, 115, 22, 0.1);
            --pending: #6b7280;
            --accent: #06b6d4;
        }

        * {
            box-sizing: border-box;
            margin: 0;
            padding: 0;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        /* Header */
        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-top {
            display: flex;
            align-items: center;
            justify-content: space-between;
            margin-bottom: 16px;
        }

        .header-left {
            display: flex;
            align-items: center;
            gap: 20px;
        }

        .brand-text {
            display: flex;
            flex-direction: column;
        }

        .brand-name {
            font-size: 15px;
            font-weight: 600;
            color: var(--text-primary);
        }

        .brand-by {
            font-size: 11px;
            color: var(--text-primary);
        }

        .brand-link {
            color: var(--accent);
            text-decoration: none;
        }

        .brand-link:hover {
            text-decoration: underline;
        }

        .header-divider {
            width: 1px;
            height: 28px;
            background: var(--border-color);
        }

        .header-title {
            display: flex;
            flex-direction: column;
        }

        .header-title-main {
            font-size: 16px;
            font-weight: 500;
        }

        .header-title-sub {
            font-size: 12px;
            color: var(--text-secondary);
        }

        .device-badge {
            padding: 6px 14px;
            background: var(--accent);
            color: white;
            border-radius: 6px;
            font-size: 13px;
            font-weight: 500;
            font-family: 'SF Mono', Monaco, Consolas, monospace;
        }

        /* Dashboard */
        .dashboard {
            display: flex;
            gap: 24px;
            flex-wrap: wrap;
            align-items: center;
        }

        .chart-container {
            display: flex;
            align-items: center;
            gap: 16px;
        }

        .pie-chart {
            width: 80px;
            height: 80px;
            border-radius: 50%;
            position: relative;
        }

        .pie-center {
            position: absolute;
            top: 50%;
            left: 50%;
            transform: translate(-50%, -50%);
            background: var(--bg-secondary);
            width: 50px;
            height: 50px;
            border-radius: 50%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 14px;
            font-weight: 600;
        }

        .chart-legend {
            display: flex;
            flex-direction: column;
            gap: 4px;
        }

        .legend-item {
            display: flex;
            align-items: center;
            gap: 8px;
            font-size: 13px;
        }

        .legend-dot {
            width: 10px;
            height: 10px;
            border-radius: 50%;
        }

        .legend-dot.passed { background: var(--passed); }
        .legend-dot.failed { background: var(--failed); }
        .legend-dot.error { background: var(--errored); }
        .legend-dot.pending { background: var(--pending); }

        /* Environment Card */
        .env-card {
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 12px 16px;
            display: grid;
            grid-template-columns: repeat(2, 1fr);
            gap: 8px 24px;
            font-size: 13px;
        }

        .env-item {
            display: flex;
            gap: 8px;
        }

        .env-label {
            color: var(--text-muted);
            min-width: 70px;
        }

        .env-value {
            color: var(--text-primary);
            font-weight: 500;
        }

        /* Test List */
        .test-list {
            max-width: 1100px;
            margin: 0 auto;
            padding: 24px;
            display: flex;
            flex-direction: column;
            gap: 12px;
        }

        .test-item {
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 14px 16px;
        }

        .test-item.failed {
            background: linear-gradient(90deg, var(--failed-bg) 0%, var(--bg-primary) 50%);
        }

        .test-item.error {
            background: linear-gradient(90deg, var(--errored-bg) 0%, var(--bg-primary) 50%);
        }

        .test-header {
            display: flex;
            align-items: center;
            gap: 10px;
        }

        .status-dot {
            width: 10px;
            height: 10px;
            border-radius: 50%;
            flex-shrink: 0;
        }

        .status-dot.passed { background: var(--passed); }
        .status-dot.failed { background: var(--failed); }
        .status-dot.error { background: var(--errored); }

        .test-name {
            font-size: 14px;
            font-weight: 600;
            font-family: 'SF Mono', Monaco, Consolas, monospace;
        }

        .status-badge {
            padding: 2px 10px;
            border-radius: 10px;
            font-size: 11px;
            font-weight: 600;
        }

        .status-badge.passed { background: var(--passed-bg); color: var(--passed); }
        .status-badge.failed { background: var(--failed-bg); color: var(--failed); }
        .status-badge.error { background: var(--errored-bg); color: var(--errored); }

        .test-duration {
            margin-left: auto;
            font-size: 12px;
            color: var(--text-muted);
        }

        .test-description {
            margin-top: 4px;
            font-size: 13px;
            color: var(--text-secondary);
        }

        .test-message {
            margin-top: 6px;
            font-size: 13px;
            color: var(--text-secondary);
        }

        .test-error {
            margin-top: 8px;
            padding: 10px;
            background: var(--errored-bg);
            border: 1px solid var(--errored);
            border-radius: 6px;
        }

        .error-type {
            font-size: 11px;
            font-weight: 600;
            color: var(--errored);
            text-transform: uppercase;
            margin-bottom: 4px;
        }

        .error-message {
            font-size: 13px;
            color: var(--text-primary);
        }

        .screenshots {
            display: flex;
            gap: 12px;
            margin-top: 12px;
            flex-wrap: wrap;
        }

        .screenshots figure {
            display: flex;
            flex-direction: column;
            gap: 4px;
        }

        .screenshots figcaption {
            font-size: 11px;
            color: var(--text-muted);
            text-transform: uppercase;
        }

        .screenshot {
            max-width: 280px;
            border-radius: 6px;
            border: 1px solid var(--border-color);
            cursor: pointer;
        }

        .screenshot:hover {
            border-color: var(--accent);
        }

        /* Image Modal */
        .image-modal {
            display: none;
            position: fixed;
            top: 0;
            left: 0;
            width: 100%;
            height: 100%;
            background: rgba(0, 0, 0, 0.9);
            z-index: 1000;
            align-items: center;
            justify-content: center;
            cursor: pointer;
        }

        .image-modal.active {
            display: flex;
        }

        .image-modal img {
            max-width: 90%;
            max-height: 90%;
            border-radius: 8px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-top">
            <div class="header-left">
                <div class="brand-text">
                    <span class="brand-name">pixelrunner</span>
                    <span class="brand-by">by <a href="https://devicelab.dev/" target="_blank" class="brand-link">DeviceLab</a></span>
                </div>
                <div class="header-divider"></div>
                <div class="header-title">
                    <span class="header-title-main">{{.Title}}</span>
                    <span class="header-title-sub">{{.GeneratedAt}} &middot; run {{.Run.RunID}} &middot; {{.Duration}}</span>
                </div>
            </div>
            {{if .Run.Device.Serial}}
            <div class="device-badge">{{.Run.Device.Serial}}</div>
            {{end}}
        </div>
        <div class="dashboard">
            <div class="chart-container">
                <div class="pie-chart" style="background: conic-gradient(var(--passed) 0% {{printf "%.2f" .PassPct}}%, var(--failed) {{printf "%.2f" .PassPct}}% {{printf "%.2f" .FailEnd}}%, var(--errored) {{printf "%.2f" .FailEnd}}% {{printf "%.2f" .ErrEnd}}%, var(--pending) {{printf "%.2f" .ErrEnd}}% 100%)">
                    <div class="pie-center">{{printf "%.0f" .PassPct}}%</div>
                </div>
                <div class="chart-legend">
                    <div class="legend-item">
                        <span class="legend-dot passed"></span>
                        <span>{{.Run.Summary.Passed}} passed</span>
                    </div>
                    <div class="legend-item">
                        <span class="legend-dot failed"></span>
                        <span>{{.Run.Summary.Failed}} failed</span>
                    </div>
                    {{if .Run.Summary.Errors}}
                    <div class="legend-item">
                        <span class="legend-dot error"></span>
                        <span>{{.Run.Summary.Errors}} errored</span>
                    </div>
                    {{end}}
                    {{if .Unattempted}}
                    <div class="legend-item">
                        <span class="legend-dot pending"></span>
                        <span>{{.Unattempted}} not run</span>
                    </div>
                    {{end}}
                </div>
            </div>

            <div class="env-card">
                <div class="env-item">
                    <span class="env-label">Device</span>
                    <span class="env-value">{{if .Run.Device.Model}}{{.Run.Device.Model}}{{else}}{{.Run.Device.Serial}}{{end}}</span>
                </div>
                <div class="env-item">
                    <span class="env-label">App</span>
                    <span class="env-value">{{.Run.App.Package}}</span>
                </div>
                <div class="env-item">
                    <span class="env-label">Backend</span>
                    <span class="env-value">{{if .Run.Backend}}{{.Run.Backend}}{{else}}auto{{end}}</span>
                </div>
                <div class="env-item">
                    <span class="env-label">Threshold</span>
                    <span class="env-value">{{.Run.Threshold}} px</span>
                </div>
            </div>
        </div>
    </div>

    <div class="test-list">
        {{range .Tests}}
        <div class="test-item {{.StatusClass}}">
            <div class="test-header">
                <span class="status-dot {{.StatusClass}}"></span>
                <span class="test-name">{{.Name}}</span>
                <span class="status-badge {{.StatusClass}}">{{.StatusLabel}}</span>
                <span class="test-duration">{{.DurationStr}}</span>
            </div>
            {{if .Description}}<div class="test-description">{{.Description}}</div>{{end}}
            {{if .PixelDiff}}<div class="test-message">{{.PixelDiff}} differing pixels</div>{{end}}
            {{if .Message}}<div class="test-message">{{.Message}}</div>{{end}}
            {{if .Error}}
            <div class="test-error">
                <div class="error-type">{{.ErrorKind}}</div>
                <div class="error-message">{{.Error}}</div>
            </div>
            {{end}}
            {{if .HasImages}}
            <div class="screenshots">
                {{if .Reference}}
                <figure>
                    <img class="screenshot" src="{{.Reference}}" alt="{{.Name}} reference" onclick="openModal(this.src)">
                    <figcaption>Reference</figcaption>
                </figure>
                {{end}}
                {{if .Actual}}
                <figure>
                    <img class="screenshot" src="{{.Actual}}" alt="{{.Name}} actual" onclick="openModal(this.src)">
                    <figcaption>Actual</figcaption>
                </figure>
                {{end}}
                {{if .Diff}}
                <figure>
                    <img class="screenshot" src="{{.Diff}}" alt="{{.Name}} diff" onclick="openModal(this.src)">
                    <figcaption>Diff</figcaption>
                </figure>
                {{end}}
            </div>
            {{end}}
        </div>
        {{end}}
    </div>

    <div class="image-modal" id="image-modal" onclick="closeModal()">
        <img id="modal-image" src="" alt="Screenshot">
    </div>

    <script>
        function openModal(src) {
            document.getElementById('modal-image').src = src;
            document.getElementById('image-modal').classList.add('active');
        }
        function closeModal() {
            document.getElementById('image-modal').classList.remove('active');
        }
        document.addEventListener('keydown', function (e) {
            if (e.key === 'Escape') closeModal();
        });
    </script>
</body>
</html>
`
