package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/devicelab-dev/pixelrunner/pkg/imagediff"
)

const (
	ComparisonFile     = "comparison_report.json"
	ComparisonHTMLFile = "comparison_report.html"
)

// WriteComparison persists a directory comparison into dir as JSON plus a
// browsable HTML rendering. Diff images are referenced by their paths
// relative to dir, so the HTML stays valid as long as the directory moves
// as a whole.
func WriteComparison(dir string, summary *imagediff.DirSummary) error {
	if err := ensureDir(dir); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := atomicWriteJSON(filepath.Join(dir, ComparisonFile), summary); err != nil {
		return fmt.Errorf("write %s: %w", ComparisonFile, err)
	}

	if err := generateComparisonHTML(filepath.Join(dir, ComparisonHTMLFile), summary); err != nil {
		return fmt.Errorf("generate html: %w", err)
	}

	return nil
}

type comparisonHTMLData struct {
	Summary     *imagediff.DirSummary
	Results     []imagediff.DirEntry
	GeneratedAt string
}

func generateComparisonHTML(path string, summary *imagediff.DirSummary) error {
	// Failures first: plain string order on status puts "different" and
	// "error" ahead of "identical", "missing" and "new".
	results := make([]imagediff.DirEntry, len(summary.Results))
	copy(results, summary.Results)
	sort.Slice(results, func(i, j int) bool {
		if results[i].Status != results[j].Status {
			return results[i].Status < results[j].Status
		}
		return results[i].Test < results[j].Test
	})

	data := comparisonHTMLData{
		Summary:     summary,
		Results:     results,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}

	tmpl, err := template.New("comparison").Parse(comparisonTemplate)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

const comparisonTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Screenshot Comparison</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
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
            --accent-bg: rgba(6, 182, 212, 0.1);
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

        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-top {
            display: flex;
            align-items: center;
            gap: 20px;
            margin-bottom: 16px;
        }

        .brand-text {
            display: flex;
            flex-direction: column;
        }

        .brand-name {
            font-size: 15px;
            font-weight: 600;
        }

        .brand-by {
            font-size: 11px;
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

        .header-title-main {
            font-size: 16px;
            font-weight: 500;
        }

        .header-title-sub {
            font-size: 12px;
            color: var(--text-secondary);
            font-family: 'SF Mono', Monaco, Consolas, monospace;
        }

        .summary-tiles {
            display: flex;
            gap: 12px;
            flex-wrap: wrap;
        }

        .tile {
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 10px 20px;
            min-width: 110px;
            text-align: center;
        }

        .tile-count {
            font-size: 24px;
            font-weight: 600;
        }

        .tile-label {
            font-size: 11px;
            color: var(--text-muted);
            text-transform: uppercase;
        }

        .tile.identical { background: var(--passed-bg); }
        .tile.identical .tile-count { color: var(--passed); }
        .tile.different { background: var(--failed-bg); }
        .tile.different .tile-count { color: var(--failed); }
        .tile.missing { background: var(--errored-bg); }
        .tile.missing .tile-count { color: var(--errored); }
        .tile.new { background: var(--accent-bg); }
        .tile.new .tile-count { color: var(--accent); }
        .tile.error .tile-count { color: var(--pending); }

        .result-list {
            max-width: 1100px;
            margin: 0 auto;
            padding: 24px;
            display: flex;
            flex-direction: column;
            gap: 12px;
        }

        .result-item {
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 14px 16px;
        }

        .result-item.different {
            background: linear-gradient(90deg, var(--failed-bg) 0%, var(--bg-primary) 50%);
        }

        .result-header {
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

        .status-dot.identical { background: var(--passed); }
        .status-dot.different { background: var(--failed); }
        .status-dot.missing { background: var(--errored); }
        .status-dot.new { background: var(--accent); }
        .status-dot.error { background: var(--pending); }

        .result-name {
            font-size: 14px;
            font-weight: 600;
            font-family: 'SF Mono', Monaco, Consolas, monospace;
        }

        .status-badge {
            padding: 2px 10px;
            border-radius: 10px;
            font-size: 11px;
            font-weight: 600;
            text-transform: uppercase;
        }

        .status-badge.identical { background: var(--passed-bg); color: var(--passed); }
        .status-badge.different { background: var(--failed-bg); color: var(--failed); }
        .status-badge.missing { background: var(--errored-bg); color: var(--errored); }
        .status-badge.new { background: var(--accent-bg); color: var(--accent); }
        .status-badge.error { background: var(--bg-secondary); color: var(--pending); }

        .result-message {
            margin-top: 6px;
            font-size: 13px;
            color: var(--text-secondary);
        }

        .diff-strip {
            margin-top: 12px;
            max-width: 100%;
            border-radius: 6px;
            border: 1px solid var(--border-color);
            cursor: pointer;
        }

        .diff-strip:hover {
            border-color: var(--accent);
        }

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
            max-width: 95%;
            max-height: 95%;
            border-radius: 8px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-top">
            <div class="brand-text">
                <span class="brand-name">pixelrunner</span>
                <span class="brand-by">by <a href="https://devicelab.dev/" target="_blank" class="brand-link">DeviceLab</a></span>
            </div>
            <div class="header-divider"></div>
            <div class="header-title">
                <div class="header-title-main">Screenshot Comparison</div>
                <div class="header-title-sub">{{.Summary.Baseline}} vs {{.Summary.Current}} &middot; {{.GeneratedAt}}</div>
            </div>
        </div>
        <div class="summary-tiles">
            <div class="tile identical">
                <div class="tile-count">{{.Summary.Identical}}</div>
                <div class="tile-label">Identical</div>
            </div>
            <div class="tile different">
                <div class="tile-count">{{.Summary.Different}}</div>
                <div class="tile-label">Different</div>
            </div>
            <div class="tile missing">
                <div class="tile-count">{{.Summary.Missing}}</div>
                <div class="tile-label">Missing</div>
            </div>
            <div class="tile new">
                <div class="tile-count">{{.Summary.New}}</div>
                <div class="tile-label">New</div>
            </div>
            {{if .Summary.Errors}}
            <div class="tile error">
                <div class="tile-count">{{.Summary.Errors}}</div>
                <div class="tile-label">Errors</div>
            </div>
            {{end}}
        </div>
    </div>

    <div class="result-list">
        {{range .Results}}
        <div class="result-item {{.Status}}">
            <div class="result-header">
                <span class="status-dot {{.Status}}"></span>
                <span class="result-name">{{.Test}}</span>
                <span class="status-badge {{.Status}}">{{.Status}}</span>
            </div>
            <div class="result-message">{{.Message}}</div>
            {{if .DiffImage}}
            <img class="diff-strip" src="{{.DiffImage}}" alt="{{.Test}} baseline, current and difference" onclick="openModal(this.src)">
            {{end}}
        </div>
        {{end}}
    </div>

    <div class="image-modal" id="image-modal" onclick="closeModal()">
        <img id="modal-image" src="" alt="Comparison">
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
