package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/cases"
	"github.com/devicelab-dev/pixelrunner/pkg/config"
	"github.com/devicelab-dev/pixelrunner/pkg/history"
	"github.com/devicelab-dev/pixelrunner/pkg/report"
	"github.com/devicelab-dev/pixelrunner/pkg/runner"
	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

var testCommand = &cli.Command{
	Name:      "test",
	Usage:     "Run visual regression cases against the connected device",
	ArgsUsage: "[case names...]",
	Description: `Runs the built-in suite plus any cases from the configured cases
directory. With no arguments every case runs; naming cases runs just
those, in the order given.

Examples:
  pixelrunner test
  pixelrunner test vttest_launch wraptest
  pixelrunner test --threshold 10 --stop-on-failure
  pixelrunner test --references ./golden --output ./run42`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory for screenshots, diffs and reports",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "Number of differing pixels a case may have and still pass",
		},
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Stop the run at the first failing or errored case",
		},
		&cli.BoolFlag{
			Name:  "no-cleanup",
			Usage: "Leave the app running after the run finishes",
		},
		&cli.StringFlag{
			Name:  "cases",
			Usage: "Directory of YAML case files, merged after the built-in suite",
		},
		&cli.StringFlag{
			Name:  "references",
			Usage: "Root directory of reference screenshots",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Comparison backend (auto, magick or native)",
		},
		&cli.BoolFlag{
			Name:  "no-report",
			Usage: "Skip writing run.json and report.html",
		},
		&cli.BoolFlag{
			Name:  "allure",
			Usage: "Also export allure-results for Allure tooling",
		},
		&cli.BoolFlag{
			Name:  "history",
			Usage: "Record run outcomes in the history database",
		},
		&cli.StringFlag{
			Name:  "history-db",
			Usage: "History database path (implies --history)",
		},
	},
	Action: runTest,
}

func runTest(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyTestFlags(c, cfg)

	tests, err := loadCases(cfg)
	if err != nil {
		return err
	}
	if args := c.Args().Slice(); len(args) > 0 {
		tests, err = selectCases(tests, args)
		if err != nil {
			return err
		}
	}
	if len(tests) == 0 {
		return fmt.Errorf("no test cases to run")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	log, closeLog, err := newLogger(c, filepath.Join(cfg.OutputDir, "pixelrunner.log"))
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl, err := connectDevice(cfg, log)
	if err != nil {
		return err
	}

	label := ctrl.Serial()
	if model := ctrl.Model(); model != "" {
		label = fmt.Sprintf("%s (%s)", label, model)
	}
	fmt.Printf("Running %d case(s) on %s, app %s\n\n", len(tests), label, cfg.App.Package)

	run := runner.New(ctrl, runner.Config{
		OutputDir:     cfg.OutputDir,
		Threshold:     cfg.Threshold,
		StopOnFailure: cfg.StopOnFailure,
		Backend:       cfg.Backend,
		OnTestStart:   printTestStart,
		OnTestResult:  printTestResult,
	}, log)
	if !c.Bool("no-cleanup") {
		defer run.Cleanup()
	}

	summary, err := run.RunAll(tests)
	if err != nil {
		if errors.Is(err, runner.ErrNoDevice) {
			fmt.Println(color.RedString("No device connected. Check `adb devices`, or pass --device to pick a serial."))
			return cli.Exit("", 1)
		}
		return err
	}

	printSummary(summary)

	if !c.Bool("no-report") {
		rep := report.Build(summary, report.BuilderConfig{
			OutputDir: cfg.OutputDir,
			Device:    report.Device{Serial: ctrl.Serial(), Model: ctrl.Model()},
			App:       report.App{Package: cfg.App.Package, Activity: cfg.App.Activity},
			Threshold: cfg.Threshold,
			Backend:   cfg.Backend,
		})
		if err := report.Write(cfg.OutputDir, rep); err != nil {
			fmt.Printf("%s failed to write report: %v\n", color.YellowString("Warning:"), err)
		} else {
			fmt.Printf("\nReport: %s\n", filepath.Join(cfg.OutputDir, report.HTMLFile))
		}
		if c.Bool("allure") {
			if err := report.GenerateAllure(cfg.OutputDir); err != nil {
				fmt.Printf("%s failed to export allure results: %v\n", color.YellowString("Warning:"), err)
			} else {
				fmt.Printf("Allure results: %s\n", filepath.Join(cfg.OutputDir, "allure-results"))
			}
		}
	}

	if path := historyPath(c, cfg); path != "" {
		recordHistory(c.Context, path, summary, log)
	}

	if summary.Failed+summary.Errors > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// applyTestFlags overrides file configuration with explicit flags.
func applyTestFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("output"); v != "" {
		cfg.OutputDir = v
	}
	if c.IsSet("threshold") {
		cfg.Threshold = c.Int("threshold")
	}
	if c.IsSet("stop-on-failure") {
		cfg.StopOnFailure = c.Bool("stop-on-failure")
	}
	if v := c.String("cases"); v != "" {
		cfg.CasesDir = v
	}
	if v := c.String("references"); v != "" {
		cfg.ReferenceDir = v
	}
	if v := c.String("backend"); v != "" {
		cfg.Backend = v
	}
}

// loadCases assembles the suite: the built-in cases first, then any YAML
// cases from the configured directory.
func loadCases(cfg *config.Config) ([]*scenario.TestCase, error) {
	tests := cases.All(cfg.ReferenceDir)
	if cfg.CasesDir != "" {
		extra, err := scenario.LoadDir(cfg.CasesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load cases from %s: %w", cfg.CasesDir, err)
		}
		tests = append(tests, extra...)
	}
	return tests, nil
}

// selectCases filters the suite down to the named cases, in the order the
// names were given. Later cases shadow earlier ones with the same name.
func selectCases(tests []*scenario.TestCase, names []string) ([]*scenario.TestCase, error) {
	byName := make(map[string]*scenario.TestCase, len(tests))
	for _, tc := range tests {
		byName[tc.Name] = tc
	}

	selected := make([]*scenario.TestCase, 0, len(names))
	for _, name := range names {
		tc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown test case %q (run `pixelrunner list` to see the suite)", name)
		}
		selected = append(selected, tc)
	}
	return selected, nil
}

func printTestStart(index, total int, tc *scenario.TestCase) {
	fmt.Printf("[%d/%d] %s ... ", index, total, tc.Name)
}

func printTestResult(index, total int, res runner.Result) {
	fmt.Printf("%s (%s)\n", statusLabel(res.Status), formatDuration(res.Duration.Milliseconds()))
	muted := color.New(color.FgHiBlack)
	if res.Message != "" {
		fmt.Printf("        %s\n", muted.Sprint(res.Message))
	}
	if res.Error != "" {
		fmt.Printf("        %s\n", muted.Sprint(res.Error))
	}
}

func statusLabel(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return color.GreenString(s.Label())
	case runner.StatusFailed:
		return color.RedString(s.Label())
	case runner.StatusError:
		return color.YellowString(s.Label())
	}
	return s.Label()
}

func printSummary(summary *runner.Summary) {
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Case", "Status", "Pixels", "Duration"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(false)

	for _, res := range summary.Results {
		pixels := "-"
		if res.Comparison != nil {
			pixels = fmt.Sprintf("%d", res.Comparison.PixelDiff)
		}
		table.Append([]string{
			res.Name,
			statusLabel(res.Status),
			pixels,
			formatDuration(res.Duration.Milliseconds()),
		})
	}
	table.Render()

	counts := fmt.Sprintf("%s, %s, %s",
		color.GreenString("%d passed", summary.Passed),
		color.RedString("%d failed", summary.Failed),
		color.YellowString("%d errors", summary.Errors))
	if skipped := summary.Total - len(summary.Results); skipped > 0 {
		counts += fmt.Sprintf(", %d not run", skipped)
	}
	fmt.Printf("\n%s in %s (%.0f%% success)\n",
		counts, formatDuration(summary.Duration.Milliseconds()), summary.SuccessRate()*100)
}

// historyPath resolves where run history should be recorded: the
// --history-db flag wins, then the config file, then the shared default
// location when --history asks for recording without naming a path.
func historyPath(c *cli.Context, cfg *config.Config) string {
	if p := c.String("history-db"); p != "" {
		return p
	}
	if cfg.HistoryDB != "" {
		return cfg.HistoryDB
	}
	if c.Bool("history") {
		return config.DefaultHistoryPath()
	}
	return ""
}

func recordHistory(ctx context.Context, path string, summary *runner.Summary, log logrus.FieldLogger) {
	store, err := history.Open(ctx, path)
	if err != nil {
		fmt.Printf("%s history disabled: %v\n", color.YellowString("Warning:"), err)
		return
	}
	defer store.Close()

	if err := store.RecordRun(ctx, summary); err != nil {
		fmt.Printf("%s failed to record history: %v\n", color.YellowString("Warning:"), err)
		return
	}

	delta, err := store.Delta(ctx, summary)
	if err != nil {
		log.WithError(err).Warn("history delta unavailable")
		return
	}
	if len(delta.Regressed) > 0 {
		fmt.Printf("\n%s %s\n", color.RedString("Regressed since last run:"), strings.Join(delta.Regressed, ", "))
	}
	if len(delta.Fixed) > 0 {
		fmt.Printf("%s %s\n", color.GreenString("Fixed since last run:"), strings.Join(delta.Fixed, ", "))
	}
}
