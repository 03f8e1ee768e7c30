package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/report"
	"github.com/devicelab-dev/pixelrunner/pkg/runner"
)

const (
	reviewApprove = "approve (overwrite the reference with this screenshot)"
	reviewSkip    = "skip"
	reviewQuit    = "quit review"
)

var reviewCommand = &cli.Command{
	Name:  "review",
	Usage: "Walk through failed cases and approve new references",
	Description: `Reads the report from the last run and steps through every failed
case. Approving a case copies its captured screenshot over the
reference image, making the new rendering the expected one.

Inspect the diff image before approving; approval cannot be undone
short of restoring the reference from version control.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory of the run to review",
		},
	},
	Action: runReview,
}

func runReview(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dir := cfg.OutputDir
	if v := c.String("output"); v != "" {
		dir = v
	}

	run, err := report.Read(dir)
	if err != nil {
		return fmt.Errorf("no run report in %s: %w", dir, err)
	}

	var failed []report.Test
	for _, t := range run.Tests {
		if t.Status == runner.StatusFailed {
			failed = append(failed, t)
		}
	}
	if len(failed) == 0 {
		fmt.Printf("Nothing to review: no failed cases in %s\n", dir)
		return nil
	}

	fmt.Printf("Reviewing %d failed case(s) from run %s\n", len(failed), run.RunID)

	approved := 0
	for i, t := range failed {
		actual := resolveArtifact(dir, t.Screenshot)
		reference := resolveArtifact(dir, t.Reference)

		fmt.Printf("\n%s  %s\n", color.New(color.Bold).Sprint(t.Name), t.Message)
		fmt.Printf("  screenshot: %s\n", actual)
		fmt.Printf("  reference:  %s\n", reference)
		if t.DiffImage != "" {
			fmt.Printf("  diff:       %s\n", resolveArtifact(dir, t.DiffImage))
		}

		choice := ""
		prompt := &survey.Select{
			Message: fmt.Sprintf("[%d/%d] %s", i+1, len(failed), t.Name),
			Options: []string{reviewApprove, reviewSkip, reviewQuit},
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			return err
		}

		switch choice {
		case reviewQuit:
			fmt.Printf("\nReview stopped, %d reference(s) updated\n", approved)
			return nil
		case reviewSkip:
			continue
		}

		confirmed := false
		confirm := &survey.Confirm{
			Message: fmt.Sprintf("Overwrite %s?", reference),
			Default: false,
		}
		_ = survey.AskOne(confirm, &confirmed)
		if !confirmed {
			continue
		}

		if err := copyFile(actual, reference); err != nil {
			fmt.Printf("%s failed to update reference: %v\n", color.RedString("Error:"), err)
			continue
		}
		approved++
		fmt.Println(color.GreenString("✓ reference updated"))
	}

	fmt.Printf("\nReview complete, %d of %d reference(s) updated\n", approved, len(failed))
	return nil
}

// resolveArtifact maps a report artifact path back to a real file. Paths
// inside the report are relative to the report directory; references are
// stored as given to the run, which may already be absolute or relative
// to the working directory.
func resolveArtifact(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if joined := filepath.Join(dir, p); fileExists(joined) {
		return joined
	}
	return p
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, data, 0o644)
}
