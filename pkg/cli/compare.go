package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/imagediff"
	"github.com/devicelab-dev/pixelrunner/pkg/report"
)

var compareCommand = &cli.Command{
	Name:      "compare",
	Usage:     "Compare two screenshots or two screenshot directories",
	ArgsUsage: "<actual> <expected>",
	Description: `Compares a current screenshot (or directory of screenshots) against
a reference. With two files the images are compared pixel by pixel;
with two directories every PNG on the reference side is matched
against the file of the same name on the current side.

Examples:
  pixelrunner compare run42/login.png references/login.png
  pixelrunner compare run42/screenshots references --output comparison_output`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   "comparison_output",
			Usage:   "Output directory for diff images and the comparison report (directory mode)",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "Number of differing pixels that still count as a match",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Comparison backend (auto, magick or native)",
		},
		&cli.StringFlag{
			Name:  "diff-output",
			Usage: "Where to write the diff visualization (file mode)",
		},
		&cli.BoolFlag{
			Name:  "side-by-side",
			Usage: "Render baseline, current and diff in one composite (file mode)",
		},
	},
	Action: runCompare,
}

func runCompare(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("compare needs exactly two arguments: <actual> <expected>")
	}
	actual, expected := c.Args().Get(0), c.Args().Get(1)

	actualInfo, err := os.Stat(actual)
	if err != nil {
		return fmt.Errorf("cannot access %s: %v", actual, err)
	}
	expectedInfo, err := os.Stat(expected)
	if err != nil {
		return fmt.Errorf("cannot access %s: %v", expected, err)
	}

	switch {
	case actualInfo.IsDir() && expectedInfo.IsDir():
		return compareDirs(c, actual, expected)
	case !actualInfo.IsDir() && !expectedInfo.IsDir():
		return compareFiles(c, actual, expected)
	default:
		return fmt.Errorf("cannot compare a file against a directory")
	}
}

func compareFiles(c *cli.Context, actual, expected string) error {
	res, err := imagediff.Compare(actual, expected, imagediff.Options{
		Threshold:  c.Int("threshold"),
		DiffOutput: c.String("diff-output"),
		SideBySide: c.Bool("side-by-side"),
		Backend:    c.String("backend"),
	})
	if err != nil {
		var dim *imagediff.DimensionMismatchError
		if errors.As(err, &dim) {
			fmt.Println(color.RedString("✗ %v", dim))
			return cli.Exit("", 1)
		}
		return err
	}

	if res.IsMatch {
		if res.PixelDiff == 0 {
			fmt.Println(color.GreenString("✓ Images are identical"))
		} else {
			fmt.Println(color.GreenString("✓ Images match: %d differing pixels within threshold", res.PixelDiff))
		}
		return nil
	}

	fmt.Println(color.RedString("✗ Images differ: %d pixels", res.PixelDiff))
	if res.DiffImage != "" {
		fmt.Printf("Diff image: %s\n", res.DiffImage)
	}
	return cli.Exit("", 1)
}

func compareDirs(c *cli.Context, actual, expected string) error {
	out := c.String("output")
	sum, err := imagediff.CompareDirs(expected, actual, imagediff.DirOptions{
		OutputDir: out,
		Threshold: c.Int("threshold"),
		Backend:   c.String("backend"),
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Test", "Status", "Detail"})
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

	for _, entry := range sum.Results {
		table.Append([]string{entry.Test, dirStatusLabel(entry.Status), entry.Message})
	}
	table.Render()

	fmt.Printf("\n%d screenshot(s): %s, %s, %s, %s, %s\n", sum.Total,
		color.GreenString("%d identical", sum.Identical),
		color.RedString("%d different", sum.Different),
		color.RedString("%d missing", sum.Missing),
		color.CyanString("%d new", sum.New),
		color.YellowString("%d errors", sum.Errors))

	if err := report.WriteComparison(out, sum); err != nil {
		fmt.Printf("%s failed to write comparison report: %v\n", color.YellowString("Warning:"), err)
	} else {
		fmt.Printf("Report: %s\n", filepath.Join(out, report.ComparisonHTMLFile))
	}

	if !sum.Clean() {
		return cli.Exit("", 1)
	}
	return nil
}

func dirStatusLabel(status string) string {
	switch status {
	case imagediff.StatusIdentical:
		return color.GreenString(status)
	case imagediff.StatusDifferent, imagediff.StatusMissing:
		return color.RedString(status)
	case imagediff.StatusNew:
		return color.CyanString(status)
	case imagediff.StatusError:
		return color.YellowString(status)
	}
	return status
}
