package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/scenario"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the test cases in the suite",
	Description: `Prints every case the test command would run: the built-in suite
plus any YAML cases from the configured cases directory.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "cases",
			Usage: "Directory of YAML case files, merged after the built-in suite",
		},
		&cli.StringFlag{
			Name:  "references",
			Usage: "Root directory of reference screenshots",
		},
	},
	Action: runList,
}

func runList(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("cases"); v != "" {
		cfg.CasesDir = v
	}
	if v := c.String("references"); v != "" {
		cfg.ReferenceDir = v
	}

	tests, err := loadCases(cfg)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Description", "Actions", "Reference"})
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

	for _, tc := range tests {
		table.Append([]string{
			tc.Name,
			tc.Description,
			fmt.Sprintf("%d", len(tc.Actions)),
			referenceState(tc),
		})
	}
	table.Render()

	fmt.Printf("\n%d case(s)\n", len(tests))
	return nil
}

// referenceState reports whether a case's reference image is on disk.
// Capture-only cases have no reference and always pass with a fresh
// screenshot, so "none" is not a problem, just worth seeing.
func referenceState(tc *scenario.TestCase) string {
	if tc.ReferenceImage == "" {
		return color.New(color.FgHiBlack).Sprint("none")
	}
	if _, err := os.Stat(tc.ReferenceImage); err != nil {
		return color.YellowString("missing")
	}
	return "yes"
}
