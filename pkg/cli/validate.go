package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pixelrunner/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check case files without running them",
	ArgsUsage: "[file or directory]",
	Description: `Parses a case file or every case file in a directory and reports all
problems in one pass. Without an argument the configured cases
directory is checked.`,
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		path = cfg.CasesDir
	}
	if path == "" {
		path = "."
	}

	result := validator.Validate(path)

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"File", "Status", "Detail"})
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

		for _, err := range result.Errors {
			table.Append(validationRow(err, color.RedString("ERROR")))
		}
		for _, err := range result.Warnings {
			table.Append(validationRow(err, color.YellowString("WARN")))
		}
		table.Render()
		fmt.Println()
	}

	if result.IsValid() {
		fmt.Println(color.GreenString("✓ %d case(s) in %d file(s), all valid", len(result.Cases), len(result.Files)))
		if n := len(result.Warnings); n > 0 {
			fmt.Printf("%d warning(s)\n", n)
		}
		return nil
	}

	fmt.Println(color.RedString("✗ %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings)))
	return cli.Exit("", 1)
}

func validationRow(err error, status string) []string {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return []string{verr.File, status, verr.Message}
	}
	return []string{"", status, err.Error()}
}
