package cli

import (
	"github.com/spf13/cobra"

	"github.com/depscout/depscout/pkg/scan"
)

// reportCommand creates the report command, which re-renders a stored run
// without rescanning.
func (c *CLI) reportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <run.json>",
		Short: "Re-render a stored scan report",
		Args:  cobra.ExactArgs(1),
		Example: `  depscout report run.json
  depscout report run.json --format csv > findings.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := scan.LoadReport(args[0])
			if err != nil {
				return err
			}
			if format == "text" || format == "" {
				printReport(report)
				return nil
			}
			return renderReport(report, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, or csv")

	return cmd
}
