package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"kyrealign/internal/office"
	"kyrealign/internal/report"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <office>...",
	Short: "Show which statewide category each raw office label maps to.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := &report.Table{Header: []string{"Office", "Category"}}

		for _, raw := range args {
			category := office.Classify(raw)

			label := category.Label()
			if !category.IsStatewide() {
				label = "(not statewide)"
			}

			t.Append(raw, label)
		}

		_, err := fmt.Fprint(cmd.OutOrStdout(), t.Render())

		return err
	},
}
