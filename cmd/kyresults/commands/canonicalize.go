package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"kyrealign/internal/canon"
	"kyrealign/internal/reference"
	"kyrealign/internal/report"
)

var (
	canonCounties  string
	canonOverrides string
)

func init() {
	canonicalizeCmd.Flags().StringVar(&canonCounties, "counties", "", "county reference table (default: embedded)")
	canonicalizeCmd.Flags().StringVar(&canonOverrides, "overrides", "", "override table (default: embedded)")
	rootCmd.AddCommand(canonicalizeCmd)
}

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <name>...",
	Short: "Resolve raw county spellings and show how each was matched.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCanonicalizer(canonCounties, canonOverrides)
		if err != nil {
			return err
		}

		t := &report.Table{Header: []string{"Input", "County", "Strategy", "Suggestion"}}

		for _, raw := range args {
			res := c.Canonicalize(raw)
			if res.OK() {
				t.Append(raw, res.County, string(res.Strategy), "")
				continue
			}

			suggestion := ""
			if s, ok := c.Suggest(raw); ok {
				suggestion = fmt.Sprintf("%s (%.2f)", s.County, s.Similarity)
			}

			t.Append(raw, "", "unresolvable", suggestion)
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), t.Render())

		return err
	},
}

func loadCanonicalizer(countiesPath, overridesPath string) (*canon.Canonicalizer, error) {
	var (
		table *reference.Table
		err   error
	)

	if countiesPath != "" {
		table, err = reference.Load(countiesPath)
	} else {
		table, err = reference.LoadDefault()
	}

	if err != nil {
		return nil, err
	}

	var overrides *reference.Overrides
	if overridesPath != "" {
		overrides, err = reference.LoadOverrides(overridesPath, table)
	} else {
		overrides, err = reference.DefaultOverrides(table)
	}

	if err != nil {
		return nil, err
	}

	return canon.New(table, overrides), nil
}
