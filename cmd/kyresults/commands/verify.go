package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kyrealign/internal/margin"
	"kyrealign/internal/tree"
	"kyrealign/internal/validator"
	"kyrealign/pkg/manifest"
)

var (
	verifyArtifact string
	verifyManifest string
)

func init() {
	verifyCmd.Flags().StringVarP(&verifyArtifact, "artifact", "a", "", "results JSON to check")
	verifyCmd.Flags().StringVarP(&verifyManifest, "manifest", "m", "", "manifest path (default: <artifact>"+manifest.SidecarSuffix+")")
	_ = verifyCmd.MarkFlagRequired("artifact")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check an artifact against its manifest and re-validate its invariants.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()

		manifestPath := verifyManifest
		if manifestPath == "" {
			manifestPath = manifest.SidecarPath(verifyArtifact)
		}

		m, err := manifest.VerifyFile(verifyArtifact, manifestPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "✅ checksum matches %s (%d bytes)\n", manifestPath, m.Bytes)

		t, err := tree.Read(verifyArtifact)
		if err != nil {
			return err
		}

		c, err := loadCanonicalizer("", "")
		if err != nil {
			return err
		}

		d, err := margin.ParseDenominator(m.MarginDenominator)
		if err != nil {
			return err
		}

		v, err := validator.New(c, margin.New(d))
		if err != nil {
			return err
		}

		res := v.ValidateTree(t)
		fmt.Fprintln(w, res.String())

		if !res.IsValid {
			res.PrintErrors(w)
			return errors.New("artifact failed validation")
		}

		res.PrintWarnings(w)

		return nil
	},
}
