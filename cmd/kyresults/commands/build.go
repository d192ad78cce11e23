package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"kyrealign/internal/config"
	"kyrealign/internal/pipeline"
)

var (
	buildConfig string
	buildOutput string
)

func init() {
	buildCmd.Flags().StringVarP(&buildConfig, "config", "c", "configs/kyresults.yaml", "pipeline configuration file")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "artifact path; overrides output.path")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Ingest every configured source and write the results tree.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(buildConfig)
		if err != nil {
			return err
		}

		if buildOutput != "" {
			cfg.Pipeline.Output.Path = buildOutput
		}

		log := newLogger(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.Format)

		summary, out, err := pipeline.Run(cmd.Context(), cfg, log)
		if summary != nil && summary.Report != nil {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "📊 ingested %d, accepted %d, rejected %d\n",
				summary.Report.Ingested, summary.Report.Accepted, summary.Report.TotalRejected())

			for _, s := range summary.Report.FailedSources() {
				fmt.Fprintf(w, "⚠️  source %s failed: %s\n", s.Name, s.Err)
			}
		}

		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✅ %d results across %d contests saved to: %s\n",
			summary.Stats.Results, summary.Stats.Contests, out.Artifact)

		for _, path := range []string{out.Manifest, out.Report, out.SQLite} {
			if path != "" {
				fmt.Fprintf(w, "   %s\n", path)
			}
		}

		return nil
	},
}
