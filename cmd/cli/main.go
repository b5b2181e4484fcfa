package main

import (
	"context"
	"fmt"
	"os"

	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/container"
	"mvam/internal/dataset"
	"mvam/internal/errors"
	"mvam/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "mvam-cli",
		Short: "mVAM survey ETL: download, clean, track targets and normalize a survey round",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				fmt.Fprintf(os.Stderr, "could not read %s: %v\n", envFile, err)
			}
			if logLevel != "" {
				os.Setenv("LOG_LEVEL", logLevel)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (ERROR, WARN, INFO, DEBUG, TRACE)")

	rootCmd.AddCommand(
		newRunCmd(),
		newFetchCmd(),
		newCleanCmd(),
		newTargetsCmd(),
		newNormalizeCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if errors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", errors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// build loads configuration and wires the container. Stages that never call
// the forms API do not require TOKEN.
func build(ctx context.Context, needsToken bool) (*container.Container, error) {
	load := config.LoadLocal
	if needsToken {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg, internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)))
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage from download to review",
		Long: `Download the configured survey, clean it, compare against the sampling
frame, normalize it into the target schema and write the review report.
When DATABASE_URL is set the normalized table is also exported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			result, err := c.Pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: %d of %d responses retained, %d artifacts written\n",
				result.RunID, result.Clean.RetainedRows, result.Clean.RawRows, len(result.Artifacts))
			for _, path := range result.Artifacts {
				fmt.Printf("  %s\n", path)
			}
			return nil
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download survey responses into the raw data artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			raw, err := c.Pipeline.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Fetched %d responses\n", raw.Len())
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw data artifact",
		Long: `Keep consented and completed responses, collapse duplicate respondents and
write the clean data, duplicates and per-enumerator artifacts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			raw, err := c.Pipeline.Load(cmd.Context(), dataset.ArtifactRaw)
			if err != nil {
				return err
			}
			result, err := c.Pipeline.Clean(cmd.Context(), raw)
			if err != nil {
				return err
			}
			fmt.Printf("Kept %d of %d responses (%d duplicate submissions removed)\n",
				result.Stats.RetainedRows, result.Stats.RawRows, result.Stats.DuplicateRows)
			return nil
		},
	}
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Compare completed responses per LLG with the sampling frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			clean, err := c.Pipeline.Load(cmd.Context(), dataset.ArtifactClean)
			if err != nil {
				return err
			}
			targets, err := c.Pipeline.Targets(cmd.Context(), clean)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote targets for %d areas\n", targets.Len())
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	var labelErrors string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Reshape the clean data artifact into the target schema",
		Long: `Map the clean data onto the target schema, expanding multiple choice
answers and resolving labels, then write the normalized data and the review.

Label failures follow LABEL_ERRORS (warn or fail); --label-errors overrides it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if labelErrors != "" {
				os.Setenv("LABEL_ERRORS", labelErrors)
			}
			c, err := build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			clean, err := c.Pipeline.Load(cmd.Context(), dataset.ArtifactClean)
			if err != nil {
				return err
			}
			result, err := c.Pipeline.Normalize(cmd.Context(), clean)
			if err != nil {
				return err
			}
			if _, err := c.Pipeline.Review(cmd.Context(), report.Review{Normalize: result}); err != nil {
				return err
			}

			fmt.Printf("Normalized %d responses: %d columns failed, %d unclassified\n",
				result.Table.Len(), len(result.Failed), len(result.Unclassified))
			for _, column := range result.Unclassified {
				fmt.Printf("  unclassified: %s\n", column)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&labelErrors, "label-errors", "", "Label failure policy: warn or fail")
	return cmd
}

func newExportCmd() *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load the normalized data artifact into PostgreSQL",
		Long: `Replace the export table with the normalized data artifact.
Requires DATABASE_URL; the table name comes from EXPORT_TABLE or --table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if table != "" {
				os.Setenv("EXPORT_TABLE", table)
			}
			c, err := build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			normalized, err := c.Pipeline.Load(cmd.Context(), dataset.ArtifactNormalized)
			if err != nil {
				return err
			}
			n, err := c.Pipeline.Export(cmd.Context(), normalized)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d rows into %s\n", n, c.Config.Database.Table)
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Destination table, optionally schema qualified")
	return cmd
}
