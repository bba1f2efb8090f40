package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"suitegen/internal/config"
	"suitegen/internal/model"
	"suitegen/pkg/suitegen"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			settings, err := a.settings(cmd)
			if err != nil {
				return err
			}
			warnIfEphemeral(a, settings)
			client, err := a.client(cmd.Context(), settings, nil)
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			runs, err := client.Runs(cmd.Context(), suitegen.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []model.RunRecord{}
				}
				return writeJSON(a, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "no runs found")
				return nil
			}
			fmt.Fprintln(a.stdout, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		latest      bool
		diagnostics bool
		limit       int
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the final suite of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			settings, err := a.settings(cmd)
			if err != nil {
				return err
			}
			warnIfEphemeral(a, settings)
			client, err := a.client(cmd.Context(), settings, nil)
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			if diagnostics {
				diags, err := client.Diagnostics(cmd.Context(), suitegen.DiagnosticsRequest{RunID: runID, Latest: latest, Limit: limit})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(a, diags)
				}
				fmt.Fprintln(a.stdout, renderDiagnostics(diags))
				return nil
			}

			suite, err := client.Suite(cmd.Context(), suitegen.SuiteRequest{RunID: runID, Latest: latest})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a, suite)
			}
			fmt.Fprintln(a.stdout, titleStyle.Render("run "+suite.RunID))
			fmt.Fprintln(a.stdout, renderCases(suite.Parameters, suite.Cases))
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent run")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "show per-generation diagnostics instead of the suite")
	cmd.Flags().IntVar(&limit, "limit", 0, "max diagnostics rows (0 = all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	return cmd
}

func newPairsCmd(a *app) *cobra.Command {
	var (
		paramsPath string
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Print the pairwise seed suite and its pair coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := config.LoadParameters(paramsPath)
			if err != nil {
				return err
			}
			client, err := suitegen.NewClient(cmd.Context(), suitegen.Options{StoreKind: "memory", Logger: a.logger})
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			summary, err := client.Pairs(cmd.Context(), params)
			if err != nil {
				return err
			}
			covered := summary.PairCount - len(summary.Uncovered)
			if jsonOut {
				return writeJSON(a, pairsOutput{Cases: summary.Cases, PairCount: summary.PairCount, Covered: covered})
			}
			fmt.Fprintln(a.stdout, renderCases(params, summary.Cases))
			fmt.Fprintf(a.stdout, "cases: %d  pairs covered: %d/%d\n", len(summary.Cases), covered, summary.PairCount)
			for _, pair := range summary.Uncovered {
				a.logger.Warn("uncovered pair",
					"first", params[pair.FirstIndex].Name, "first_value", pair.First,
					"second", params[pair.SecondIndex].Name, "second_value", pair.Second)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paramsPath, "params", "", "parameter domain file (YAML, or JSON by extension)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a run's suite and diagnostics as JSON and CSV files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			settings, err := a.settings(cmd)
			if err != nil {
				return err
			}
			warnIfEphemeral(a, settings)
			client, err := a.client(cmd.Context(), settings, nil)
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			summary, err := client.Export(cmd.Context(), suitegen.ExportRequest{RunID: runID, Latest: latest, OutDir: outDir})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "exported run %s to %s\n", summary.RunID, summary.Directory)
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "export the most recent run")
	cmd.Flags().StringVar(&outDir, "out", "exports", "output directory")
	return cmd
}

type pairsOutput struct {
	Cases     []model.TestCase `json:"cases"`
	PairCount int              `json:"pair_count"`
	Covered   int              `json:"covered"`
}

func warnIfEphemeral(a *app, settings config.Settings) {
	if isMemoryStore(settings) {
		a.logger.Warn("memory store keeps nothing between invocations; use --store sqlite to query past runs")
	}
}
