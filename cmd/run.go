package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/metrics"
	"github.com/KaramelBytes/regdiag-cli/internal/pipeline"
	"github.com/KaramelBytes/regdiag-cli/internal/report"
	"github.com/KaramelBytes/regdiag-cli/internal/utils"
)

var (
	runLoad             loadFlags
	runOutputDir        string
	runMetricsFile      string
	runCurvature        bool
	runSkipInteractions bool
	runFailFast         bool
	runQuiet            bool
)

var runCmd = &cobra.Command{
	Use:   "run <files...>",
	Short: "Run selection, diagnostics and Box-Cox refinement on one or more datasets",
	Example: `  regdiag run data/*.csv --output-dir reports --metrics-file regdiag.prom
  regdiag run balance.xlsx --sheet-index 2 -f yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		format, err := runLoad.reportFormat()
		if err != nil {
			return err
		}
		pc := config().PipelineConfig(&log)
		pc.Refine.Thresholds = thresholdsFromFlags(cmd)
		applySelectionFlags(cmd, &pc.Selection)
		if runLoad.response != "" {
			pc.Response = runLoad.response
		}
		pc.Curvature = runCurvature
		pc.SkipInteractions = runSkipInteractions

		rec := metrics.NewRecorder()
		out, progress := cmd.OutOrStdout(), cmd.ErrOrStderr()
		var failed []string
		total := len(files)
		for i, path := range files {
			if !runQuiet {
				fmt.Fprintf(progress, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			run, err := runOne(path, pc)
			if err != nil {
				rec.Failed(filepath.Base(path))
				if runFailFast {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				log.Error().Err(err).Str("file", path).Msg("run failed")
				failed = append(failed, filepath.Base(path))
				continue
			}
			rec.Observe(run)
			view := report.NewRunView(run)
			if runOutputDir == "" {
				if err := runLoad.print(out, view); err != nil {
					return err
				}
				continue
			}
			base := utils.Slug(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			if runLoad.sheetName != "" {
				base += "__sheet-" + utils.Slug(runLoad.sheetName)
			}
			written, err := report.WriteFile(runOutputDir, base, view, format)
			if err != nil {
				return err
			}
			if !runQuiet {
				fmt.Fprintf(progress, "✓ Wrote %s\n", written)
			}
		}
		if runMetricsFile != "" {
			if err := rec.WriteTextfile(runMetricsFile); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d datasets failed: %s", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

func runOne(path string, pc pipeline.Config) (*pipeline.Run, error) {
	ds, err := runLoad.load(path)
	if err != nil {
		return nil, err
	}
	run, err := pipeline.Execute(ds, pc)
	if errors.Is(err, pipeline.ErrEmptyModel) {
		return nil, fmt.Errorf("%w; try a larger --remove or --enter threshold", err)
	}
	return run, err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runLoad.bind(runCmd)
	f := runCmd.Flags()
	f.StringVarP(&runOutputDir, "output-dir", "o", "", "write one report per dataset into this directory instead of stdout")
	f.StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus textfile metrics for the batch")
	f.BoolVar(&runCurvature, "curvature", false, "test squared predictors before the interaction search")
	f.BoolVar(&runSkipInteractions, "skip-interactions", false, "skip the pairwise interaction search")
	f.BoolVar(&runFailFast, "fail-fast", false, "stop at the first dataset that fails")
	f.BoolVarP(&runQuiet, "quiet", "q", false, "suppress progress output")
	f.Float64Var(&selectEnter, "enter", 0.05, "p-value below which a predictor may enter")
	f.Float64Var(&selectRemove, "remove", 0.1, "p-value above which a predictor is removed")
	f.IntVar(&selectMaxSteps, "max-steps", 100, "maximum add/remove actions per selection strategy")
	bindThresholdFlags(runCmd)
}
