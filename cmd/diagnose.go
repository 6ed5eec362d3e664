package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
	"github.com/KaramelBytes/regdiag-cli/internal/report"
)

var (
	diagLoad   loadFlags
	diagSpec   specFlags
	diagAlpha  float64
	diagMaxVIF float64
	diagMaxCD  float64
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Fit a model and check the linear-model assumptions",
	Example: `  regdiag diagnose balance.csv --predictors revenue,assets --interactions revenue:assets
  regdiag diagnose balance.xlsx --sheet-name Q4 -f json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := diagLoad.load(args[0])
		if err != nil {
			return err
		}
		spec, err := diagSpec.spec(ds)
		if err != nil {
			return err
		}
		th := thresholdsFromFlags(cmd)
		if err := th.Validate(); err != nil {
			return err
		}
		fm, err := model.Fit(ds, spec)
		if err != nil {
			return err
		}
		rep := diagnostics.Diagnose(fm, th)
		log.Info().Str("formula", spec.String()).Int("failures", len(rep.Failures())).Msg("diagnostics complete")
		return diagLoad.print(cmd.OutOrStdout(), report.NewDiagnoseView(ds.Name(), fm, rep))
	},
}

func thresholdsFromFlags(cmd *cobra.Command) diagnostics.Thresholds {
	th := config().Thresholds()
	f := cmd.Flags()
	if f.Changed("alpha") {
		th.Alpha = diagAlpha
	}
	if f.Changed("max-vif") {
		th.MaxVIF = diagMaxVIF
	}
	if f.Changed("max-cooks") {
		th.MaxCooksDistance = diagMaxCD
	}
	return th
}

func bindThresholdFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&diagAlpha, "alpha", 0.05, "significance level of the assumption tests")
	cmd.Flags().Float64Var(&diagMaxVIF, "max-vif", 10, "largest acceptable variance inflation factor")
	cmd.Flags().Float64Var(&diagMaxCD, "max-cooks", 0.5, "largest acceptable Cook's distance")
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagLoad.bind(diagnoseCmd)
	diagSpec.bind(diagnoseCmd)
	bindThresholdFlags(diagnoseCmd)
}
