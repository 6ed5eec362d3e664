package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/report"
	"github.com/KaramelBytes/regdiag-cli/internal/transform"
)

var (
	refineLoad      loadFlags
	refineSpec      specFlags
	refineLambda    float64
	refineMaxSteps  int
	refineLambdaMin float64
	refineLambdaMax float64
	refineStep      float64
)

var refineCmd = &cobra.Command{
	Use:   "refine <file>",
	Short: "Box-Cox transform the response and remove terms until the assumptions hold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := refineLoad.load(args[0])
		if err != nil {
			return err
		}
		spec, err := refineSpec.spec(ds)
		if err != nil {
			return err
		}
		opt := config().RefineOptions(&log)
		opt.Thresholds = thresholdsFromFlags(cmd)
		f := cmd.Flags()
		if f.Changed("max-steps") {
			opt.MaxSteps = refineMaxSteps
		}
		if f.Changed("lambda-min") {
			opt.Grid.Min = refineLambdaMin
		}
		if f.Changed("lambda-max") {
			opt.Grid.Max = refineLambdaMax
		}
		if f.Changed("lambda-step") {
			opt.Grid.Step = refineStep
		}

		var r *transform.Refinement
		if f.Changed("lambda") {
			r, err = transform.RefineAt(ds, spec, refineLambda, opt)
		} else {
			r, err = transform.Refine(ds, spec, opt)
		}
		if err != nil {
			return err
		}
		return refineLoad.print(cmd.OutOrStdout(), report.NewRefineView(ds.Name(), r))
	},
}

func init() {
	rootCmd.AddCommand(refineCmd)
	refineLoad.bind(refineCmd)
	refineSpec.bind(refineCmd)
	f := refineCmd.Flags()
	f.Float64Var(&refineLambda, "lambda", 1, "use this lambda instead of searching the grid")
	f.IntVar(&refineMaxSteps, "max-steps", 50, "maximum term removals")
	f.Float64Var(&refineLambdaMin, "lambda-min", -10, "lower end of the lambda grid")
	f.Float64Var(&refineLambdaMax, "lambda-max", 10, "upper end of the lambda grid")
	f.Float64Var(&refineStep, "lambda-step", 0.01, "lambda grid step")
	bindThresholdFlags(refineCmd)
}
