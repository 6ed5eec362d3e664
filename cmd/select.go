package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/report"
	"github.com/KaramelBytes/regdiag-cli/internal/selection"
)

var (
	selectLoad     loadFlags
	selectEnter    float64
	selectRemove   float64
	selectMaxSteps int
)

var selectCmd = &cobra.Command{
	Use:   "select <file>",
	Short: "Run forward, backward and bidirectional selection and intersect the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := selectLoad.load(args[0])
		if err != nil {
			return err
		}
		opt := config().SelectionOptions(&log)
		applySelectionFlags(cmd, &opt)
		c, err := selection.Select(ds, ds.Response(), opt)
		if err != nil {
			return err
		}
		return selectLoad.print(cmd.OutOrStdout(), report.NewSelectionView(ds.Name(), c))
	},
}

func applySelectionFlags(cmd *cobra.Command, opt *selection.Options) {
	f := cmd.Flags()
	if f.Changed("enter") {
		opt.Enter = selectEnter
	}
	if f.Changed("remove") {
		opt.Remove = selectRemove
	}
	if f.Changed("max-steps") {
		opt.MaxSteps = selectMaxSteps
	}
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectLoad.bind(selectCmd)
	selectCmd.Flags().Float64Var(&selectEnter, "enter", 0.05, "p-value below which a predictor may enter")
	selectCmd.Flags().Float64Var(&selectRemove, "remove", 0.1, "p-value above which a predictor is removed")
	selectCmd.Flags().IntVar(&selectMaxSteps, "max-steps", 100, "maximum add/remove actions per strategy")
}
