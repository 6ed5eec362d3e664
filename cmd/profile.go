package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
)

var (
	profileLoad       loadFlags
	profileOutlierThr float64
	profileTopCorr    int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile the numeric columns of a CSV/TSV/XLSX dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := profileLoad.load(args[0])
		if err != nil {
			return err
		}
		p := dataset.ProfileDataset(ds, dataset.ProfileOptions{
			OutlierThreshold: profileOutlierThr,
			TopCorrelations:  profileTopCorr,
		})
		return profileLoad.print(cmd.OutOrStdout(), p)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileLoad.bind(profileCmd)
	profileCmd.Flags().Float64Var(&profileOutlierThr, "outlier-threshold", 3.5, "robust z-score cut-off for outliers")
	profileCmd.Flags().IntVar(&profileTopCorr, "top-corr", 10, "number of response correlations to list")
}
