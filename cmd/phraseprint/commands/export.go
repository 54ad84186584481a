package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxkit/phraseprint/dataset"
)

var (
	exportDir string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export [flags]",
	Short: "Build or update a feature CSV for offline training",
	Long: `Export walks a directory of .wav recordings and writes one CSV row per
file: filepath, feature_0..feature_{D-1}. Files already present in the
CSV are left untouched, so repeated runs only process new recordings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recognizer, s, err := newRecognizer()
		if err != nil {
			return err
		}
		defer s.Close()

		builder := dataset.NewBuilder(recognizer, nil)

		report, err := builder.Update(cmd.Context(), exportDir, exportOut)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "processed %d file(s), skipped %d\n", report.Processed, len(report.Skipped))
		for _, skipped := range report.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", skipped.Path, skipped.Err)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "directory of .wav recordings")
	exportCmd.Flags().StringVar(&exportOut, "out", "features.csv", "output CSV path")
	exportCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(exportCmd)
}
