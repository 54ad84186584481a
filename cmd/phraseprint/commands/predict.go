package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxkit/phraseprint/classify"
)

var (
	predictUser   string
	predictK      int
	predictMetric string
)

var predictCmd = &cobra.Command{
	Use:   "predict [flags] AUDIO_FILE",
	Short: "Recognize the phrase spoken in an utterance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, err := classify.ParseMetric(predictMetric)
		if err != nil {
			return err
		}

		recognizer, s, err := newRecognizer()
		if err != nil {
			return err
		}
		defer s.Close()

		prediction, err := recognizer.PredictFromFile(cmd.Context(), predictUser, args[0], predictK, metric)
		if err != nil {
			return err
		}

		if !prediction.OK {
			fmt.Fprintf(cmd.OutOrStdout(), "no personalization data for user %q\n", predictUser)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "label: %s\nconfidence: %.3f\n", prediction.Label, prediction.Confidence)
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictUser, "user", "", "user identifier")
	predictCmd.Flags().IntVar(&predictK, "k", classify.DefaultK, "number of nearest neighbors to vote")
	predictCmd.Flags().StringVar(&predictMetric, "metric", string(classify.Cosine), "similarity metric: cosine or euclidean")
	predictCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(predictCmd)
}
