package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxkit/phraseprint"
)

var (
	addUser  string
	addLabel string
)

var addCmd = &cobra.Command{
	Use:   "add [flags] AUDIO_FILE...",
	Short: "Register labeled example utterances for a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recognizer, s, err := newRecognizer()
		if err != nil {
			return err
		}
		defer s.Close()

		failed := 0
		for _, path := range args {
			err := recognizer.AddExampleFromFile(cmd.Context(), addUser, path, addLabel)
			if errors.Is(err, phraseprint.ErrInvalidAudio) {
				// Skip and keep going so one bad recording does not
				// abort the batch.
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", path, err)
				failed++
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q example for user %q from %s\n", addLabel, addUser, path)
		}

		if failed == len(args) {
			return fmt.Errorf("no examples added: all %d input files were invalid", failed)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addUser, "user", "", "user identifier")
	addCmd.Flags().StringVar(&addLabel, "label", "", "phrase label, e.g. \"hungry\"")
	addCmd.MarkFlagRequired("user")
	addCmd.MarkFlagRequired("label")

	rootCmd.AddCommand(addCmd)
}
