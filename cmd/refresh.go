package cmd

import (
	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var refreshYes bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update the assistant's knowledge base",
	Long: `Ask the server to re-index the PDFs in its documents folder. You are
asked to confirm first; --yes skips the question.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		s.dialog.AssumeYes(refreshYes)
		if err := s.controller.RefreshKnowledge(cmd.Context()); err != nil {
			return err
		}
		internal.LogDebug("Refresh finished, trigger %q", s.controller.Trigger().State().Label)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVarP(&refreshYes, "yes", "y", false, "Confirm without prompting")
}
