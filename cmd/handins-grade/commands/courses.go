package commands

import (
	"handins-grader/internal/handins"
	"handins-grader/internal/report"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists the course aliases handins-grade knows about.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		report.RenderCourses(cmd.OutOrStdout(), handins.Courses())
	},
}
