package commands

import (
	"context"
	"errors"
	"fmt"
	"handins-grader/internal/components/telemetry"
	"handins-grader/internal/config"
	"handins-grader/internal/grade"
	"handins-grader/internal/gradecheck"
	"handins-grader/internal/handins"
	"handins-grader/internal/prompt"
	"handins-grader/internal/report"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const serviceName = "handins-grade"

var (
	configPath *string
	debug      *bool
	dumpDir    *string

	cfg config.Config
	tel telemetry.Telemetry
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Path to a handins.json5 config, searched for upwards from the working directory by default.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log requests and other debug information to stderr.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Write every request and response to this directory, secrets redacted.")
}

var rootCmd = &cobra.Command{
	Use:   "handins-grade [course]",
	Short: "handins-grade logs into handins and prints your current grade for a course.",
	Long: `handins-grade logs into handins, lists the assignments of a course and
prints your weighted grade over the assignments that have been graded so far.

The course can be an alias (see "handins-grade courses") or a handins course id.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*debug)

		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
		if *dumpDir != "" {
			cfg.DumpDir = *dumpDir
		}

		tel, err = telemetry.Setup(cmd.Context(), serviceName, cfg.Telemetry)
		if err != nil {
			slog.Warn("failed to setup telemetry, continuing without it", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
	RunE: runGrade,
}

func runGrade(cmd *cobra.Command, args []string) error {
	courseName := cfg.Course
	if len(args) > 0 {
		courseName = args[0]
	}
	course, err := handins.LookupCourse(courseName)
	if err != nil {
		return err
	}

	api := telemetry.SlogAPI{}
	client, err := handins.NewClient(cfg.ClientOptions(), api)
	if err != nil {
		return err
	}
	service := gradecheck.NewService(gradecheck.FromHandins(client), api)

	// prompts go to stderr, stdout only carries the report
	creds, err := prompt.Credentials(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer creds.Wipe()

	summary, err := service.Check(cmd.Context(), creds, course)
	if err != nil && !errors.Is(err, grade.ErrNoGradedRecords) {
		return err
	}

	report.Render(cmd.OutOrStdout(), client.BaseUrl(), course, summary, err)
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
