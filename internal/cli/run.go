package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/pipeline"
	"github.com/joseph-ayodele/drive-renamer/internal/services/worker"
)

var (
	runFolder  string
	runTrigger string
)

var runCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Run one job now",
	Long: `Run a single job in the foreground and print its statistics.

Examples:
  renamer run facturas-2024
  renamer run job-manual-manual --trigger manual --folder 1AbCdEf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(cmd, worker.Task{
			JobID:       args[0],
			FolderID:    runFolder,
			TriggerType: constants.TriggerType(runTrigger),
		})
	},
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run every active scheduled job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(cmd, worker.Task{TriggerType: constants.TriggerScheduled})
	},
}

func init() {
	runCmd.Flags().StringVar(&runFolder, "folder", "", "root folder id overriding the job's source folder")
	runCmd.Flags().StringVar(&runTrigger, "trigger", string(constants.TriggerManual), "trigger type recorded for the run (manual, scheduled)")
}

func runTask(cmd *cobra.Command, task worker.Task) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Worker.HandleTask(ctx, task)
	if err != nil {
		return err
	}
	if err := printJSON(os.Stdout, results); err != nil {
		return err
	}
	return failedResults(results)
}

func failedResults(results []pipeline.Result) error {
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed", failed, len(results))
	}
	return nil
}
