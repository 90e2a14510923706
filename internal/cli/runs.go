package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/export"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
)

var (
	runsJob   string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent job runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		repo := repository.NewRunRepository(db, logger)

		var runs []entity.Run
		if runsJob != "" {
			runs, err = repo.ListByJob(ctx, runsJob, runsLimit)
		} else {
			runs, err = repo.ListRecent(ctx, runsLimit)
		}
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs found")
			return nil
		}

		fmt.Printf("%-20s %-24s %-8s %-9s %-8s %s\n", "STARTED", "JOB", "STATUS", "RENAMED", "ERRORS", "DURATION")
		for _, r := range runs {
			duration := ""
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Printf("%-20s %-24s %-8s %-9d %-8d %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.JobID, r.Status, r.FilesRenamed, r.Errors, duration)
		}
		return nil
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export <path.xlsx>",
	Short: "Export run history to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close(logger)

		svc := export.NewService(repository.NewRunRepository(db, logger), logger)
		data, err := svc.RunsXLSX(ctx, runsJob, runsLimit)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsJob, "job", "", "only runs of this job")
	runsCmd.PersistentFlags().IntVarP(&runsLimit, "limit", "n", 50, "maximum runs (0 = all)")
	runsCmd.AddCommand(runsExportCmd)
}
