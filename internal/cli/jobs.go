package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/drive-renamer/internal/entity"
	"github.com/joseph-ayodele/drive-renamer/internal/repository"
)

var jobsFile string

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List jobs or show one job",
	Long: `List all configured jobs or show a specific job as JSON.

Examples:
  renamer jobs
  renamer jobs facturas-2024
  renamer jobs add --file job.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		repo := repository.NewJobRepository(db, logger)

		if len(args) == 1 {
			job, err := repo.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, job)
		}

		jobs, err := repo.List(ctx)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}
		fmt.Printf("%-24s %-8s %-10s %-28s %s\n", "ID", "ACTIVE", "TRIGGER", "SOURCE", "TARGETS")
		fmt.Println(strings.Repeat("-", 90))
		for _, j := range jobs {
			fmt.Printf("%-24s %-8t %-10s %-28s %s\n", j.ID, j.Active, j.TriggerType, j.SourceFolderID, strings.Join(j.TargetFolderNames, ","))
		}
		return nil
	},
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace a job from a JSON document (--file, or stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var r io.Reader = os.Stdin
		if jobsFile != "" && jobsFile != "-" {
			f, err := os.Open(jobsFile)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		var job entity.Job
		if err := json.NewDecoder(r).Decode(&job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
		if err := job.Validate(); err != nil {
			return err
		}

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		repo := repository.NewJobRepository(db, logger)

		if _, err := repo.Get(ctx, job.ID); err == nil {
			if err := repo.Update(ctx, job); err != nil {
				return err
			}
			fmt.Printf("Updated job %s\n", job.ID)
			return nil
		}
		if err := repo.Insert(ctx, job); err != nil {
			return err
		}
		fmt.Printf("Created job %s\n", job.ID)
		return nil
	},
}

func init() {
	jobsAddCmd.Flags().StringVarP(&jobsFile, "file", "f", "", "path to the job JSON (default stdin)")
	jobsCmd.AddCommand(jobsAddCmd)
}
