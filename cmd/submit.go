package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"zadapt/internal/adapter"

	"github.com/spf13/cobra"
)

const pollInterval = 2 * time.Second

var submitWait bool

var submitCmd = &cobra.Command{
	Use:   "submit <dataset(member)> | <local-file>",
	Short: "Submit JCL for execution",
	Long: `Submit JCL from a local file or a PDS member.

Examples:
  zadapt submit build.jcl
  zadapt submit 'IBMUSER.JCL(BUILD)' --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().BoolVarP(&submitWait, "wait", "w", false, "wait for job to complete")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	_, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	jobs := newJobAdapter(conn)
	source := args[0]

	var sub adapter.SubmittedJob
	if f, openErr := os.Open(source); openErr == nil {
		defer f.Close()
		sub, err = jobs.SubmitJob(ctx, f)
	} else {
		dataset, member, dsnErr := parseDSN(source)
		if dsnErr != nil {
			return fmt.Errorf("%s is neither a readable file nor DATASET(MEMBER)", source)
		}
		sub, err = jobs.SubmitDataSetMember(ctx, dataset, member)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Job %s(%s) submitted\n", sub.Name, sub.ID)

	if !submitWait {
		return nil
	}

	return waitForJob(ctx, jobs, sub.ID)
}

func waitForJob(ctx context.Context, jobs *adapter.JobAdapter, jobID string) error {
	fmt.Printf("Waiting for %s...", jobID)

	for {
		job, err := jobs.GetJob(ctx, jobID)
		if err != nil {
			fmt.Println()
			return err
		}

		if job.Status == adapter.StatusOutput {
			fmt.Println()
			return reportCompletion(job)
		}

		fmt.Print(".")
		select {
		case <-ctx.Done():
			fmt.Println()
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// reportCompletion prints the outcome and turns ABEND and JCL errors into
// a failing exit.
func reportCompletion(job adapter.JobInfo) error {
	rc := strings.TrimSpace(job.Completion.String() + " " + job.ErrorCode)
	fmt.Printf("Job %s completed: %s\n", job.ID, rc)

	switch job.Completion {
	case adapter.CompletionAbend, adapter.CompletionJCLError:
		return fmt.Errorf("job ended with %s", rc)
	}
	return nil
}

func parseDSN(dsn string) (dataset, member string, err error) {
	dsn = trimQuotes(dsn)

	start := strings.IndexByte(dsn, '(')
	end := strings.LastIndexByte(dsn, ')')

	if start == -1 || end == -1 || end <= start+1 {
		return "", "", fmt.Errorf("invalid dataset format: %s (expected DATASET(MEMBER))", dsn)
	}

	dataset = dsn[:start]
	member = dsn[start+1 : end]
	return dataset, member, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
