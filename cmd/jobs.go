package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"zadapt/internal/adapter"

	"github.com/spf13/cobra"
)

var (
	jobsOwner       string
	jobsPrefix      string
	jobsStatus      string
	jobsOutputSpool bool
	jobsSteps       bool
	jobsStep        string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [jobid]",
	Short: "List jobs or show job status/output",
	Long: `List jobs for the current user, or show status, steps or spool
output of a specific job.

Examples:
  zadapt jobs                          # jobs of the profile owner
  zadapt jobs --owner '*' --status ACTIVE
  zadapt jobs JOB00042                 # status and completion
  zadapt jobs JOB00042 --steps         # spool files
  zadapt jobs --step JOB00042.2        # one spool file
  zadapt jobs JOB00042 --output-spool  # all spool files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <jobid>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return modifyJob(cmd, args[0], "Cancelled", (*adapter.JobAdapter).CancelJob)
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <jobid>",
	Short: "Purge a job and its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return modifyJob(cmd, args[0], "Deleted", (*adapter.JobAdapter).DeleteJob)
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsCancelCmd, jobsDeleteCmd)

	jobsCmd.Flags().StringVar(&jobsOwner, "owner", "", "filter by owner (default: profile owner, use '*' for all)")
	jobsCmd.Flags().StringVar(&jobsPrefix, "prefix", "*", "filter by job name prefix")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", string(adapter.StatusAll), "filter by status: INPUT, ACTIVE, OUTPUT, ALL")
	jobsCmd.Flags().BoolVar(&jobsOutputSpool, "output-spool", false, "print all spool output (requires jobid)")
	jobsCmd.Flags().BoolVar(&jobsSteps, "steps", false, "list spool files (requires jobid)")
	jobsCmd.Flags().StringVar(&jobsStep, "step", "", "print one spool file, given as <jobid>.<id>")
}

func runJobs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && (jobsOutputSpool || jobsSteps) {
		return fmt.Errorf("--output-spool and --steps require a jobid")
	}
	status, err := adapter.ParseJobStatus(jobsStatus)
	if err != nil {
		return err
	}

	profile, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	jobs := newJobAdapter(conn)

	switch {
	case jobsStep != "":
		out, err := jobs.GetJobStepSpool(ctx, jobsStep)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err

	case len(args) == 0:
		owner := jobsOwner
		if owner == "" {
			owner = profile.JobOwner()
		}
		list, err := jobs.ListJobs(ctx, jobsPrefix, status, owner)
		if err != nil {
			return err
		}
		if len(list) == 0 && isTable() {
			fmt.Println("No jobs found")
			return nil
		}
		return render(os.Stdout, list, func(tw *tabwriter.Writer) { printJobList(tw, list) })

	case jobsOutputSpool:
		out, err := jobs.GetJobSpool(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err

	case jobsSteps:
		steps, err := jobs.GetJobSteps(ctx, args[0])
		if err != nil {
			return err
		}
		return render(os.Stdout, steps, func(tw *tabwriter.Writer) { printSteps(tw, steps) })

	default:
		job, err := jobs.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		return renderOne(os.Stdout, job, func(tw *tabwriter.Writer) { printJobDetail(tw, job) })
	}
}

func modifyJob(cmd *cobra.Command, jobID, verb string, op func(*adapter.JobAdapter, context.Context, string) error) error {
	_, conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := op(newJobAdapter(conn), cmd.Context(), jobID); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", verb, jobID)
	return nil
}

func isTable() bool {
	f, err := outputFormat()
	return err == nil && f == formatTable
}

func printJobList(tw *tabwriter.Writer, jobs []adapter.JobInfo) {
	fmt.Fprintln(tw, "JOBNAME\tJOBID\tOWNER\tSTATUS\tCLASS\tCOMPLETION\tRC")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", j.Name, j.ID, j.Owner, j.Status, j.Class, j.Completion, j.ErrorCode)
	}
}

func printSteps(tw *tabwriter.Writer, steps []adapter.SpoolStep) {
	fmt.Fprintln(tw, "KEY\tDDNAME\tSTEPNAME")
	for _, s := range steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.DSName, s.DDName, s.StepName)
	}
}

func printJobDetail(tw *tabwriter.Writer, job adapter.JobInfo) {
	fmt.Fprintf(tw, "Job ID:\t%s\n", job.ID)
	fmt.Fprintf(tw, "Job Name:\t%s\n", job.Name)
	fmt.Fprintf(tw, "Owner:\t%s\n", job.Owner)
	fmt.Fprintf(tw, "Status:\t%s\n", job.Status)
	fmt.Fprintf(tw, "Class:\t%s\n", job.Class)
	fmt.Fprintf(tw, "Completion:\t%s\n", job.Completion)
	if job.ErrorCode != "" {
		fmt.Fprintf(tw, "Return:\t%s\n", strings.TrimSpace(job.ErrorCode))
	}
}
