package adapter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"zadapt/internal/connection"
)

// JobStatus is the JES queue a job is on. StatusAll only filters.
type JobStatus string

const (
	StatusInput  JobStatus = "INPUT"
	StatusActive JobStatus = "ACTIVE"
	StatusOutput JobStatus = "OUTPUT"
	StatusAll    JobStatus = "ALL"
)

// ParseJobStatus accepts a status name in any case.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusInput, StatusActive, StatusOutput, StatusAll:
		return st, nil
	case "":
		return StatusAll, nil
	default:
		return "", fmt.Errorf("invalid job status %q (want INPUT, ACTIVE, OUTPUT or ALL)", s)
	}
}

// Matches reports whether a job in status s passes the filter f.
func (f JobStatus) Matches(s JobStatus) bool {
	return f == StatusAll || f == s
}

// JobInfo is one job as the host sees it.
type JobInfo struct {
	Name                string
	ID                  string
	Owner               string
	Status              JobStatus
	Class               string
	Completion          Completion
	ErrorCode           string
	SpoolFilesAvailable bool
	HasSpoolFiles       bool
}

func (j JobInfo) Attributes() *Response {
	r := &Response{}
	r.Add(KeyName, j.Name)
	r.Add(KeyJobID, j.ID)
	r.Add(KeyJobUser, j.Owner)
	r.Add(KeyJobStatus, string(j.Status))
	r.Add(KeyJobClass, j.Class)
	r.Add(KeyJobSpoolAvailable, j.SpoolFilesAvailable)
	r.Add(KeyJobHasSpoolFiles, j.HasSpoolFiles)
	r.Add(KeyJobErrorCode, j.ErrorCode)
	r.Add(KeyJobCompletion, j.Completion)
	return r
}

// SubmittedJob identifies a job right after submission.
type SubmittedJob struct {
	Name  string
	ID    string
	Owner string
}

func (s SubmittedJob) Attributes() *Response {
	r := &Response{}
	r.Add(KeyName, s.Name)
	r.Add(KeyJobID, s.ID)
	r.Add(KeyJobUser, s.Owner)
	return r
}

// SpoolStep is one spool file of a job.
type SpoolStep struct {
	StepName            string // <jobid>.<ddname>
	JobID               string
	DDName              string
	DSName              string // <jobid>.<sequence>, the key GetJobStepSpool takes
	SpoolFilesAvailable bool
}

func (s SpoolStep) Attributes() *Response {
	r := &Response{}
	r.Add(KeyJobStepName, s.StepName)
	r.Add(KeyJobID, s.JobID)
	r.Add(KeyJobDDName, s.DDName)
	r.Add(KeyJobDSName, s.DSName)
	r.Add(KeyJobSpoolAvailable, s.SpoolFilesAvailable)
	return r
}

// JobAdapter translates job requests into calls on a JobService. It keeps
// no state between calls.
type JobAdapter struct {
	jobs JobService
	log  *zap.Logger
}

func NewJobAdapter(jobs JobService, log *zap.Logger) *JobAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &JobAdapter{jobs: jobs, log: log.Named("jobs")}
}

func (a *JobAdapter) GetJob(ctx context.Context, jobID string) (JobInfo, error) {
	a.log.Debug("getJob", zap.String("job_id", jobID))

	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return JobInfo{}, connectionError("get job", jobID, err)
	}
	return convertJob(*job), nil
}

// ListJobs returns the jobs of owner whose name matches prefix and whose
// status passes the filter. Jobs without a name are dropped.
func (a *JobAdapter) ListJobs(ctx context.Context, prefix string, status JobStatus, owner string) ([]JobInfo, error) {
	a.log.Debug("getJobs",
		zap.String("prefix", prefix),
		zap.String("status", string(status)),
		zap.String("owner", owner))

	jobs, err := a.jobs.ListJobs(ctx, connection.JobQuery{Owner: owner, Prefix: prefix})
	if err != nil {
		return nil, connectionError("list jobs", prefix, err)
	}

	result := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		if _, ok := present(job.JobName); !ok {
			continue
		}
		info := convertJob(job)
		if status.Matches(info.Status) {
			result = append(result, info)
		}
	}
	return result, nil
}

func (a *JobAdapter) SubmitJob(ctx context.Context, r io.Reader) (SubmittedJob, error) {
	a.log.Debug("submitJob")

	jcl, err := io.ReadAll(r)
	if err != nil {
		return SubmittedJob{}, connectionError("submit job", "", fmt.Errorf("read JCL: %w", err))
	}

	job, err := a.jobs.SubmitJCL(ctx, string(jcl))
	if err != nil {
		return SubmittedJob{}, connectionError("submit job", "", err)
	}
	a.log.Debug("jobSubmit", zap.String("job_id", orUnknown(job.JobID)))
	return convertSubmitted(*job), nil
}

func (a *JobAdapter) SubmitDataSetMember(ctx context.Context, dataSet, member string) (SubmittedJob, error) {
	dsn := fmt.Sprintf("%s(%s)", strings.Trim(dataSet, "'"), member)
	a.log.Debug("submitDataSetMember", zap.String("dsn", dsn))

	job, err := a.jobs.SubmitDataSet(ctx, dsn)
	if err != nil {
		return SubmittedJob{}, connectionError("submit data set", dsn, err)
	}
	a.log.Debug("jobSubmit", zap.String("job_id", orUnknown(job.JobID)))
	return convertSubmitted(*job), nil
}

func (a *JobAdapter) GetJobSteps(ctx context.Context, jobID string) ([]SpoolStep, error) {
	a.log.Debug("getJobSteps", zap.String("job_id", jobID))

	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, connectionError("get job steps", jobID, err)
	}
	files, err := a.jobs.ListSpoolFiles(ctx, *job)
	if err != nil {
		return nil, connectionError("get job steps", jobID, err)
	}

	steps := make([]SpoolStep, 0, len(files))
	for _, f := range files {
		id := orUnknown(f.JobID)
		dd := orUnknown(f.DDName)
		steps = append(steps, SpoolStep{
			StepName:            id + "." + dd,
			JobID:               id,
			DDName:              dd,
			DSName:              fmt.Sprintf("%s.%d", id, f.ID),
			SpoolFilesAvailable: true,
		})
	}
	return steps, nil
}

// GetJobStepSpool downloads the spool file named by key, a SpoolStep.DSName
// such as "JOB00042.2". An unknown sequence number yields empty output.
func (a *JobAdapter) GetJobStepSpool(ctx context.Context, key string) ([]byte, error) {
	const op = "get job step spool"
	a.log.Debug("getJobStepSpool", zap.String("key", key))

	jobID, seqText, ok := strings.Cut(key, ".")
	if !ok || jobID == "" {
		return nil, misuse(op, key, ErrInvalidStepKey)
	}
	seq, err := strconv.ParseInt(seqText, 10, 64)
	if err != nil {
		return nil, misuse(op, key, ErrInvalidStepKey)
	}

	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, connectionError(op, key, err)
	}
	files, err := a.jobs.ListSpoolFiles(ctx, *job)
	if err != nil {
		return nil, connectionError(op, key, err)
	}

	for _, f := range files {
		if f.ID != seq {
			continue
		}
		out, err := a.download(ctx, op, key, f)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return []byte{}, nil
}

// GetJobSpool downloads every spool file of the job, in spool order.
func (a *JobAdapter) GetJobSpool(ctx context.Context, jobID string) ([]byte, error) {
	const op = "get job spool"
	a.log.Debug("getJobSpool", zap.String("job_id", jobID))

	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, connectionError(op, jobID, err)
	}
	files, err := a.jobs.ListSpoolFiles(ctx, *job)
	if err != nil {
		return nil, connectionError(op, jobID, err)
	}

	var sb strings.Builder
	for _, f := range files {
		out, err := a.download(ctx, op, jobID, f)
		if err != nil {
			return nil, err
		}
		sb.WriteString(out)
	}
	return []byte(sb.String()), nil
}

func (a *JobAdapter) download(ctx context.Context, op, subject string, f connection.SpoolFile) (string, error) {
	locator, ok := present(f.RecordsURL)
	if !ok {
		return "", misuse(op, fmt.Sprintf("%s (spool file %d)", subject, f.ID), ErrMissingLocator)
	}
	out, err := a.jobs.ReadSpool(ctx, locator)
	if err != nil {
		return "", connectionError(op, subject, err)
	}
	return out, nil
}

func (a *JobAdapter) CancelJob(ctx context.Context, jobID string) error {
	const op = "cancel job"
	a.log.Debug("cancelJob", zap.String("job_id", jobID))

	job, err := a.lookupForModify(ctx, op, jobID)
	if err != nil {
		return err
	}
	if err := a.jobs.CancelJob(ctx, *job); err != nil {
		return connectionError(op, jobID, err)
	}
	a.log.Debug("jobCancel", zap.String("job_id", jobID))
	return nil
}

func (a *JobAdapter) DeleteJob(ctx context.Context, jobID string) error {
	const op = "delete job"
	a.log.Debug("deleteJob", zap.String("job_id", jobID))

	job, err := a.lookupForModify(ctx, op, jobID)
	if err != nil {
		return err
	}
	if err := a.jobs.DeleteJob(ctx, *job); err != nil {
		return connectionError(op, jobID, err)
	}
	a.log.Debug("jobDelete", zap.String("job_id", jobID))
	return nil
}

// lookupForModify fetches the snapshot a cancel or delete is addressed to.
// Both need the job name and id to build the request.
func (a *JobAdapter) lookupForModify(ctx context.Context, op, jobID string) (*connection.Job, error) {
	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, connectionError(op, jobID, err)
	}
	if _, ok := present(job.JobName); !ok {
		return nil, misuse(op, jobID, ErrMissingJobName)
	}
	if _, ok := present(job.JobID); !ok {
		return nil, misuse(op, jobID, ErrMissingJobID)
	}
	return job, nil
}

func convertJob(job connection.Job) JobInfo {
	completion, errorCode := Classify(job.RetCode)
	return JobInfo{
		Name:                orUnknown(job.JobName),
		ID:                  orUnknown(job.JobID),
		Owner:               orUnknown(job.Owner),
		Status:              JobStatus(orUnknown(job.Status)),
		Class:               orUnknown(job.Class),
		Completion:          completion,
		ErrorCode:           errorCode,
		SpoolFilesAvailable: true,
		HasSpoolFiles:       true,
	}
}

func convertSubmitted(job connection.Job) SubmittedJob {
	return SubmittedJob{
		Name:  orUnknown(job.JobName),
		ID:    orUnknown(job.JobID),
		Owner: orUnknown(job.Owner),
	}
}
