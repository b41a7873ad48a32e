package adapter

import (
	"context"
	"errors"

	"zadapt/internal/connection"
)

var errBoom = errors.New("boom")

type fakeJobs struct {
	jobs     map[string]*connection.Job
	list     []connection.Job
	spool    map[string][]connection.SpoolFile
	contents map[string]string
	err      error

	submitted string
	dataSet   string
	query     connection.JobQuery
	cancelled []string
	deleted   []string
	reads     []string
}

func (f *fakeJobs) SubmitJCL(_ context.Context, jcl string) (*connection.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = jcl
	return &connection.Job{
		JobName: connection.StringPtr("MYJOB"),
		JobID:   connection.StringPtr("JOB00042"),
		Owner:   connection.StringPtr("IBMUSER"),
	}, nil
}

func (f *fakeJobs) SubmitDataSet(_ context.Context, dsn string) (*connection.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.dataSet = dsn
	return &connection.Job{JobName: connection.StringPtr("DSJOB"), JobID: connection.StringPtr("JOB00043")}, nil
}

func (f *fakeJobs) GetJob(_ context.Context, jobID string) (*connection.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, &connection.RequestError{Op: "get job", StatusCode: 404, Err: connection.ErrNotFound}
	}
	return job, nil
}

func (f *fakeJobs) ListJobs(_ context.Context, q connection.JobQuery) ([]connection.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.query = q
	return f.list, nil
}

func (f *fakeJobs) ListSpoolFiles(_ context.Context, job connection.Job) ([]connection.SpoolFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.spool[*job.JobID], nil
}

func (f *fakeJobs) ReadSpool(_ context.Context, locator string) (string, error) {
	f.reads = append(f.reads, locator)
	return f.contents[locator], nil
}

func (f *fakeJobs) CancelJob(_ context.Context, job connection.Job) error {
	f.cancelled = append(f.cancelled, *job.JobID)
	return nil
}

func (f *fakeJobs) DeleteJob(_ context.Context, job connection.Job) error {
	f.deleted = append(f.deleted, *job.JobID)
	return nil
}

type fakeFiles struct {
	items   map[string][]connection.UnixFile
	stat    map[string]error // path -> StatFile result, missing means not found
	content map[string][]byte
	err     error

	listed  []string
	stats   []string
	created []string
	mode    string
	deleted []string
	binary  bool
	chmod   string
}

func (f *fakeFiles) ListFiles(_ context.Context, path string, _ int) ([]connection.UnixFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listed = append(f.listed, path)
	return f.items[path], nil
}

func (f *fakeFiles) ReadFile(_ context.Context, path string, _ bool) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.content[path], nil
}

func (f *fakeFiles) StatFile(_ context.Context, path string) error {
	f.stats = append(f.stats, path)
	if err, ok := f.stat[path]; ok {
		return err
	}
	return &connection.RequestError{Op: "stat", StatusCode: 404, Err: connection.ErrNotFound}
}

func (f *fakeFiles) CreateFile(_ context.Context, path string, _ connection.CreateType, mode string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, path)
	f.mode = mode
	return nil
}

func (f *fakeFiles) DeleteFile(_ context.Context, path string, recursive bool) error {
	if f.err != nil {
		return f.err
	}
	if recursive {
		f.deleted = append(f.deleted, path)
	}
	return nil
}

func (f *fakeFiles) WriteFile(_ context.Context, path string, content []byte, binary bool) error {
	if f.err != nil {
		return f.err
	}
	if f.content == nil {
		f.content = map[string][]byte{}
	}
	f.content[path] = content
	f.binary = binary
	return nil
}

func (f *fakeFiles) ChangeMode(_ context.Context, path, mode string) error {
	if f.err != nil {
		return f.err
	}
	f.chmod = path + " " + mode
	return nil
}
