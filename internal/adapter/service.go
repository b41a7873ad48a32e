package adapter

import (
	"context"

	"zadapt/internal/connection"
)

// JobService is what JobAdapter needs from the remote job service.
type JobService interface {
	SubmitJCL(ctx context.Context, jcl string) (*connection.Job, error)
	SubmitDataSet(ctx context.Context, dsn string) (*connection.Job, error)
	GetJob(ctx context.Context, jobID string) (*connection.Job, error)
	ListJobs(ctx context.Context, q connection.JobQuery) ([]connection.Job, error)
	ListSpoolFiles(ctx context.Context, job connection.Job) ([]connection.SpoolFile, error)
	ReadSpool(ctx context.Context, locator string) (string, error)
	CancelJob(ctx context.Context, job connection.Job) error
	DeleteJob(ctx context.Context, job connection.Job) error
}

// FileService is what USSAdapter needs from the remote file service.
// StatFile must report a missing path with an error satisfying
// connection.IsNotFound.
type FileService interface {
	ListFiles(ctx context.Context, path string, depth int) ([]connection.UnixFile, error)
	ReadFile(ctx context.Context, path string, binary bool) ([]byte, error)
	StatFile(ctx context.Context, path string) error
	CreateFile(ctx context.Context, path string, typ connection.CreateType, mode string) error
	DeleteFile(ctx context.Context, path string, recursive bool) error
	WriteFile(ctx context.Context, path string, content []byte, binary bool) error
	ChangeMode(ctx context.Context, path, mode string) error
}
