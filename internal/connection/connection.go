package connection

import "context"

// Job is a job snapshot as reported by the remote job service.
// Pointer fields are nil when the service omitted them.
type Job struct {
	JobID     *string `json:"jobid"`
	JobName   *string `json:"jobname"`
	Owner     *string `json:"owner"`
	Status    *string `json:"status"` // INPUT, ACTIVE, OUTPUT
	RetCode   *string `json:"retcode"` // CC 0000, ABEND S806, JCL ERROR, ...
	Class     *string `json:"class"`
	Type      string  `json:"type"`
	Subsystem string  `json:"subsystem"`
	URL       string  `json:"url"`
	FilesURL  string  `json:"files-url"`
}

// SpoolFile describes one output dataset of a job.
type SpoolFile struct {
	JobID       *string `json:"jobid"`
	JobName     *string `json:"jobname"`
	ID          int64   `json:"id"`
	DDName      *string `json:"ddname"`
	StepName    *string `json:"stepname"`
	ProcStep    *string `json:"procstep"`
	Class       string  `json:"class"`
	RecordsURL  *string `json:"records-url"` // locator passed to ReadSpool
	ByteCount   int64   `json:"byte-count"`
	RecordCount int64   `json:"record-count"`
}

// UnixFile is one row of a USS directory listing.
type UnixFile struct {
	Name   *string `json:"name"`
	Mode   *string `json:"mode"` // drwxr-xr-x, -rw-r--r--, lrwxrwxrwx
	Size   *int64  `json:"size"`
	UID    int     `json:"uid"`
	User   *string `json:"user"`
	GID    int     `json:"gid"`
	Group  *string `json:"group"`
	Mtime  *string `json:"mtime"` // 2024-04-12T10:00:00
	Target *string `json:"target"`
}

type JobQuery struct {
	Owner   string
	Prefix  string
	JobID   string
	MaxJobs int
}

type CreateType string

const (
	CreateFile CreateType = "file"
	CreateDir  CreateType = "dir"
)

// JobService is the remote side of job operations.
type JobService interface {
	SubmitJCL(ctx context.Context, jcl string) (*Job, error)
	SubmitDataSet(ctx context.Context, dsn string) (*Job, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListJobs(ctx context.Context, q JobQuery) ([]Job, error)
	ListSpoolFiles(ctx context.Context, job Job) ([]SpoolFile, error)
	ReadSpool(ctx context.Context, locator string) (string, error)
	CancelJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, job Job) error
}

// FileService is the remote side of USS operations.
type FileService interface {
	ListFiles(ctx context.Context, path string, depth int) ([]UnixFile, error)
	ReadFile(ctx context.Context, path string, binary bool) ([]byte, error)
	// StatFile returns an error satisfying IsNotFound when path does not
	// resolve to a readable file.
	StatFile(ctx context.Context, path string) error
	CreateFile(ctx context.Context, path string, typ CreateType, mode string) error
	DeleteFile(ctx context.Context, path string, recursive bool) error
	WriteFile(ctx context.Context, path string, content []byte, binary bool) error
	ChangeMode(ctx context.Context, path, mode string) error
}

// Connection is implemented by all transport protocols (z/OSMF, FTP).
type Connection interface {
	Connect() error
	Close() error

	JobService
	FileService
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
