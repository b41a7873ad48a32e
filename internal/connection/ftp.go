package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"
)

const (
	transportFTP = "ftp"
	ftpTimeout   = 30 * time.Second

	// Layout of UnixFile.Mtime, shared with z/OSMF.
	mtimeLayout = "2006-01-02T15:04:05"
)

// FTPConnection serves USS files over a regular FTP session and jobs over
// a second control connection in JES mode.
type FTPConnection struct {
	host     string
	port     int
	user     string
	password string
	opts     options
	log      *zap.Logger
	conn     *ftp.ServerConn
}

func NewFTPConnection(host string, port int, user, password string, opts ...Option) *FTPConnection {
	o := buildOptions(opts)
	return &FTPConnection{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		opts:     o,
		log:      o.logger.With(zap.String("transport", transportFTP)),
	}
}

func (f *FTPConnection) Connect() error {
	addr := fmt.Sprintf("%s:%d", f.host, f.port)

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.opts.timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := conn.Login(f.user, f.password); err != nil {
		conn.Quit()
		return fmt.Errorf("login failed: %w", err)
	}

	f.conn = conn
	return nil
}

func (f *FTPConnection) Close() error {
	if f.conn != nil {
		if err := f.conn.Quit(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		f.conn = nil
	}
	return nil
}

// observe checks ctx and returns a func that records the outcome of op.
func (f *FTPConnection) observe(ctx context.Context, op string) (func(error), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	return func(err error) {
		code := 200
		if err != nil {
			code = 0
			var re *RequestError
			if errors.As(err, &re) {
				code = re.StatusCode
			}
		}
		elapsed := time.Since(start)
		f.opts.metrics.Observe(transportFTP, op, code, elapsed)
		f.log.Debug("request", zap.String("op", op), zap.Int("status", code), zap.Duration("duration", elapsed))
	}, nil
}

// begin is observe for operations that need the file session.
func (f *FTPConnection) begin(ctx context.Context, op string) (func(error), error) {
	if f.conn == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotConnected
	}
	return f.observe(ctx, op)
}

func (f *FTPConnection) setType(binary bool) error {
	t := ftp.TransferTypeASCII
	if binary {
		t = ftp.TransferTypeBinary
	}
	if err := f.conn.Type(t); err != nil {
		return fmt.Errorf("failed to set transfer type: %w", err)
	}
	return nil
}

func (f *FTPConnection) retrieve(path string, binary bool) ([]byte, error) {
	// ASCII mode makes the server convert EBCDIC to ASCII
	if err := f.setType(binary); err != nil {
		return nil, err
	}

	reader, err := f.conn.Retr(path)
	if err != nil {
		return nil, ftpError(fmt.Sprintf("failed to read %s", path), err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return buf.Bytes(), nil
}

// --- USS operations ---

func (f *FTPConnection) ListFiles(ctx context.Context, path string, depth int) (files []UnixFile, err error) {
	done, err := f.begin(ctx, "list files")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	entries, err := f.conn.List(path)
	if err != nil {
		return nil, ftpError(fmt.Sprintf("failed to list %s", path), err)
	}
	return convertEntries(entries), nil
}

// convertEntries maps parsed FTP LIST rows to UnixFile. The FTP parser
// keeps the entry type but not the permission bits, so the mode carries
// only the type character.
func convertEntries(entries []*ftp.Entry) []UnixFile {
	files := make([]UnixFile, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		typeChar := "-"
		switch e.Type {
		case ftp.EntryTypeFolder:
			typeChar = "d"
		case ftp.EntryTypeLink:
			typeChar = "l"
		}
		size := int64(e.Size)
		uf := UnixFile{
			Name: StringPtr(e.Name),
			Mode: StringPtr(typeChar + "---------"),
			Size: &size,
		}
		if !e.Time.IsZero() {
			uf.Mtime = StringPtr(e.Time.Local().Format(mtimeLayout))
		}
		if e.Target != "" {
			uf.Target = StringPtr(e.Target)
		}
		files = append(files, uf)
	}
	return files
}

func (f *FTPConnection) ReadFile(ctx context.Context, path string, binary bool) (data []byte, err error) {
	done, err := f.begin(ctx, "read file")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	return f.retrieve(path, binary)
}

// StatFile asks for the file size. z/OS answers 550 for missing paths and
// for directories.
func (f *FTPConnection) StatFile(ctx context.Context, path string) (err error) {
	done, err := f.begin(ctx, "stat file")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if _, err := f.conn.FileSize(path); err != nil {
		return ftpError(fmt.Sprintf("failed to stat %s", path), err)
	}
	return nil
}

// CreateFile ignores mode: FTP has no portable chmod.
func (f *FTPConnection) CreateFile(ctx context.Context, path string, typ CreateType, mode string) (err error) {
	done, err := f.begin(ctx, "create file")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if typ == CreateDir {
		if err := f.conn.MakeDir(path); err != nil {
			return ftpError(fmt.Sprintf("failed to create %s", path), err)
		}
		return nil
	}
	if err := f.conn.Stor(path, bytes.NewReader(nil)); err != nil {
		return ftpError(fmt.Sprintf("failed to create %s", path), err)
	}
	return nil
}

func (f *FTPConnection) DeleteFile(ctx context.Context, path string, recursive bool) (err error) {
	done, err := f.begin(ctx, "delete file")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	delErr := f.conn.Delete(path)
	if delErr == nil {
		return nil
	}
	if recursive {
		delErr = f.conn.RemoveDirRecur(path)
	} else {
		delErr = f.conn.RemoveDir(path)
	}
	if delErr != nil {
		return ftpError(fmt.Sprintf("failed to delete %s", path), delErr)
	}
	return nil
}

func (f *FTPConnection) WriteFile(ctx context.Context, path string, content []byte, binary bool) (err error) {
	done, err := f.begin(ctx, "write file")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	if err := f.setType(binary); err != nil {
		return err
	}
	if err := f.conn.Stor(path, bytes.NewReader(content)); err != nil {
		return ftpError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func (f *FTPConnection) ChangeMode(ctx context.Context, path, mode string) error {
	return fmt.Errorf("chmod %s: %w", path, ErrUnsupported)
}

// --- Job operations ---
//
// Each call opens its own JES control connection.

func (f *FTPConnection) jes() (*jesClient, error) {
	return newJESClient(f.host, f.port, f.user, f.password, f.opts.timeout)
}

func (f *FTPConnection) SubmitJCL(ctx context.Context, jcl string) (job *Job, err error) {
	done, err := f.observe(ctx, "submit JCL")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	return f.submit(jcl)
}

func (f *FTPConnection) submit(jcl string) (*Job, error) {
	jes, err := f.jes()
	if err != nil {
		return nil, err
	}
	defer jes.close()

	jobID, err := jes.submit([]byte(jcl))
	if err != nil {
		return nil, err
	}

	job := &Job{JobID: StringPtr(jobID), Owner: StringPtr(strings.ToUpper(f.user))}
	if name := jobNameFromJCL(jcl); name != "" {
		job.JobName = StringPtr(name)
	}
	return job, nil
}

// SubmitDataSet downloads the member over the file session, then submits
// its text through JES.
func (f *FTPConnection) SubmitDataSet(ctx context.Context, dsn string) (job *Job, err error) {
	done, err := f.begin(ctx, "submit data set")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	jcl, err := f.retrieve(fmt.Sprintf("'%s'", strings.Trim(dsn, "'")), false)
	if err != nil {
		return nil, err
	}
	return f.submit(string(jcl))
}

func (f *FTPConnection) GetJob(ctx context.Context, jobID string) (job *Job, err error) {
	done, err := f.observe(ctx, "get job")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	jobs, err := f.listJobs(JobQuery{Owner: "*", JobID: jobID})
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if deref(j.JobID) == jobID {
			return &j, nil
		}
	}
	return nil, &RequestError{Op: "get job", Message: fmt.Sprintf("job %s not found", jobID), Err: ErrNotFound}
}

func (f *FTPConnection) ListJobs(ctx context.Context, q JobQuery) (jobs []Job, err error) {
	done, err := f.observe(ctx, "list jobs")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	return f.listJobs(q)
}

func (f *FTPConnection) listJobs(q JobQuery) ([]Job, error) {
	jes, err := f.jes()
	if err != nil {
		return nil, err
	}
	defer jes.close()

	if q.Owner == "" {
		q.Owner = f.user
	}
	if q.Prefix == "" {
		q.Prefix = "*"
	}
	if err := jes.setFilter(q.Owner, q.Prefix); err != nil {
		return nil, err
	}

	jobs, err := jes.listJobs()
	if err != nil {
		return nil, err
	}
	if q.JobID == "" {
		return jobs, nil
	}
	filtered := jobs[:0]
	for _, j := range jobs {
		if deref(j.JobID) == q.JobID {
			filtered = append(filtered, j)
		}
	}
	return filtered, nil
}

func (f *FTPConnection) ListSpoolFiles(ctx context.Context, job Job) (files []SpoolFile, err error) {
	done, err := f.observe(ctx, "list spool files")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	jes, err := f.jes()
	if err != nil {
		return nil, err
	}
	defer jes.close()

	if err := jes.setFilter(deref(job.Owner), "*"); err != nil {
		return nil, err
	}
	return jes.listSpoolFiles(deref(job.JobID))
}

// ReadSpool retrieves JOBID.n, the locator form produced by ListSpoolFiles.
func (f *FTPConnection) ReadSpool(ctx context.Context, locator string) (out string, err error) {
	done, err := f.observe(ctx, "read spool")
	if err != nil {
		return "", err
	}
	defer func() { done(err) }()

	jes, err := f.jes()
	if err != nil {
		return "", err
	}
	defer jes.close()

	if err := jes.setFilter("*", "*"); err != nil {
		return "", err
	}
	data, err := jes.retrieve(locator)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FTPConnection) CancelJob(ctx context.Context, job Job) error {
	return fmt.Errorf("cancel %s: %w", deref(job.JobID), ErrUnsupported)
}

func (f *FTPConnection) DeleteJob(ctx context.Context, job Job) (err error) {
	done, err := f.observe(ctx, "delete job")
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	jes, err := f.jes()
	if err != nil {
		return err
	}
	defer jes.close()

	if err := jes.setFilter("*", "*"); err != nil {
		return err
	}
	return jes.delete(deref(job.JobID))
}

// jobNameFromJCL returns NAME from the first "//NAME JOB" card.
func jobNameFromJCL(jcl string) string {
	for _, line := range strings.Split(jcl, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasPrefix(fields[0], "//") && fields[1] == "JOB" {
			return strings.TrimPrefix(fields[0], "//")
		}
	}
	return ""
}

var _ Connection = (*FTPConnection)(nil)
