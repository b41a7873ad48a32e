package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const transportZOSMF = "zosmf"

type ZOSMFConnection struct {
	host      string
	port      int
	user      string
	password  string
	opts      options
	client    *http.Client
	transport *http.Transport
	baseURL   string
	limiter   *rate.Limiter
	log       *zap.Logger
}

func NewZOSMFConnection(host string, port int, user, password string, opts ...Option) *ZOSMFConnection {
	o := buildOptions(opts)
	z := &ZOSMFConnection{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		opts:     o,
		log:      o.logger.With(zap.String("transport", transportZOSMF)),
	}
	if o.rateLimit > 0 {
		z.limiter = rate.NewLimiter(rate.Limit(o.rateLimit), 1)
	}
	return z
}

func (z *ZOSMFConnection) Connect() error {
	z.baseURL = z.opts.baseURL
	if z.baseURL == "" {
		z.baseURL = fmt.Sprintf("https://%s:%d", z.host, z.port)
	}
	z.baseURL = strings.TrimSuffix(z.baseURL, "/")
	z.transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: z.opts.insecure,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	z.client = &http.Client{
		Timeout:   z.opts.timeout,
		Transport: z.transport,
	}
	return nil
}

func (z *ZOSMFConnection) Close() error {
	if z.transport != nil {
		z.transport.CloseIdleConnections()
	}
	z.client = nil
	z.transport = nil
	return nil
}

// doRequest sends one request. path is either relative to the base URL or
// an absolute URL handed out by z/OSMF itself (records-url, files-url).
func (z *ZOSMFConnection) doRequest(ctx context.Context, op, method, path string, body io.Reader, extraHeaders ...string) (*http.Response, error) {
	if z.client == nil {
		return nil, ErrNotConnected
	}
	if z.limiter != nil {
		if err := z.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = z.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.SetBasicAuth(z.user, z.password)
	req.Header.Set("X-CSRF-ZOSMF-HEADER", "*")
	req.Header.Set("X-Request-ID", requestID)

	for i := 0; i+1 < len(extraHeaders); i += 2 {
		req.Header.Set(extraHeaders[i], extraHeaders[i+1])
	}

	start := time.Now()
	resp, err := z.client.Do(req)
	elapsed := time.Since(start)

	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	z.opts.metrics.Observe(transportZOSMF, op, code, elapsed)
	z.log.Debug("request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", code),
		zap.Duration("duration", elapsed),
		zap.String("request_id", requestID))

	return resp, err
}

func (z *ZOSMFConnection) doJSON(ctx context.Context, op, method, path string, payload any, extraHeaders ...string) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	headers := append([]string{"Content-Type", "application/json"}, extraHeaders...)
	return z.doRequest(ctx, op, method, path, bytes.NewReader(data), headers...)
}

func zosmfError(action string, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	re := &RequestError{Op: action, StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusNotFound {
		re.Err = ErrNotFound
	}

	var errResp struct {
		Message string `json:"message"`
		Details []struct {
			Message string `json:"messageText"`
		} `json:"details"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		re.Message = errResp.Message
		if len(errResp.Details) > 0 && errResp.Details[0].Message != "" {
			re.Message += ": " + errResp.Details[0].Message
		}
		return re
	}

	re.Message = strings.TrimSpace(string(body))
	return re
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func decodeBody(action string, resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", action, err)
	}
	return nil
}

func discardBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// --- Job operations ---

func (z *ZOSMFConnection) SubmitJCL(ctx context.Context, jcl string) (*Job, error) {
	const op = "submit JCL"
	resp, err := z.doRequest(ctx, op, http.MethodPut, "/zosmf/restjobs/jobs", strings.NewReader(jcl),
		"Content-Type", "text/plain",
		"X-IBM-Intrdr-Class", "A",
		"X-IBM-Intrdr-Recfm", "F",
		"X-IBM-Intrdr-Lrecl", "80",
		"X-IBM-Intrdr-Mode", "TEXT")
	if err != nil {
		return nil, fmt.Errorf("failed to submit JCL: %w", err)
	}
	return z.decodeSubmit(op, resp)
}

// SubmitDataSet submits JCL stored in a data set or member, e.g. USER.JCL(ALLOC).
func (z *ZOSMFConnection) SubmitDataSet(ctx context.Context, dsn string) (*Job, error) {
	const op = "submit data set"
	payload := map[string]string{"file": fmt.Sprintf("//'%s'", strings.Trim(dsn, "'"))}
	resp, err := z.doJSON(ctx, op, http.MethodPut, "/zosmf/restjobs/jobs", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", dsn, err)
	}
	return z.decodeSubmit(op, resp)
}

func (z *ZOSMFConnection) decodeSubmit(op string, resp *http.Response) (*Job, error) {
	if resp.StatusCode != http.StatusCreated {
		return nil, zosmfError("failed to "+op, resp)
	}
	var job Job
	if err := decodeBody(op, resp, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (z *ZOSMFConnection) ListJobs(ctx context.Context, q JobQuery) ([]Job, error) {
	const op = "list jobs"
	if q.Owner == "" {
		q.Owner = z.user
	}
	if q.Prefix == "" {
		q.Prefix = "*"
	}

	params := url.Values{}
	params.Set("owner", q.Owner)
	params.Set("prefix", q.Prefix)
	if q.JobID != "" {
		params.Set("jobid", q.JobID)
	}
	if q.MaxJobs > 0 {
		params.Set("max-jobs", fmt.Sprint(q.MaxJobs))
	}

	resp, err := z.doRequest(ctx, op, http.MethodGet, "/zosmf/restjobs/jobs?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, zosmfError("failed to list jobs", resp)
	}

	var jobs []Job
	if err := decodeBody(op, resp, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (z *ZOSMFConnection) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobs, err := z.ListJobs(ctx, JobQuery{Owner: "*", JobID: jobID})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, &RequestError{
			Op:         "get job",
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("job %s not found", jobID),
			Err:        ErrNotFound,
		}
	}
	return &jobs[0], nil
}

func jobPath(job Job) string {
	return fmt.Sprintf("/zosmf/restjobs/jobs/%s/%s",
		url.PathEscape(deref(job.JobName)), url.PathEscape(deref(job.JobID)))
}

func (z *ZOSMFConnection) ListSpoolFiles(ctx context.Context, job Job) ([]SpoolFile, error) {
	const op = "list spool files"
	path := job.FilesURL
	if path == "" {
		path = jobPath(job) + "/files"
	}
	resp, err := z.doRequest(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list job files: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, zosmfError("failed to list job files", resp)
	}

	var files []SpoolFile
	if err := decodeBody(op, resp, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (z *ZOSMFConnection) ReadSpool(ctx context.Context, locator string) (string, error) {
	resp, err := z.doRequest(ctx, "read spool", http.MethodGet, locator, nil, "X-IBM-Data-Type", "text")
	if err != nil {
		return "", fmt.Errorf("failed to read spool file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", zosmfError("failed to read spool file", resp)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read spool file: %w", err)
	}
	return string(data), nil
}

func (z *ZOSMFConnection) CancelJob(ctx context.Context, job Job) error {
	const op = "cancel job"
	payload := map[string]string{"request": "cancel", "version": "2.0"}
	resp, err := z.doJSON(ctx, op, http.MethodPut, jobPath(job), payload)
	if err != nil {
		return fmt.Errorf("failed to cancel %s: %w", deref(job.JobID), err)
	}
	if !isSuccess(resp) {
		return zosmfError("failed to cancel "+deref(job.JobID), resp)
	}
	discardBody(resp)
	return nil
}

func (z *ZOSMFConnection) DeleteJob(ctx context.Context, job Job) error {
	resp, err := z.doRequest(ctx, "delete job", http.MethodDelete, jobPath(job), nil,
		"X-IBM-Job-Modify-Version", "2.0")
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", deref(job.JobID), err)
	}
	if !isSuccess(resp) {
		return zosmfError("failed to delete "+deref(job.JobID), resp)
	}
	discardBody(resp)
	return nil
}

var _ Connection = (*ZOSMFConnection)(nil)
