package connection

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestZOSMF(t *testing.T, handler http.HandlerFunc, opts ...Option) *ZOSMFConnection {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append(opts, WithBaseURL(srv.URL))
	conn := NewZOSMFConnection("host.example.com", 443, "user", "pass", opts...)
	require.NoError(t, conn.Connect())
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewZOSMFConnection(t *testing.T) {
	conn := NewZOSMFConnection("host.example.com", 443, "user", "pass")
	if conn.host != "host.example.com" {
		t.Errorf("host = %q, want host.example.com", conn.host)
	}
	if conn.port != 443 {
		t.Errorf("port = %d, want 443", conn.port)
	}
	if conn.limiter != nil {
		t.Error("limiter should be nil without WithRateLimit")
	}

	require.NoError(t, conn.Connect())
	assert.Equal(t, "https://host.example.com:443", conn.baseURL)
}

func TestNewConnection(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		wantErr  bool
	}{
		{"zosmf", "zosmf", false},
		{"ftp", "ftp", false},
		{"invalid", "telnet", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConnection("host", 443, "user", "pass", tt.protocol)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConnection() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestZOSMFNotConnected(t *testing.T) {
	conn := NewZOSMFConnection("host", 443, "user", "pass")
	_, err := conn.ListJobs(context.Background(), JobQuery{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestZOSMFListJobs(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/zosmf/restjobs/jobs", r.URL.Path)
		assert.Equal(t, "user", r.URL.Query().Get("owner"))
		assert.Equal(t, "MY*", r.URL.Query().Get("prefix"))
		assert.Equal(t, "*", r.Header.Get("X-CSRF-ZOSMF-HEADER"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		io.WriteString(w, `[
			{"jobid":"JOB12345","jobname":"MYJOB","owner":"USER","status":"OUTPUT","retcode":"CC 0000","class":"A"},
			{"jobid":"JOB12346","jobname":"MYJOB2","owner":"USER","status":"ACTIVE","retcode":null,"class":"B"}
		]`)
	})

	jobs, err := conn.ListJobs(context.Background(), JobQuery{Prefix: "MY*"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "JOB12345", *jobs[0].JobID)
	assert.Equal(t, "CC 0000", *jobs[0].RetCode)
	assert.Equal(t, "ACTIVE", *jobs[1].Status)
	assert.Nil(t, jobs[1].RetCode)
}

func TestZOSMFGetJobNotFound(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*", r.URL.Query().Get("owner"))
		assert.Equal(t, "JOB00001", r.URL.Query().Get("jobid"))
		io.WriteString(w, `[]`)
	})

	_, err := conn.GetJob(context.Background(), "JOB00001")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestZOSMFSubmitJCL(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "80", r.Header.Get("X-IBM-Intrdr-Lrecl"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "//MYJOB JOB\n", string(body))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"jobid":"JOB00042","jobname":"MYJOB","owner":"USER","status":"INPUT"}`)
	})

	job, err := conn.SubmitJCL(context.Background(), "//MYJOB JOB\n")
	require.NoError(t, err)
	assert.Equal(t, "JOB00042", *job.JobID)
	assert.Equal(t, "MYJOB", *job.JobName)
}

func TestZOSMFSubmitDataSet(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "//'USER.JCL(ALLOC)'", body["file"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"jobid":"JOB00043","jobname":"ALLOC","owner":"USER"}`)
	})

	job, err := conn.SubmitDataSet(context.Background(), "'USER.JCL(ALLOC)'")
	require.NoError(t, err)
	assert.Equal(t, "JOB00043", *job.JobID)
}

func TestZOSMFSubmitError(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"Job input was not recognized","details":[{"messageText":"IEFC452I"}]}`)
	})

	_, err := conn.SubmitJCL(context.Background(), "garbage")
	require.Error(t, err)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
	assert.Equal(t, "Job input was not recognized: IEFC452I", re.Message)
	assert.False(t, IsNotFound(err))
}

func TestZOSMFSpool(t *testing.T) {
	var srvURL string
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zosmf/restjobs/jobs/MYJOB/JOB00042/files":
			io.WriteString(w, `[{"jobid":"JOB00042","ddname":"JESMSGLG","stepname":"JES2","id":2,
				"records-url":"`+srvURL+`/zosmf/restjobs/jobs/MYJOB/JOB00042/files/2/records"}]`)
		case "/zosmf/restjobs/jobs/MYJOB/JOB00042/files/2/records":
			assert.Equal(t, "text", r.Header.Get("X-IBM-Data-Type"))
			io.WriteString(w, "HASP373 MYJOB STARTED\n")
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = conn.baseURL

	job := Job{JobName: StringPtr("MYJOB"), JobID: StringPtr("JOB00042")}
	files, err := conn.ListSpoolFiles(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(2), files[0].ID)
	assert.Nil(t, files[0].ProcStep)

	out, err := conn.ReadSpool(context.Background(), *files[0].RecordsURL)
	require.NoError(t, err)
	assert.Equal(t, "HASP373 MYJOB STARTED\n", out)
}

func TestZOSMFCancelAndDelete(t *testing.T) {
	var methods []string
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zosmf/restjobs/jobs/MYJOB/JOB00042", r.URL.Path)
		methods = append(methods, r.Method)
		switch r.Method {
		case http.MethodPut:
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "cancel", body["request"])
		case http.MethodDelete:
			assert.Equal(t, "2.0", r.Header.Get("X-IBM-Job-Modify-Version"))
		}
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"status":0}`)
	})

	job := Job{JobName: StringPtr("MYJOB"), JobID: StringPtr("JOB00042")}
	require.NoError(t, conn.CancelJob(context.Background(), job))
	require.NoError(t, conn.DeleteJob(context.Background(), job))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestZOSMFListFiles(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zosmf/restfiles/fs", r.URL.Path)
		assert.Equal(t, "/u/user", r.URL.Query().Get("path"))
		assert.Equal(t, "1", r.URL.Query().Get("depth"))
		io.WriteString(w, `{"items":[
			{"name":".","mode":"drwxr-xr-x","size":8192,"uid":0,"user":"USER","gid":1,"group":"SYS1","mtime":"2024-04-12T10:00:00"},
			{"name":"link","mode":"lrwxrwxrwx","size":4,"user":null,"group":null,"mtime":"2024-04-12T10:00:00","target":"/etc"}
		],"returnedRows":2,"totalRows":2}`)
	})

	files, err := conn.ListFiles(context.Background(), "/u/user", 1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, ".", *files[0].Name)
	assert.Equal(t, int64(8192), *files[0].Size)
	assert.Nil(t, files[1].User)
	assert.Equal(t, "/etc", *files[1].Target)
}

func TestZOSMFStatFile(t *testing.T) {
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("insensitive"))
		switch r.URL.Path {
		case "/zosmf/restfiles/fs/u/user/a.txt":
			io.WriteString(w, "content")
		case "/zosmf/restfiles/fs/u/user/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"FSUM6785 File or directory not found"}`)
		}
	})

	ctx := context.Background()
	assert.NoError(t, conn.StatFile(ctx, "/u/user/a.txt"))

	err := conn.StatFile(ctx, "/u/user/missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = conn.StatFile(ctx, "/u/user/broken")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestZOSMFFileMutations(t *testing.T) {
	type call struct {
		method, path, option, dataType string
		body                           map[string]any
	}
	var calls []call
	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		c := call{
			method:   r.Method,
			path:     r.URL.Path,
			option:   r.Header.Get("X-IBM-Option"),
			dataType: r.Header.Get("X-IBM-Data-Type"),
		}
		if r.Header.Get("Content-Type") == "application/json" {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		}
		calls = append(calls, c)
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete, http.MethodPut:
			if c.body != nil {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	require.NoError(t, conn.CreateFile(ctx, "/u/user/new dir", CreateDir, "rwxr-xr-x"))
	require.NoError(t, conn.WriteFile(ctx, "/u/user/a.bin", []byte{0x00, 0x01}, true))
	require.NoError(t, conn.ChangeMode(ctx, "/u/user/a.bin", "755"))
	require.NoError(t, conn.DeleteFile(ctx, "/u/user/new dir", true))

	require.Len(t, calls, 4)
	assert.Equal(t, "/zosmf/restfiles/fs/u/user/new dir", calls[0].path)
	assert.Equal(t, "dir", calls[0].body["type"])
	assert.Equal(t, "rwxr-xr-x", calls[0].body["mode"])
	assert.Equal(t, "binary", calls[1].dataType)
	assert.Equal(t, "chmod", calls[2].body["request"])
	assert.Equal(t, "755", calls[2].body["mode"])
	assert.Equal(t, http.MethodDelete, calls[3].method)
	assert.Equal(t, "recursive", calls[3].option)
}

func TestZOSMFMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	conn := newTestZOSMF(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}, WithMetrics(collector), WithRateLimit(100))

	_, err := conn.ListJobs(context.Background(), JobQuery{})
	require.NoError(t, err)

	count := testutil.ToFloat64(collector.requests.WithLabelValues("zosmf", "list jobs", "200"))
	assert.Equal(t, float64(1), count)
}

func TestCollectorNil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() { c.Observe("zosmf", "op", 200, 0) })
}
