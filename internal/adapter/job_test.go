package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zadapt/internal/connection"
)

func job(name, id, status string, retCode *string) connection.Job {
	return connection.Job{
		JobName: connection.StringPtr(name),
		JobID:   connection.StringPtr(id),
		Owner:   connection.StringPtr("IBMUSER"),
		Status:  connection.StringPtr(status),
		Class:   connection.StringPtr("A"),
		RetCode: retCode,
	}
}

func newJobFixture() *fakeJobs {
	done := job("DONE", "JOB00001", "OUTPUT", connection.StringPtr("CC 0000"))
	running := job("RUNNING", "JOB00002", "ACTIVE", nil)
	return &fakeJobs{
		jobs: map[string]*connection.Job{
			"JOB00001": &done,
			"JOB00002": &running,
		},
		list: []connection.Job{done, running, {JobID: connection.StringPtr("JOB00003")}},
		spool: map[string][]connection.SpoolFile{
			"JOB00001": {
				{JobID: connection.StringPtr("JOB00001"), ID: 2, DDName: connection.StringPtr("JESMSGLG"), RecordsURL: connection.StringPtr("u/2")},
				{JobID: connection.StringPtr("JOB00001"), ID: 3, DDName: connection.StringPtr("JESJCL"), RecordsURL: connection.StringPtr("u/3")},
				{JobID: connection.StringPtr("JOB00001"), ID: 4, DDName: connection.StringPtr("SYSPRINT")},
			},
		},
		contents: map[string]string{"u/2": "log\n", "u/3": "jcl\n"},
	}
}

func TestGetJob(t *testing.T) {
	a := NewJobAdapter(newJobFixture(), nil)

	info, err := a.GetJob(context.Background(), "JOB00001")
	require.NoError(t, err)
	assert.Equal(t, "DONE", info.Name)
	assert.Equal(t, StatusOutput, info.Status)
	assert.Equal(t, CompletionNormal, info.Completion)
	assert.Equal(t, "0000", info.ErrorCode)

	attrs := info.Attributes()
	assert.Equal(t, []string{
		KeyName, KeyJobID, KeyJobUser, KeyJobStatus, KeyJobClass,
		KeyJobSpoolAvailable, KeyJobHasSpoolFiles, KeyJobErrorCode, KeyJobCompletion,
	}, attrs.Keys())
	v, _ := attrs.Get(KeyJobCompletion)
	assert.Equal(t, CompletionNormal, v)

	running, err := a.GetJob(context.Background(), "JOB00002")
	require.NoError(t, err)
	assert.Equal(t, CompletionActive, running.Completion)
}

func TestGetJobDefaults(t *testing.T) {
	fake := &fakeJobs{jobs: map[string]*connection.Job{"JOB9": {}}}
	a := NewJobAdapter(fake, nil)

	info, err := a.GetJob(context.Background(), "JOB9")
	require.NoError(t, err)
	assert.Equal(t, Unknown, info.Name)
	assert.Equal(t, Unknown, info.ID)
	assert.Equal(t, Unknown, info.Owner)
	assert.Equal(t, JobStatus(Unknown), info.Status)
	assert.Equal(t, Unknown, info.Class)
}

func TestGetJobError(t *testing.T) {
	a := NewJobAdapter(&fakeJobs{err: errBoom}, nil)

	_, err := a.GetJob(context.Background(), "JOB00001")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnection))
	assert.ErrorIs(t, err, errBoom)
}

func TestListJobs(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   []string
	}{
		{StatusAll, []string{"DONE", "RUNNING"}},
		{StatusOutput, []string{"DONE"}},
		{StatusActive, []string{"RUNNING"}},
		{StatusInput, []string{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			fake := newJobFixture()
			a := NewJobAdapter(fake, nil)

			jobs, err := a.ListJobs(context.Background(), "D*", tt.status, "IBMUSER")
			require.NoError(t, err)

			names := []string{}
			for _, j := range jobs {
				names = append(names, j.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, connection.JobQuery{Owner: "IBMUSER", Prefix: "D*"}, fake.query)
		})
	}
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    JobStatus
		wantErr bool
	}{
		{"output", StatusOutput, false},
		{"ACTIVE", StatusActive, false},
		{" input ", StatusInput, false},
		{"all", StatusAll, false},
		{"", StatusAll, false},
		{"DONE", "", true},
	}

	for _, tt := range tests {
		got, err := ParseJobStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseJobStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseJobStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubmitJob(t *testing.T) {
	fake := &fakeJobs{}
	a := NewJobAdapter(fake, nil)

	jcl := "//MYJOB JOB (ACCT)\n//STEP1 EXEC PGM=IEFBR14\n"
	sub, err := a.SubmitJob(context.Background(), strings.NewReader(jcl))
	require.NoError(t, err)
	assert.Equal(t, jcl, fake.submitted)

	attrs := sub.Attributes()
	assert.Equal(t, "MYJOB", attrs.String(KeyName))
	assert.Equal(t, "JOB00042", attrs.String(KeyJobID))
	assert.Equal(t, "IBMUSER", attrs.String(KeyJobUser))
}

func TestSubmitDataSetMember(t *testing.T) {
	fake := &fakeJobs{}
	a := NewJobAdapter(fake, nil)

	sub, err := a.SubmitDataSetMember(context.Background(), "'IBMUSER.JCL'", "BUILD")
	require.NoError(t, err)
	assert.Equal(t, "IBMUSER.JCL(BUILD)", fake.dataSet)
	assert.Equal(t, "JOB00043", sub.ID)
	assert.Equal(t, Unknown, sub.Owner)
}

func TestGetJobSteps(t *testing.T) {
	a := NewJobAdapter(newJobFixture(), nil)

	steps, err := a.GetJobSteps(context.Background(), "JOB00001")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, SpoolStep{
		StepName:            "JOB00001.JESMSGLG",
		JobID:               "JOB00001",
		DDName:              "JESMSGLG",
		DSName:              "JOB00001.2",
		SpoolFilesAvailable: true,
	}, steps[0])
	assert.Equal(t, "JOB00001.4", steps[2].DSName)
}

func TestGetJobStepSpool(t *testing.T) {
	fake := newJobFixture()
	a := NewJobAdapter(fake, nil)
	ctx := context.Background()

	out, err := a.GetJobStepSpool(ctx, "JOB00001.3")
	require.NoError(t, err)
	assert.Equal(t, "jcl\n", string(out))

	out, err = a.GetJobStepSpool(ctx, "JOB00001.99")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = a.GetJobStepSpool(ctx, "JOB00001.4")
	assert.True(t, IsKind(err, KindMisuse))
	assert.ErrorIs(t, err, ErrMissingLocator)

	for _, key := range []string{"JOB1", ".3", "JOB00001.x", "JOB00001."} {
		_, err = a.GetJobStepSpool(ctx, key)
		assert.True(t, IsKind(err, KindMisuse), key)
		assert.ErrorIs(t, err, ErrInvalidStepKey, key)
	}
	assert.Equal(t, []string{"u/3"}, fake.reads)
}

func TestGetJobSpool(t *testing.T) {
	fake := newJobFixture()
	fake.spool["JOB00001"] = fake.spool["JOB00001"][:2]
	a := NewJobAdapter(fake, nil)

	out, err := a.GetJobSpool(context.Background(), "JOB00001")
	require.NoError(t, err)
	assert.Equal(t, "log\njcl\n", string(out))
	assert.Equal(t, []string{"u/2", "u/3"}, fake.reads)
}

func TestCancelAndDeleteJob(t *testing.T) {
	fake := newJobFixture()
	a := NewJobAdapter(fake, nil)
	ctx := context.Background()

	require.NoError(t, a.CancelJob(ctx, "JOB00002"))
	require.NoError(t, a.DeleteJob(ctx, "JOB00001"))
	assert.Equal(t, []string{"JOB00002"}, fake.cancelled)
	assert.Equal(t, []string{"JOB00001"}, fake.deleted)
}

func TestCancelJobMissingFields(t *testing.T) {
	fake := &fakeJobs{jobs: map[string]*connection.Job{
		"NONAME": {JobID: connection.StringPtr("JOB00005")},
		"NOID":   {JobName: connection.StringPtr("MYJOB"), JobID: connection.StringPtr("")},
	}}
	a := NewJobAdapter(fake, nil)
	ctx := context.Background()

	err := a.CancelJob(ctx, "NONAME")
	assert.True(t, IsKind(err, KindMisuse))
	assert.ErrorIs(t, err, ErrMissingJobName)
	assert.Contains(t, err.Error(), "NONAME")

	err = a.DeleteJob(ctx, "NOID")
	assert.True(t, IsKind(err, KindMisuse))
	assert.ErrorIs(t, err, ErrMissingJobID)

	assert.Empty(t, fake.cancelled)
	assert.Empty(t, fake.deleted)
}

func TestCancelJobNotFound(t *testing.T) {
	a := NewJobAdapter(&fakeJobs{}, nil)

	err := a.CancelJob(context.Background(), "JOB77777")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnection))
	assert.True(t, connection.IsNotFound(err))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "cancel job", e.Op)
}
