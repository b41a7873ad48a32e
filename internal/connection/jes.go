package connection

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// jesClient speaks raw FTP on a control connection switched to
// FILETYPE=JES. jlaffaye/ftp cannot send SITE commands, hence the
// hand-rolled protocol.
type jesClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

func newJESClient(host string, port int, user, password string, timeout time.Duration) (*jesClient, error) {
	if timeout <= 0 {
		timeout = ftpTimeout
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &jesClient{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}

	// Read welcome
	if _, err := c.readResponse(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := c.cmd("USER %s", user); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.cmd("PASS %s", password); err != nil {
		conn.Close()
		return nil, err
	}

	if err := c.cmd("SITE FILETYPE=JES"); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

func (c *jesClient) close() {
	c.send("QUIT")
	c.conn.Close()
}

func (c *jesClient) setFilter(owner, prefix string) error {
	if err := c.cmd("SITE JESOWNER=%s", owner); err != nil {
		return err
	}
	return c.cmd("SITE JESJOBNAME=%s", prefix)
}

func (c *jesClient) listJobs() ([]Job, error) {
	lines, err := c.retrData("LIST", "")
	if err != nil {
		return nil, err
	}
	return parseJobLines(lines), nil
}

func (c *jesClient) listSpoolFiles(jobID string) ([]SpoolFile, error) {
	lines, err := c.retrData("LIST", jobID)
	if err != nil {
		return nil, err
	}
	return parseSpoolLines(jobID, lines), nil
}

func (c *jesClient) retrieve(name string) ([]byte, error) {
	if err := c.cmd("TYPE A"); err != nil {
		return nil, fmt.Errorf("failed to set ASCII mode: %w", err)
	}
	lines, err := c.retrData("RETR", name)
	if err != nil {
		return nil, err
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func (c *jesClient) delete(jobID string) error {
	if err := c.cmd("DELE %s", jobID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", jobID, err)
	}
	return nil
}

// submit stores jcl into the internal reader and returns the job ID JES
// assigned, taken from "250-It is known to JES as JOB12345".
func (c *jesClient) submit(jcl []byte) (string, error) {
	if err := c.cmd("TYPE A"); err != nil {
		return "", fmt.Errorf("failed to set ASCII mode: %w", err)
	}

	dataConn, err := c.openData()
	if err != nil {
		return "", err
	}

	if err := c.send("STOR JCL"); err != nil {
		dataConn.Close()
		return "", fmt.Errorf("failed to send STOR: %w", err)
	}
	resp, err := c.readResponse()
	if err != nil {
		dataConn.Close()
		return "", err
	}
	if !strings.HasPrefix(resp, "125") && !strings.HasPrefix(resp, "150") {
		dataConn.Close()
		return "", fmt.Errorf("STOR failed: %s", resp)
	}

	dataConn.SetWriteDeadline(time.Now().Add(c.timeout))
	w := bufio.NewWriter(dataConn)
	for _, line := range strings.Split(strings.TrimRight(string(jcl), "\n"), "\n") {
		fmt.Fprintf(w, "%s\r\n", strings.TrimRight(line, "\r"))
	}
	if err := w.Flush(); err != nil {
		dataConn.Close()
		return "", fmt.Errorf("failed to send JCL: %w", err)
	}
	dataConn.Close()

	endResp, err := c.readResponse()
	if err != nil {
		return "", fmt.Errorf("submit failed: %w", err)
	}
	jobID := parseSubmitResponse(endResp)
	if jobID == "" {
		return "", fmt.Errorf("no job ID in submit response: %s", endResp)
	}
	return jobID, nil
}

func (c *jesClient) openData() (net.Conn, error) {
	pasvResp, err := c.cmdResp("PASV")
	if err != nil {
		return nil, err
	}

	dataAddr, err := parsePASV(pasvResp)
	if err != nil {
		return nil, err
	}

	dataConn, err := net.DialTimeout("tcp", dataAddr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect data channel: %w", err)
	}
	return dataConn, nil
}

func (c *jesClient) retrData(cmd, arg string) ([]string, error) {
	dataConn, err := c.openData()
	if err != nil {
		return nil, err
	}
	defer dataConn.Close()

	if arg != "" {
		if err := c.send("%s %s", cmd, arg); err != nil {
			return nil, fmt.Errorf("failed to send %s: %w", cmd, err)
		}
	} else {
		if err := c.send(cmd); err != nil {
			return nil, fmt.Errorf("failed to send %s: %w", cmd, err)
		}
	}

	resp, err := c.readResponse()
	if err != nil {
		return nil, jesError(cmd, resp, err)
	}
	if !strings.HasPrefix(resp, "125") && !strings.HasPrefix(resp, "150") {
		return nil, fmt.Errorf("%s failed: %s", cmd, resp)
	}

	dataConn.SetReadDeadline(time.Now().Add(c.timeout * 2))
	lines := make([]string, 0, 256)
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	endResp, endErr := c.readResponse()
	if endErr != nil && len(lines) == 0 {
		return nil, fmt.Errorf("no output available: %s", endResp)
	}

	return lines, nil
}

// jesError maps a 550 reply (no such job or spool file) to ErrNotFound.
func jesError(cmd, resp string, err error) error {
	if strings.HasPrefix(resp, "550") {
		return &RequestError{Op: cmd, StatusCode: 550, Message: resp, Err: ErrNotFound}
	}
	return err
}

func (c *jesClient) cmd(format string, args ...interface{}) error {
	_, err := c.cmdResp(format, args...)
	return err
}

func (c *jesClient) cmdResp(format string, args ...interface{}) (string, error) {
	if err := c.send(format, args...); err != nil {
		return "", err
	}
	return c.readResponse()
}

func (c *jesClient) send(format string, args ...interface{}) error {
	cmd := fmt.Sprintf(format, args...)
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_, err := fmt.Fprintf(c.conn, "%s\r\n", cmd)
	return err
}

func (c *jesClient) readResponse() (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	var resp strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		resp.WriteString(line)
		// Single line response or last line of multi-line
		if len(line) >= 4 && line[3] == ' ' {
			break
		}
	}
	result := strings.TrimSpace(resp.String())
	// 4xx and 5xx
	if len(result) > 0 && (result[0] == '4' || result[0] == '5') {
		return result, fmt.Errorf("ftp error: %s", result)
	}
	return result, nil
}

func parsePASV(resp string) (string, error) {
	// 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	start := strings.Index(resp, "(")
	end := strings.Index(resp, ")")
	if start == -1 || end == -1 {
		return "", fmt.Errorf("invalid PASV response: %s", resp)
	}

	parts := strings.Split(resp[start+1:end], ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("invalid PASV response: %s", resp)
	}

	host := strings.Join(parts[:4], ".")
	p1, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return "", fmt.Errorf("invalid PASV port: %s", resp)
	}
	p2, err := strconv.Atoi(strings.TrimSpace(parts[5]))
	if err != nil {
		return "", fmt.Errorf("invalid PASV port: %s", resp)
	}
	port := p1*256 + p2

	return fmt.Sprintf("%s:%d", host, port), nil
}

func parseSubmitResponse(resp string) string {
	const marker = "known to JES as "
	i := strings.Index(resp, marker)
	if i == -1 {
		return ""
	}
	fields := strings.Fields(resp[i+len(marker):])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func parseJobLines(lines []string) []Job {
	jobs := make([]Job, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, "JOBNAME") && strings.Contains(line, "JOBID") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		job, ok := parseJobLine(line)
		if ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func parseJobLine(line string) (Job, bool) {
	// Format: JOBNAME  JOBID    OWNER    STATUS CLASS
	// Example: MYJOB    JOB12345 FALZONE  OUTPUT A    RC=0000
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Job{}, false
	}

	job := Job{
		JobName: StringPtr(fields[0]),
		JobID:   StringPtr(fields[1]),
		Owner:   StringPtr(fields[2]),
		Status:  StringPtr(fields[3]),
	}

	if len(fields) >= 5 && !strings.Contains(fields[4], "=") {
		job.Class = StringPtr(fields[4])
	}

	for i, f := range fields {
		switch {
		case strings.HasPrefix(f, "RC="):
			job.RetCode = StringPtr("CC " + strings.TrimPrefix(f, "RC="))
		case strings.HasPrefix(f, "ABEND="):
			job.RetCode = StringPtr("ABEND " + strings.TrimPrefix(f, "ABEND="))
		case f == "(JCL" && i+1 < len(fields) && strings.HasPrefix(fields[i+1], "error"):
			job.RetCode = StringPtr("JCL ERROR")
		}
	}

	return job, true
}

// parseSpoolLines reads the spool section of "LIST jobid":
//
//	ID  STEPNAME PROCSTEP C DDNAME   BYTE-COUNT
//	001 JES2              A JESMSGLG       1200
//	004 STEP1    COMPILE  A SYSPRINT       5230
func parseSpoolLines(jobID string, lines []string) []SpoolFile {
	var files []SpoolFile
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			continue
		}

		sf := SpoolFile{
			JobID:      StringPtr(jobID),
			ID:         id,
			StepName:   StringPtr(fields[1]),
			DDName:     StringPtr(fields[len(fields)-2]),
			Class:      fields[len(fields)-3],
			ByteCount:  count,
			RecordsURL: StringPtr(fmt.Sprintf("%s.%d", jobID, id)),
		}
		if len(fields) >= 6 {
			sf.ProcStep = StringPtr(fields[2])
		}
		files = append(files, sf)
	}
	return files
}
