package adapter

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attribute keys understood by the host.
const (
	KeyName              = "NAME"
	KeyJobID             = "JOB_ID"
	KeyJobUser           = "JOB_USER"
	KeyJobStatus         = "JOB_STATUS"
	KeyJobClass          = "JOB_CLASS"
	KeyJobCompletion     = "JOB_COMPLETION"
	KeyJobErrorCode      = "JOB_ERROR_CODE"
	KeyJobSpoolAvailable = "JOB_SPOOL_FILES_AVAILABLE"
	KeyJobHasSpoolFiles  = "JOB_HAS_SPOOL_FILES"
	KeyJobStepName       = "JOB_STEPNAME"
	KeyJobDDName         = "JOB_DDNAME"
	KeyJobDSName         = "JOB_DSNAME"
	KeyHFSParentPath     = "HFS_PARENT_PATH"
	KeyHFSSize           = "HFS_SIZE"
	KeyHFSDirectory      = "HFS_DIRECTORY"
	KeyHFSUser           = "HFS_USER"
	KeyHFSGroup          = "HFS_GROUP"
	KeyHFSPermissions    = "HFS_PERMISSIONS"
	KeyHFSLastUsedDate   = "HFS_LAST_USED_DATE"
	KeyHFSSymlink        = "HFS_SYMLINK"
	KeyHFSLinkPath       = "HFS_LINKPATH"
)

type Attribute struct {
	Key   string
	Value any
}

// Response is an ordered attribute bag, the format the host consumes.
// Setting an existing key replaces its value in place.
type Response struct {
	attrs []Attribute
}

// Add sets key, trimming surrounding blanks from string values.
func (r *Response) Add(key string, value any) {
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	r.AddUntrimmed(key, value)
}

// AddUntrimmed sets key without touching the value. USS names may
// legitimately carry blanks.
func (r *Response) AddUntrimmed(key string, value any) {
	for i := range r.attrs {
		if r.attrs[i].Key == key {
			r.attrs[i].Value = value
			return
		}
	}
	r.attrs = append(r.attrs, Attribute{Key: key, Value: value})
}

func (r *Response) Get(key string) (any, bool) {
	for _, a := range r.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// String returns the value of key as a string, or "" when unset or not a string.
func (r *Response) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

func (r *Response) Bool(key string) bool {
	v, _ := r.Get(key)
	b, _ := v.(bool)
	return b
}

// Keys returns the keys in insertion order.
func (r *Response) Keys() []string {
	keys := make([]string, len(r.attrs))
	for i, a := range r.attrs {
		keys[i] = a.Key
	}
	return keys
}

func (r *Response) Len() int {
	return len(r.attrs)
}

func (r *Response) Attributes() []Attribute {
	out := make([]Attribute, len(r.attrs))
	copy(out, r.attrs)
	return out
}

// MarshalJSON writes the bag as a JSON object in insertion order.
func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r.attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the bag as a YAML mapping in insertion order.
func (r *Response) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range r.attrs {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: a.Key}
		value := &yaml.Node{}
		if err := value.Encode(a.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}
