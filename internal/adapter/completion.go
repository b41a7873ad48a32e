package adapter

import (
	"strings"
	"unicode"
)

// Completion is how a job ended, derived from its return-code string.
type Completion int

const (
	CompletionNotAvailable Completion = iota
	CompletionNormal
	CompletionBadReturnCode
	CompletionJCLError
	CompletionAbend
	CompletionActive
)

var completionNames = map[Completion]string{
	CompletionNotAvailable:  "NOT-AVAILABLE",
	CompletionNormal:        "NORMAL",
	CompletionBadReturnCode: "BADRETURNCODE",
	CompletionJCLError:      "JCLERROR",
	CompletionAbend:         "ABEND",
	CompletionActive:        "ACTIVE",
}

func (c Completion) String() string {
	if name, ok := completionNames[c]; ok {
		return name
	}
	return completionNames[CompletionNotAvailable]
}

func (c Completion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCompletion maps an outcome name back to its value. The host's
// short form NA is accepted for NOT-AVAILABLE.
func ParseCompletion(s string) (Completion, bool) {
	if s == "NA" {
		return CompletionNotAvailable, true
	}
	for c, name := range completionNames {
		if name == s {
			return c, true
		}
	}
	return CompletionNotAvailable, false
}

// Classify derives the completion outcome and the error-code text from a
// raw return code such as "CC 0012", "ABEND S0C4" or "JCL ERROR".
// A nil return code means the job has not finished.
func Classify(retCode *string) (Completion, string) {
	if retCode == nil {
		return CompletionActive, ""
	}

	token, remainder := splitRetCode(*retCode)

	switch token {
	case "JCL":
		return CompletionJCLError, remainder
	case "CC":
		if remainder == "0000" {
			return CompletionNormal, remainder
		}
		return CompletionBadReturnCode, remainder
	case "ABEND":
		return CompletionAbend, remainder
	}

	c, _ := ParseCompletion(token)
	return c, remainder
}

// splitRetCode cuts s at its first whitespace run.
func splitRetCode(s string) (token, remainder string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
