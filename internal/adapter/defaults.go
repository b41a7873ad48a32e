package adapter

import (
	"time"

	"go.uber.org/zap"
)

// Unknown replaces optional fields the remote service left out.
const Unknown = "unknown"

// MtimeLayout is the z/OSMF modification-time format. It carries no zone;
// values are read in the local zone.
const MtimeLayout = "2006-01-02T15:04:05"

// orUnknown is the one place absent optional strings get their default.
func orUnknown(p *string) string {
	if v, ok := present(p); ok {
		return v
	}
	return Unknown
}

func present(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

// ParseMtime parses a modification time in the local zone.
func ParseMtime(s string) (time.Time, error) {
	return time.ParseInLocation(MtimeLayout, s, time.Local)
}

// mtime converts an optional mtime field. Absent and malformed values both
// yield the epoch; malformed ones are logged.
func mtime(log *zap.Logger, path string, raw *string) time.Time {
	epoch := time.Unix(0, 0)
	if raw == nil {
		return epoch
	}
	t, err := ParseMtime(*raw)
	if err != nil {
		log.Warn("cannot convert mtime",
			zap.String("path", path),
			zap.String("mtime", *raw),
			zap.Error(&Error{Kind: KindMalformed, Op: "parse mtime", Subject: *raw, Err: err}))
		return epoch
	}
	return t
}
