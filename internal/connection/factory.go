package connection

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

type options struct {
	logger    *zap.Logger
	metrics   *Collector
	timeout   time.Duration
	rateLimit float64
	insecure  bool
	baseURL   string
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(c *Collector) Option {
	return func(o *options) { o.metrics = c }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps outgoing requests per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(o *options) { o.rateLimit = rps }
}

// WithInsecureTLS disables certificate verification. Many z/OSMF
// installations run with self-signed certificates.
func WithInsecureTLS(insecure bool) Option {
	return func(o *options) { o.insecure = insecure }
}

// WithBaseURL overrides the https://host:port base derived from the profile.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

func buildOptions(opts []Option) options {
	o := options{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	return o
}

func NewConnection(host string, port int, user, password, protocol string, opts ...Option) (Connection, error) {
	switch protocol {
	case "zosmf":
		return NewZOSMFConnection(host, port, user, password, opts...), nil
	case "ftp":
		return NewFTPConnection(host, port, user, password, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}
