package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = ".zadaptconfig"
	DefaultProtocol   = ProtocolZOSMF
	DefaultTimeout    = 30 * time.Second

	ProtocolZOSMF = "zosmf"
	ProtocolFTP   = "ftp"
)

// DefaultPort returns the port a protocol listens on when the profile
// does not name one.
func DefaultPort(protocol string) int {
	if protocol == ProtocolFTP {
		return 21
	}
	return 443
}

type Profile struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Protocol string `yaml:"protocol"` // zosmf, ftp
	USSHome  string `yaml:"uss_home"`

	// Owner filters job listings; empty means the profile user.
	Owner string `yaml:"owner,omitempty"`

	InsecureTLS bool          `yaml:"insecure_tls,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`

	// RateLimit caps requests per second; 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

type Config struct {
	Profiles       map[string]*Profile `yaml:"profiles"`
	DefaultProfile string              `yaml:"default_profile"`
	LogLevel       string              `yaml:"log_level,omitempty"`
	LogFormat      string              `yaml:"log_format,omitempty"`
}

// Path returns path, or the default config file in the user's home
// directory when path is empty.
func Path(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigFile), nil
}

func Load(path string) (*Config, error) {
	path, err := Path(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s\nRun 'zadapt config setup' to create one", path)
		}
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	for name, p := range cfg.Profiles {
		if p == nil {
			return nil, fmt.Errorf("profile '%s' is empty", name)
		}
		p.applyDefaults()
	}

	return &cfg, nil
}

func (p *Profile) applyDefaults() {
	if p.Protocol == "" {
		p.Protocol = DefaultProtocol
	}
	if p.Port == 0 {
		p.Port = DefaultPort(p.Protocol)
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
}

func (c *Config) Save(path string) error {
	path, err := Path(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	// 0600: owner read/write only (contains password)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}

	return nil
}

func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return nil, fmt.Errorf("no profile specified and no default profile set")
	}

	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	return p, nil
}

func (p *Profile) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.User == "" {
		return fmt.Errorf("user is required")
	}
	if p.Password == "" {
		return fmt.Errorf("password is required")
	}
	if p.Protocol != ProtocolZOSMF && p.Protocol != ProtocolFTP {
		return fmt.Errorf("protocol must be '%s' or '%s'", ProtocolZOSMF, ProtocolFTP)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

// JobOwner is the owner job listings default to.
func (p *Profile) JobOwner() string {
	if p.Owner != "" {
		return p.Owner
	}
	return p.User
}
