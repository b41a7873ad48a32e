package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"zadapt/internal/adapter"
	"zadapt/internal/config"
	"zadapt/internal/connection"
	"zadapt/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "ZADAPT"

var (
	cfgFile     string
	cfg         *config.Config
	logger      = zap.NewNop()
	registry    *prometheus.Registry
	collector   *connection.Collector
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "zadapt",
	Short: "z/OS jobs and USS files from the command line",
	Long: `zadapt talks to z/OS through z/OSMF (or FTP) to submit and inspect
batch jobs and to manage Unix System Services files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() != "setup" {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if p := viper.GetString("profile"); p != "" {
				cfg.DefaultProfile = p
			}
		}

		level := viper.GetString("log_level")
		format := viper.GetString("log_format")
		if cfg != nil {
			if level == "" {
				level = cfg.LogLevel
			}
			if format == "" {
				format = cfg.LogFormat
			}
		}
		l, err := logging.New(level, format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		return writeMetrics()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	setDefaults()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/"+config.DefaultConfigFile+")")
	flags.StringP("profile", "p", "", "profile to use (overrides default)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.StringP("output", "o", formatTable, "output format: table, json, yaml")
	flags.StringVar(&metricsFile, "metrics-file", "", "write request metrics to this file in Prometheus text format")

	bindFlags(flags.Lookup("profile"), flags.Lookup("log-level"), flags.Lookup("output"))
	bindEnv()
}

func setDefaults() {
	viper.SetDefault("output", formatTable)
}

// bindEnv makes ZADAPT_PROFILE, ZADAPT_LOG_LEVEL, ZADAPT_LOG_FORMAT and
// ZADAPT_OUTPUT override the config file. Flags still win.
func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(flags ...*pflag.Flag) {
	for _, f := range flags {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := viper.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}

func GetConfig() *config.Config {
	return cfg
}

func GetCurrentProfile() (*config.Profile, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return cfg.GetProfile(cfg.DefaultProfile)
}

// openConnection connects with the current profile. Callers must Close
// the connection.
func openConnection() (*config.Profile, connection.Connection, error) {
	profile, err := GetCurrentProfile()
	if err != nil {
		return nil, nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, nil, fmt.Errorf("profile '%s': %w", cfg.DefaultProfile, err)
	}

	if registry == nil {
		registry = prometheus.NewRegistry()
		collector = connection.NewCollector(registry)
	}
	conn, err := connection.NewConnection(profile.Host, profile.Port, profile.User, profile.Password, profile.Protocol,
		connection.WithLogger(logger),
		connection.WithMetrics(collector),
		connection.WithTimeout(profile.Timeout),
		connection.WithRateLimit(profile.RateLimit),
		connection.WithInsecureTLS(profile.InsecureTLS),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Connect(); err != nil {
		return nil, nil, err
	}
	return profile, conn, nil
}

func newJobAdapter(conn connection.Connection) *adapter.JobAdapter {
	return adapter.NewJobAdapter(conn, logger)
}

func newUSSAdapter(conn connection.Connection) *adapter.USSAdapter {
	return adapter.NewUSSAdapter(conn, logger)
}

func writeMetrics() error {
	if metricsFile == "" || registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
