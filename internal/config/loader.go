package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Deploy    DeployConfig    `mapstructure:"deploy"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Manifests ManifestsConfig `mapstructure:"manifests"`
	System    SystemConfig    `mapstructure:"system"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the audit log backend. Driver is one of
// "postgres", "sqlite" or "memory".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	EnableMetrics        bool   `mapstructure:"enable_metrics"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DeployConfig tunes the deployment job tracker.
type DeployConfig struct {
	Retention         time.Duration `mapstructure:"retention"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	StopTimeout       time.Duration `mapstructure:"stop_timeout"`
	InitialProgress   int           `mapstructure:"initial_progress"`
	ProgressStep      int           `mapstructure:"progress_step"`
	ProgressCeiling   int           `mapstructure:"progress_ceiling"`
	// HistoryRetention bounds the audit log. Zero keeps everything.
	HistoryRetention  time.Duration `mapstructure:"history_retention"`
	// StatusFromHistory answers status polls for swept jobs from the audit
	// log instead of returning not found.
	StatusFromHistory bool          `mapstructure:"status_from_history"`
}

type DockerConfig struct {
	Host string `mapstructure:"host"`
}

type ManifestsConfig struct {
	DataDir     string   `mapstructure:"data_dir"`
	SystemTypes []string `mapstructure:"system_types"`
}

type SystemConfig struct {
	AppVersion string   `mapstructure:"app_version"`
	Mirrors    []string `mapstructure:"mirrors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "./composedeck.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("auth.admin_api_key", "")
	v.SetDefault("auth.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("features.request_id_header", "X-Request-ID")
	v.SetDefault("features.enable_request_logging", true)
	v.SetDefault("features.enable_metrics", true)

	v.SetDefault("deploy.retention", time.Hour)
	v.SetDefault("deploy.sweep_interval", time.Minute)
	v.SetDefault("deploy.probe_timeout", 5*time.Second)
	v.SetDefault("deploy.stop_timeout", 2*time.Minute)
	v.SetDefault("deploy.initial_progress", 10)
	v.SetDefault("deploy.progress_step", 5)
	v.SetDefault("deploy.progress_ceiling", 90)
	v.SetDefault("deploy.history_retention", 30*24*time.Hour)
	v.SetDefault("deploy.status_from_history", false)

	v.SetDefault("docker.host", "")

	v.SetDefault("manifests.data_dir", "./data")
	v.SetDefault("manifests.system_types", []string{
		"fnOS", "QNAP", "Synology", "TrueNAS", "UgreenNew", "Ugreen", "ZSpace", "ZimaOS",
	})

	v.SetDefault("system.app_version", "1.0.0")
	v.SetDefault("system.mirrors", []string{
		"https://docker.1ms.run",
		"https://docker.1panel.live",
	})
}

// Load reads the config file at path. A missing file is not an error: the
// defaults and COMPOSEDECK_* environment variables are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COMPOSEDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	d := c.Deploy
	if d.ProgressCeiling >= 100 || d.ProgressCeiling < d.InitialProgress {
		return fmt.Errorf("config: progress_ceiling must be in [initial_progress, 100)")
	}
	if d.ProgressStep < 0 || d.InitialProgress < 0 {
		return fmt.Errorf("config: progress values must not be negative")
	}
	if d.HistoryRetention < 0 {
		return fmt.Errorf("config: history_retention must not be negative")
	}
	if d.Retention <= 0 || d.SweepInterval <= 0 {
		return fmt.Errorf("config: retention and sweep_interval must be positive")
	}
	return nil
}
