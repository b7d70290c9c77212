package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	configutil "github.com/NYCU-SDC/summer/pkg/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrPartitionsSourceRequired = errors.New("partitions_source is required")
	ErrStatusCommandRequired    = errors.New("status_command is required")
	ErrStatusTimeoutInvalid     = errors.New("status_timeout_seconds must be positive")
	ErrSSHConfigIncomplete      = errors.New("ssh_user and ssh_private_key_file are required when ssh_host is set")
	ErrCacheRequiresRedis       = errors.New("redis_url is required when status_cache_ttl_seconds is set")
)

type Config struct {
	Debug            bool     `yaml:"debug"              envconfig:"DEBUG"`
	Host             string   `yaml:"host"               envconfig:"HOST"`
	Port             string   `yaml:"port"               envconfig:"PORT"`
	OtelCollectorUrl string   `yaml:"otel_collector_url" envconfig:"OTEL_COLLECTOR_URL"`
	AllowOrigins     []string `yaml:"allow_origins"      envconfig:"ALLOW_ORIGINS"`

	PartitionsSource string `yaml:"partitions_source" envconfig:"PARTITIONS_SOURCE"`

	StatusCommand         []string `yaml:"status_command"            envconfig:"STATUS_COMMAND"`
	StatusColumns         []string `yaml:"status_columns"            envconfig:"STATUS_COLUMNS"`
	StatusTimeoutSeconds  int      `yaml:"status_timeout_seconds"    envconfig:"STATUS_TIMEOUT_SECONDS"`
	StatusCacheTTLSeconds int      `yaml:"status_cache_ttl_seconds"  envconfig:"STATUS_CACHE_TTL_SECONDS"`
	RedisURL              string   `yaml:"redis_url"                 envconfig:"REDIS_URL"`

	SSHHost           string `yaml:"ssh_host"             envconfig:"SSH_HOST"`
	SSHPort           string `yaml:"ssh_port"             envconfig:"SSH_PORT"`
	SSHUser           string `yaml:"ssh_user"             envconfig:"SSH_USER"`
	SSHPrivateKeyFile string `yaml:"ssh_private_key_file" envconfig:"SSH_PRIVATE_KEY_FILE"`
	SSHKnownHostsFile string `yaml:"ssh_known_hosts_file" envconfig:"SSH_KNOWN_HOSTS_FILE"`

	SingleuserCommand string   `yaml:"singleuser_command" envconfig:"SINGLEUSER_COMMAND"`
	ContainerExec     []string `yaml:"container_exec"     envconfig:"CONTAINER_EXEC"`
	ContainerSuffix   string   `yaml:"container_suffix"   envconfig:"CONTAINER_SUFFIX"`
	BasePrologue      string   `yaml:"base_prologue"      envconfig:"BASE_PROLOGUE"`
	KeepEnvironment   []string `yaml:"keep_environment"   envconfig:"KEEP_ENVIRONMENT"`
}

type LogBuffer struct {
	buffer []logEntry
}

type logEntry struct {
	msg  string
	err  error
	meta map[string]string
}

func NewConfigLogger() *LogBuffer {
	return &LogBuffer{}
}

func (cl *LogBuffer) Warn(msg string, err error, meta map[string]string) {
	cl.buffer = append(cl.buffer, logEntry{msg: msg, err: err, meta: meta})
}

func (cl *LogBuffer) FlushToZap(logger *zap.Logger) {
	for _, e := range cl.buffer {
		var fields []zap.Field
		if e.err != nil {
			fields = append(fields, zap.Error(e.err))
		}
		for k, v := range e.meta {
			fields = append(fields, zap.String(k, v))
		}
		logger.Warn(e.msg, fields...)
	}
	cl.buffer = nil
}

func (c *Config) Validate() error {
	if c.PartitionsSource == "" {
		return ErrPartitionsSourceRequired
	}

	if len(c.StatusCommand) == 0 {
		return ErrStatusCommandRequired
	}

	if c.StatusTimeoutSeconds <= 0 {
		return ErrStatusTimeoutInvalid
	}

	if c.SSHHost != "" && (c.SSHUser == "" || c.SSHPrivateKeyFile == "") {
		return ErrSSHConfigIncomplete
	}

	if c.StatusCacheTTLSeconds > 0 && c.RedisURL == "" {
		return ErrCacheRequiresRedis
	}

	return nil
}

func Load() (Config, *LogBuffer) {
	logger := NewConfigLogger()

	config := &Config{
		Debug:                false,
		Host:                 "localhost",
		Port:                 "8080",
		OtelCollectorUrl:     "",
		PartitionsSource:     "partitions.yaml",
		StatusCommand:        []string{"sinfo", "-a", "--noheader", "-o", "%R %F %c %C %G %m %l"},
		StatusColumns:        []string{"partition", "nodes", "max_cpus_per_node", "cpus", "gres", "memory", "timelimit"},
		StatusTimeoutSeconds: 10,
		SSHPort:              "22",
		SingleuserCommand:    "jupyterhub-singleuser",
		ContainerExec:        []string{"singularity", "exec"},
		ContainerSuffix:      ".sif",
	}

	var err error

	config, err = FromFile("config.yaml", config, logger)
	if err != nil {
		logger.Warn("Failed to load config from file", err, map[string]string{"path": "config.yaml"})
	}

	config, err = FromEnv(config, logger)
	if err != nil {
		logger.Warn("Failed to load config from env", err, map[string]string{"path": ".env"})
	}

	config, err = FromFlags(config)
	if err != nil {
		logger.Warn("Failed to load config from flags", err, map[string]string{"path": "flags"})
	}

	return *config, logger
}

func FromFile(filePath string, config *Config, logger *LogBuffer) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			logger.Warn("Failed to close config file", err, map[string]string{"path": filePath})
		}
	}(file)

	fileConfig := Config{}
	if err := yaml.NewDecoder(file).Decode(&fileConfig); err != nil {
		return config, err
	}

	return configutil.Merge[Config](config, &fileConfig)
}

func FromEnv(config *Config, logger *LogBuffer) (*Config, error) {
	if err := godotenv.Overload(); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("No .env file found", err, map[string]string{"path": ".env"})
		} else {
			return nil, err
		}
	}

	// List values come comma separated; split them before the merge so an
	// unset variable never clobbers the configured list.
	if raw := os.Getenv("ALLOW_ORIGINS"); raw != "" {
		config.AllowOrigins = strings.Split(raw, ",")
	}
	if raw := os.Getenv("STATUS_COMMAND"); raw != "" {
		config.StatusCommand = strings.Split(raw, ",")
	}
	if raw := os.Getenv("STATUS_COLUMNS"); raw != "" {
		config.StatusColumns = strings.Split(raw, ",")
	}
	if raw := os.Getenv("CONTAINER_EXEC"); raw != "" {
		config.ContainerExec = strings.Split(raw, ",")
	}
	if raw := os.Getenv("KEEP_ENVIRONMENT"); raw != "" {
		config.KeepEnvironment = strings.Split(raw, ",")
	}

	envConfig := &Config{
		Debug:                 os.Getenv("DEBUG") == "true",
		Host:                  os.Getenv("HOST"),
		Port:                  os.Getenv("PORT"),
		OtelCollectorUrl:      os.Getenv("OTEL_COLLECTOR_URL"),
		PartitionsSource:      os.Getenv("PARTITIONS_SOURCE"),
		StatusTimeoutSeconds:  envInt("STATUS_TIMEOUT_SECONDS", logger),
		StatusCacheTTLSeconds: envInt("STATUS_CACHE_TTL_SECONDS", logger),
		RedisURL:              os.Getenv("REDIS_URL"),
		SSHHost:               os.Getenv("SSH_HOST"),
		SSHPort:               os.Getenv("SSH_PORT"),
		SSHUser:               os.Getenv("SSH_USER"),
		SSHPrivateKeyFile:     os.Getenv("SSH_PRIVATE_KEY_FILE"),
		SSHKnownHostsFile:     os.Getenv("SSH_KNOWN_HOSTS_FILE"),
		SingleuserCommand:     os.Getenv("SINGLEUSER_COMMAND"),
		ContainerSuffix:       os.Getenv("CONTAINER_SUFFIX"),
		BasePrologue:          os.Getenv("BASE_PROLOGUE"),
	}

	return configutil.Merge[Config](config, envConfig)
}

func FromFlags(config *Config) (*Config, error) {
	flagConfig := &Config{}

	flag.BoolVar(&flagConfig.Debug, "debug", false, "debug mode")
	flag.StringVar(&flagConfig.Host, "host", "", "host")
	flag.StringVar(&flagConfig.Port, "port", "", "port")
	flag.StringVar(&flagConfig.OtelCollectorUrl, "otel_collector_url", "", "OpenTelemetry collector URL")
	flag.StringVar(&flagConfig.PartitionsSource, "partitions_source", "", "partition catalogue file")
	flag.IntVar(&flagConfig.StatusTimeoutSeconds, "status_timeout_seconds", 0, "status command timeout in seconds")
	flag.IntVar(&flagConfig.StatusCacheTTLSeconds, "status_cache_ttl_seconds", 0, "status cache ttl in seconds")
	flag.StringVar(&flagConfig.RedisURL, "redis_url", "", "redis url")
	flag.StringVar(&flagConfig.SSHHost, "ssh_host", "", "status command ssh host")
	flag.StringVar(&flagConfig.SSHPort, "ssh_port", "", "status command ssh port")
	flag.StringVar(&flagConfig.SSHUser, "ssh_user", "", "status command ssh user")
	flag.StringVar(&flagConfig.SSHPrivateKeyFile, "ssh_private_key_file", "", "status command ssh private key file")
	flag.StringVar(&flagConfig.SSHKnownHostsFile, "ssh_known_hosts_file", "", "status command ssh known hosts file")
	flag.StringVar(&flagConfig.SingleuserCommand, "singleuser_command", "", "single-user server command")
	flag.StringVar(&flagConfig.ContainerSuffix, "container_suffix", "", "container image suffix")
	flag.StringVar(&flagConfig.BasePrologue, "base_prologue", "", "base prologue prepended to every launch")

	flag.Parse()

	return configutil.Merge[Config](config, flagConfig)
}

func envInt(name string, logger *LogBuffer) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Ignoring non-integer environment value", err, map[string]string{"name": name, "value": raw})
		return 0
	}
	return value
}
