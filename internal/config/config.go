// Package config loads handins.json5. Credentials never live here, they are
// always typed at the prompt.
package config

import (
	"errors"
	"fmt"
	"handins-grader/internal/components/telemetry"
	"handins-grader/internal/handins"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const FileName = "handins.json5"

// DotenvFile is read from the working directory when present. Variables
// already set in the environment win over it.
const DotenvFile = ".env"

const (
	EnvBaseUrl          = "HANDINS_BASE_URL"
	EnvCourse           = "HANDINS_COURSE"
	EnvTimeoutSeconds   = "HANDINS_TIMEOUT_SECONDS"
	EnvCloudflareBypass = "HANDINS_CLOUDFLARE_BYPASS"
	EnvDumpDir          = "HANDINS_DUMP_DIR"
)

type Config struct {
	BaseUrl string `json:"base_url"`
	// Course is used when no course is given on the command line.
	Course            string  `json:"course"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	// DumpDir is a debugging aid, see handins.ClientOptions.
	DumpDir string `json:"dump_dir"`

	Telemetry telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		BaseUrl:           handins.DefaultBaseUrl,
		Course:            handins.DefaultCourse,
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
	}
}

func (c Config) validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	return nil
}

// ClientOptions maps the config onto handins client options.
func (c Config) ClientOptions() handins.ClientOptions {
	return handins.ClientOptions{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
		DumpDir:           c.DumpDir,
	}
}

// applyEnv overrides fields with HANDINS_* environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvBaseUrl); v != "" {
		c.BaseUrl = v
	}
	if v := getenv(EnvCourse); v != "" {
		c.Course = v
	}
	if v := getenv(EnvDumpDir); v != "" {
		c.DumpDir = v
	}
	if v := getenv(EnvTimeoutSeconds); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeoutSeconds, err)
		}
		c.TimeoutSeconds = seconds
	}
	if v := getenv(EnvCloudflareBypass); v != "" {
		bypass, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCloudflareBypass, err)
		}
		c.CloudflareBypass = bypass
	}
	return nil
}

func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads `path` when given, otherwise it searches for handins.json5 from
// the working directory upwards. A missing file is not an error when
// searching, the defaults are used instead. HANDINS_* variables, optionally
// set through a .env file, override the file.
func Load(path string) (Config, error) {
	var (
		file Config
		err  error
	)
	if path != "" {
		file, err = Read[Config](path)
	} else {
		file, err = ReadRecursively[Config](".", FileName)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	out := Default()
	err = mergeOverride(&out, file)
	if err != nil {
		return Config{}, err
	}

	err = loadDotenv(DotenvFile)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", DotenvFile, err)
	}
	err = out.applyEnv(os.Getenv)
	if err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	err = out.validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return out, nil
}
