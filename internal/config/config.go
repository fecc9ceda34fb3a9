// Package config builds the immutable process configuration.
//
// Values are layered, later sources overriding earlier ones:
// defaults, the JSON file named by CONFIG (or -c), the environment
// (a .env file is loaded first when present), and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is created once by New and shared read-only afterwards.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBFileName          string        `env:"FILE_STORAGE_PATH"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	JWTSecret           string        `env:"JWT_SECRET" validate:"required"`
	DefaultEmail        string        `env:"DEFAULT_EMAIL" validate:"required,email"`
	DefaultPass         string        `env:"DEFAULT_PASS" validate:"required"`
	CSRFOrigin          string        `env:"CSRF_ORIGIN" validate:"required"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	ServiceName         string        `env:"SERVICE_NAME" validate:"required"`
	ConfigPath          string        `env:"CONFIG"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	CSRFOrigin:          "example.com",
	TokenTTL:            60 * time.Minute,
	ServiceName:         "catsapi",
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing makes New ignore the command line. Tests use it.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New reads every source and validates the result. A missing JWT secret or
// default credentials is an error: the process must not start without them.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	// The config file path may itself come from a flag, so the command line is
	// parsed once up front and applied again on top of everything else.
	var fromFlags Config
	if !options.disableFlagsParsing {
		if err := parseFlags(&fromFlags, options.args); err != nil {
			return nil, err
		}
	}

	values := Config{}
	applyDefaults(&values, defaultConfig)

	configPath := fromFlags.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath != "" {
		if err := applyJSONFile(&values, configPath); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := parseFlags(&values, options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

// applyDefaults copies every non-zero field of defaults into the empty fields of values.
func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}
	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}
	if values.DBConnectionTimeout == 0 {
		values.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
	if values.CSRFOrigin == "" {
		values.CSRFOrigin = defaults.CSRFOrigin
	}
	if values.TokenTTL == 0 {
		values.TokenTTL = defaults.TokenTTL
	}
	if values.ServiceName == "" {
		values.ServiceName = defaults.ServiceName
	}
}

func parseFlags(values *Config, args []string) error {
	flags := flag.NewFlagSet("catsapi", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
	flags.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
	flags.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
	flags.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "A string with the database connection details")
	flags.StringVar(&values.CSRFOrigin, "o", values.CSRFOrigin, "origin allowed to send unsafe form requests")
	flags.StringVar(&values.ConfigPath, "c", values.ConfigPath, "path to a JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}

	return nil
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug":  true,
		"info":   true,
		"warn":   true,
		"error":  true,
		"dpanic": true,
		"panic":  true,
		"fatal":  true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// jsonConfig is the on-disk shape; durations are written as strings ("10s").
type jsonConfig struct {
	RunAddr             *string `json:"server_address"`
	LogLevel            *string `json:"log_level"`
	DatabaseDSN         *string `json:"database_dsn"`
	DBFileName          *string `json:"file_storage_path"`
	DBConnectionTimeout *string `json:"db_connection_timeout"`
	JWTSecret           *string `json:"jwt_secret"`
	DefaultEmail        *string `json:"default_email"`
	DefaultPass         *string `json:"default_pass"`
	CSRFOrigin          *string `json:"csrf_origin"`
	TokenTTL            *string `json:"token_ttl"`
	ServiceName         *string `json:"service_name"`
}

func applyJSONFile(values *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString(&values.RunAddr, fromFile.RunAddr)
	setString(&values.LogLevel, fromFile.LogLevel)
	setString(&values.DatabaseDSN, fromFile.DatabaseDSN)
	setString(&values.DBFileName, fromFile.DBFileName)
	setString(&values.JWTSecret, fromFile.JWTSecret)
	setString(&values.DefaultEmail, fromFile.DefaultEmail)
	setString(&values.DefaultPass, fromFile.DefaultPass)
	setString(&values.CSRFOrigin, fromFile.CSRFOrigin)
	setString(&values.ServiceName, fromFile.ServiceName)

	if err := setDuration(&values.DBConnectionTimeout, fromFile.DBConnectionTimeout); err != nil {
		return err
	}

	return setDuration(&values.TokenTTL, fromFile.TokenTTL)
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func setDuration(target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", *value, err)
	}
	*target = parsed

	return nil
}
