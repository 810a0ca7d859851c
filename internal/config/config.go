package config

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-oanda/internal/version"
	"github.com/rxtech-lab/argo-oanda/pkg/errors"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

// Environment selects the OANDA trading environment.
type Environment string

const (
	EnvironmentPractice Environment = "practice"
	EnvironmentLive     Environment = "live"
)

const (
	PracticeRESTURL   = "https://api-fxpractice.oanda.com"
	PracticeStreamURL = "https://stream-fxpractice.oanda.com"
	LiveRESTURL       = "https://api-fxtrade.oanda.com"
	LiveStreamURL     = "https://stream-fxtrade.oanda.com"
)

// Environment variables that override the config file.
const (
	EnvToken       = "OANDA_TOKEN"
	EnvAccountID   = "OANDA_ACCOUNT_ID"
	EnvEnvironment = "OANDA_ENVIRONMENT"
	EnvRESTURL     = "OANDA_REST_URL"
	EnvStreamURL   = "OANDA_STREAM_URL"
	EnvLogLevel    = "OANDA_LOG_LEVEL"
)

// StreamConfig tunes reconnect behavior of the streaming endpoints.
type StreamConfig struct {
	MaxRetries int           `yaml:"max_retries" json:"max_retries" jsonschema:"title=Max Retries,description=Reconnect attempts before giving up,minimum=0" validate:"gte=0"`
	BaseDelay  time.Duration `yaml:"base_delay" json:"base_delay" jsonschema:"title=Base Delay,description=Delay before the first reconnect (e.g. 1s)" validate:"gt=0"`
	MaxDelay   time.Duration `yaml:"max_delay" json:"max_delay" jsonschema:"title=Max Delay,description=Upper bound of the exponential delay (e.g. 60s)" validate:"gtefield=BaseDelay"`
	Jitter     time.Duration `yaml:"jitter" json:"jitter" jsonschema:"title=Jitter,description=Upper bound of the random delay added to each reconnect" validate:"gte=0"`
	Buffer     int           `yaml:"buffer" json:"buffer" jsonschema:"title=Buffer,description=Events buffered between the stream and a slow consumer,minimum=0" validate:"gte=0"`
}

// Config holds credentials and endpoints for one OANDA account.
type Config struct {
	Version     string       `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Config file format version (e.g. 1.1.0)"`
	Environment Environment  `yaml:"environment" json:"environment" jsonschema:"title=Environment,description=Trading environment,enum=practice,enum=live" validate:"required,oneof=practice live"`
	Token       string       `yaml:"token" json:"token" jsonschema:"title=Token,description=Personal access token,required" validate:"required"`
	AccountID   string       `yaml:"account_id" json:"account_id" jsonschema:"title=Account ID,description=Account identifier (e.g. 101-009-31084545-001),required" validate:"required"`
	RESTURL     string       `yaml:"rest_url" json:"rest_url" jsonschema:"title=REST URL,description=Overrides the environment's REST host" validate:"required,url"`
	StreamURL   string       `yaml:"stream_url" json:"stream_url" jsonschema:"title=Stream URL,description=Overrides the environment's streaming host" validate:"required,url"`
	LogLevel    string       `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"required,oneof=debug info warn error"`
	Stream      StreamConfig `yaml:"stream" json:"stream" jsonschema:"title=Stream"`
}

// Default returns a practice configuration with default reconnect settings and no
// credentials.
func Default() Config {
	backoff := stream.DefaultBackoff()

	//nolint:exhaustruct
	return Config{
		Environment: EnvironmentPractice,
		LogLevel:    "info",
		Stream: StreamConfig{
			MaxRetries: backoff.MaxRetries,
			BaseDelay:  backoff.Base,
			MaxDelay:   backoff.Max,
			Jitter:     backoff.Jitter,
			Buffer:     stream.DefaultBuffer,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped when
// path is empty), then environment variables. Hosts left unset are filled in
// from the environment and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConfigLoadFailed, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConfigLoadFailed, err, "failed to parse config file %s", path)
		}

		if err := version.CheckConfigVersion(cfg.Version); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.fillHosts()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing files are
// ignored.
func LoadEnvFile(paths ...string) error {
	existing := make([]string, 0, len(paths))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoadFailed, "failed to load env file", err)
	}

	return nil
}

// ApplyEnv overrides fields from environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	env := string(c.Environment)
	set(EnvEnvironment, &env)
	c.Environment = Environment(strings.ToLower(env))

	set(EnvToken, &c.Token)
	set(EnvAccountID, &c.AccountID)
	set(EnvRESTURL, &c.RESTURL)
	set(EnvStreamURL, &c.StreamURL)
	set(EnvLogLevel, &c.LogLevel)
}

func (c *Config) fillHosts() {
	rest, streamURL := PracticeRESTURL, PracticeStreamURL
	if c.Environment == EnvironmentLive {
		rest, streamURL = LiveRESTURL, LiveStreamURL
	}

	if c.RESTURL == "" {
		c.RESTURL = rest
	}

	if c.StreamURL == "" {
		c.StreamURL = streamURL
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// AccountRESTURL is the REST base for account scoped endpoints.
func (c *Config) AccountRESTURL() string {
	return strings.TrimRight(c.RESTURL, "/") + "/v3/accounts/" + c.AccountID
}

// AccountStreamURL is the streaming base for account scoped endpoints.
func (c *Config) AccountStreamURL() string {
	return strings.TrimRight(c.StreamURL, "/") + "/v3/accounts/" + c.AccountID
}

// Backoff converts the stream settings into a reconnect policy.
func (c *Config) Backoff() stream.Backoff {
	return stream.Backoff{
		Base:       c.Stream.BaseDelay,
		Max:        c.Stream.MaxDelay,
		Jitter:     c.Stream.Jitter,
		MaxRetries: c.Stream.MaxRetries,
	}
}

// Schema returns the JSON schema of the config file.
func Schema() (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeFor[time.Duration]() {
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "oanda-config"
	schema.Description = "Configuration for the OANDA client"

	data, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
