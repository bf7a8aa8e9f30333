// Package config loads the formfield server configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aydenstechdungeon/formfield/component"
	"github.com/aydenstechdungeon/formfield/internal/telemetry"
	formtempl "github.com/aydenstechdungeon/formfield/templ"
	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the file and environment configuration of the server.
type Config struct {
	// Addr is the listen address. ENV: FORMFIELD_ADDR
	Addr string `yaml:"addr" env:"FORMFIELD_ADDR" validate:"required"`
	// DevMode enables config reloading and verbose errors. ENV: FORMFIELD_DEV
	DevMode bool `yaml:"dev_mode" env:"FORMFIELD_DEV"`
	// AppName is reported in the Server header.
	AppName string `yaml:"app_name" env:"FORMFIELD_APP_NAME"`
	// Demo mounts the demo page on "/".
	Demo bool `yaml:"demo" env:"FORMFIELD_DEMO"`

	Logging   telemetry.LoggingConfig `yaml:"logging"`
	Store     StoreConfig             `yaml:"store"`
	Transport TransportConfig         `yaml:"transport"`

	// Classes override the default class names for every form.
	Classes formtempl.Classes `yaml:"classes"`
	// Forms are the declarative form definitions.
	Forms []component.Form `yaml:"forms" validate:"dive"`
}

// StoreConfig selects where field state lives between events.
type StoreConfig struct {
	Backend string `yaml:"backend" env:"FORMFIELD_STORE" validate:"required,oneof=memory redis"`
	Codec   string `yaml:"codec" env:"FORMFIELD_CODEC" validate:"omitempty,oneof=json msgpack"`
	// TTL bounds how long an idle form instance is kept.
	TTL time.Duration `yaml:"ttl" env:"FORMFIELD_STATE_TTL" validate:"gte=0"`
	// Prefix namespaces redis keys.
	Prefix        string `yaml:"prefix" env:"FORMFIELD_KEY_PREFIX"`
	RedisAddr     string `yaml:"redis_addr" env:"FORMFIELD_REDIS_ADDR" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password" env:"FORMFIELD_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"FORMFIELD_REDIS_DB" validate:"gte=0"`
}

// TransportConfig toggles the optional transports.
type TransportConfig struct {
	WebSocket   bool `yaml:"websocket" env:"FORMFIELD_WEBSOCKET"`
	Compression bool `yaml:"compression" env:"FORMFIELD_COMPRESSION"`
	Metrics     bool `yaml:"metrics" env:"FORMFIELD_METRICS"`
	// MaxBodySize caps event request bodies in bytes.
	MaxBodySize int `yaml:"max_body_size" env:"FORMFIELD_MAX_BODY_SIZE" validate:"gte=0"`
	// AllowedOrigins lists every origin allowed to open the websocket. Empty
	// means same origin only.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" validate:"dive,url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:    ":3000",
		AppName: "formfield",
		Logging: telemetry.DefaultLoggingConfig(),
		Store: StoreConfig{
			Backend: "memory",
			Codec:   "msgpack",
			TTL:     30 * time.Minute,
			Prefix:  "formfield:",
		},
		Transport: TransportConfig{
			WebSocket:   true,
			Compression: true,
			Metrics:     true,
			MaxBodySize: 64 * 1024,
		},
	}
}

var validate = validator.New()

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and every form definition.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := range c.Forms {
		if err := c.Forms[i].Validate(); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(c.Forms))
	for _, f := range c.Forms {
		if seen[f.Name] {
			return fmt.Errorf("%w: form %q defined twice", component.ErrInvalidForm, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// FormDefs returns pointers to fresh copies of the configured forms.
func (c *Config) FormDefs() []*component.Form {
	out := make([]*component.Form, 0, len(c.Forms))
	for i := range c.Forms {
		f := c.Forms[i]
		f.Fields = append([]component.FieldSpec(nil), f.Fields...)
		out = append(out, &f)
	}
	return out
}
