package main

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	envPrefix   = "HTTPFIXTURE"
	defaultAddr = "127.0.0.1:8080"
)

type Config struct {
	Addr string `mapstructure:"addr"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	MaxHeaderLength int           `mapstructure:"max_header_length"`
	MaxBodyLength   int           `mapstructure:"max_body_length"`
	ServerName      string        `mapstructure:"server_name"`

	Log   LogConfig   `mapstructure:"log"`
	Trace TraceConfig `mapstructure:"trace"`

	// JSONErrors answers unmatched routes and handler failures with JSON envelopes.
	JSONErrors bool `mapstructure:"json_errors"`

	CORS   *CORSConfig    `mapstructure:"cors"`
	Static []StaticConfig `mapstructure:"static"`
	Routes []RouteConfig  `mapstructure:"routes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TraceConfig struct {
	// Stdout prints the span of every request to stderr.
	Stdout bool `mapstructure:"stdout"`
}

type CORSConfig struct {
	Origin  string `mapstructure:"origin"`
	Methods string `mapstructure:"methods"`
	Headers string `mapstructure:"headers"`
}

type StaticConfig struct {
	Prefix string `mapstructure:"prefix"`
	Dir    string `mapstructure:"dir"`
}

// RouteConfig is a route answering with a fixed response.
type RouteConfig struct {
	Method      string            `mapstructure:"method"`
	Path        string            `mapstructure:"path"`
	Status      int               `mapstructure:"status"`
	ContentType string            `mapstructure:"content_type"`
	Body        string            `mapstructure:"body"`
	Headers     map[string]string `mapstructure:"headers"`
	// Delay holds the response back.
	Delay time.Duration `mapstructure:"delay"`
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("read_timeout", "30s")
	v.SetDefault("max_header_length", 8<<10)
	v.SetDefault("max_body_length", 0)
	v.SetDefault("server_name", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("trace.stdout", false)
	v.SetDefault("json_errors", false)

	return v
}

// loadConfig merges, from lowest to highest priority, defaults, the file at path,
// HTTPFIXTURE_* environment variables and the flags bound to v.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "reading config %s", path)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for i := range c.Routes {
		r := &c.Routes[i]
		if r.Path == "" || !strings.HasPrefix(r.Path, "/") {
			return errors.Errorf("route %d: path %q must start with /", i, r.Path)
		}
		if r.Method == "" {
			r.Method = "GET"
		}
		r.Method = strings.ToUpper(r.Method)
		if r.Status == 0 {
			r.Status = 200
		}
	}

	for i, s := range c.Static {
		if s.Prefix == "" || s.Dir == "" {
			return errors.Errorf("static %d: prefix and dir are required", i)
		}
	}

	if c.MaxHeaderLength < 0 {
		return errors.Errorf("max_header_length must not be negative, got %d", c.MaxHeaderLength)
	}
	if c.MaxBodyLength < 0 {
		return errors.Errorf("max_body_length must not be negative, got %d", c.MaxBodyLength)
	}
	return nil
}
