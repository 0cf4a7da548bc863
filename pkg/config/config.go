package config

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	File   string `default:"Makefile.star" usage:"Name of the target script; searched for from the working directory upwards"`
	Debug  bool   `default:"false" usage:"Print error stacks and every field of each log message"`
	DryRun bool   `default:"false" usage:"Only print commands, don't execute anything"`
	Log    struct {
		Level string `default:"info"`
		File  string `usage:"Write JSON log messages to this file instead of the console"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Command line flags are never parsed since they belong to the targets.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{"easymake.toml"}
	}

	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "EASYMAKE",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the configuration and validates it
func Load(files ...string) (*Config, error) {
	cfg, loader := Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if cfg.File == "" {
		return eris.New(`Invalid value for file: must not be empty`)
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level. Debug mode always logs everything.
func (cfg *Config) LogLevel() zerolog.Level {
	if cfg.Debug {
		return zerolog.DebugLevel
	}
	return logLevels[cfg.Log.Level]
}
