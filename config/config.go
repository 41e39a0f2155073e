// Package config holds the citnames configuration schema and loads it from
// an optional JSON or YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Compiler declares one executable to treat as a compiler, with flags to
// splice into or strip from every reconstructed command.
type Compiler struct {
	ExecutablePath string   `mapstructure:"executable_path" json:"executable_path"`
	FlagsToPrepend []string `mapstructure:"flags_to_prepend" json:"flags_to_prepend,omitempty"`
	FlagsToStrip   []string `mapstructure:"flags_to_strip" json:"flags_to_strip,omitempty"`
}

// ContentFilter selects which entries make it into the output database.
type ContentFilter struct {
	IncludeOnlyExistingSources bool     `mapstructure:"include_only_existing_sources" json:"include_only_existing_sources"`
	IncludePaths               []string `mapstructure:"include_paths" json:"include_paths,omitempty"`
	ExcludePaths               []string `mapstructure:"exclude_paths" json:"exclude_paths,omitempty"`
}

// OutputFormat controls how entries render.
type OutputFormat struct {
	CommandAsArray  bool `mapstructure:"command_as_array" json:"command_as_array"`
	DropOutputField bool `mapstructure:"drop_output_field" json:"drop_output_field"`
}

// Config is the full citnames configuration.
type Config struct {
	CompilersToRecognize []Compiler    `mapstructure:"compilers_to_recognize" json:"compilers_to_recognize,omitempty"`
	CompilersToExclude   []string      `mapstructure:"compilers_to_exclude" json:"compilers_to_exclude,omitempty"`
	ContentFilter        ContentFilter `mapstructure:"content_filter" json:"content_filter"`
	OutputFormat         OutputFormat  `mapstructure:"output_format" json:"output_format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OutputFormat: OutputFormat{CommandAsArray: true},
	}
}

// knownKeys are the top-level and nested keys the schema defines; anything
// else in the file draws a warning.
var knownKeys = map[string]bool{
	"compilers_to_recognize":                      true,
	"compilers_to_exclude":                        true,
	"content_filter":                              true,
	"content_filter.include_only_existing_sources": true,
	"content_filter.include_paths":                true,
	"content_filter.exclude_paths":                true,
	"output_format":                               true,
	"output_format.command_as_array":              true,
	"output_format.drop_output_field":             true,
}

// Load reads the configuration file at path. A malformed file is an error;
// unknown keys only warn.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("output_format.command_as_array", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	for _, key := range v.AllKeys() {
		if !knownKey(key) {
			log.Warnf("ignoring unknown config key %q", key)
		}
	}

	config := Default()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}
	return config, nil
}

func knownKey(key string) bool {
	if knownKeys[key] {
		return true
	}
	// Keys inside list elements arrive flattened; accept the ones that
	// belong to the compiler entry schema.
	if strings.HasPrefix(key, "compilers_to_recognize.") {
		switch strings.TrimPrefix(key, "compilers_to_recognize.") {
		case "executable_path", "flags_to_prepend", "flags_to_strip":
			return true
		}
	}
	return false
}

// SeedFromEnvironment appends compilers named by the conventional CC, CXX
// and FC variables so builds driven through them are recognized without a
// config file.
func (c *Config) SeedFromEnvironment() {
	for _, name := range []string{"CC", "CXX", "FC"} {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		// The variable may carry flags after the executable.
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		if c.recognizes(fields[0]) {
			continue
		}
		c.CompilersToRecognize = append(c.CompilersToRecognize, Compiler{ExecutablePath: fields[0]})
	}
}

func (c *Config) recognizes(executable string) bool {
	for _, compiler := range c.CompilersToRecognize {
		if compiler.ExecutablePath == executable {
			return true
		}
	}
	return false
}
