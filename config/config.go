package config

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"agtree/codec"
	"agtree/compat"
	"agtree/logging"
	"agtree/parser"
)

// Config represents the top-level configuration structure.
type Config struct {
	Parser  ParserConfig  `yaml:"parser"`
	Codec   CodecConfig   `yaml:"codec"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Lists   []ListSource  `yaml:"lists" validate:"dive"`
}

// ParserConfig mirrors parser.Options.
type ParserConfig struct {
	Tolerant              bool `yaml:"tolerant"`
	IncludeRaws           bool `yaml:"include_raws"`
	IncludeLocations      bool `yaml:"include_locations"`
	ParseUboSpecificRules bool `yaml:"parse_ubo_specific_rules"`
	ParseAbpSpecificRules bool `yaml:"parse_abp_specific_rules"`
	ParseHostRules        bool `yaml:"parse_host_rules"`
	MaxNestingDepth       int  `yaml:"max_nesting_depth" validate:"min=1,max=256"`
	// CheckModifiers enables the built-in modifier compatibility table.
	CheckModifiers bool `yaml:"check_modifiers"`
}

// CodecConfig mirrors codec.Options.
type CodecConfig struct {
	IncludeLocations bool `yaml:"include_locations"`
}

// CacheConfig controls the on-disk binary cache of parsed lists.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir" validate:"required_if=Enabled true"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ListSource is a single filter list on disk.
type ListSource struct {
	Name string `yaml:"name" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() *Config {
	opts := parser.DefaultOptions()
	return &Config{
		Parser: ParserConfig{
			Tolerant:              true,
			IncludeRaws:           opts.IncludeRaws,
			IncludeLocations:      opts.IsLocIncluded,
			ParseUboSpecificRules: opts.ParseUboSpecificRules,
			ParseAbpSpecificRules: opts.ParseAbpSpecificRules,
			ParseHostRules:        opts.ParseHostRules,
			MaxNestingDepth:       opts.MaxNestingDepth,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParserOptions converts the parser section to parser.Options.
func (c *Config) ParserOptions() parser.Options {
	opts := parser.Options{
		Tolerant:              c.Parser.Tolerant,
		IncludeRaws:           c.Parser.IncludeRaws,
		IsLocIncluded:         c.Parser.IncludeLocations,
		ParseUboSpecificRules: c.Parser.ParseUboSpecificRules,
		ParseAbpSpecificRules: c.Parser.ParseAbpSpecificRules,
		ParseHostRules:        c.Parser.ParseHostRules,
		MaxNestingDepth:       c.Parser.MaxNestingDepth,
	}
	if c.Parser.CheckModifiers {
		opts.ModifierValidator = compat.Default()
	}
	return opts
}

// CodecOptions converts the codec section to codec.Options.
func (c *Config) CodecOptions() codec.Options {
	return codec.Options{IncludeLocations: c.Codec.IncludeLocations}
}

// LoggerConfig converts the logging section to logging.Config.
func (c *Config) LoggerConfig(w io.Writer) logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format, Writer: w}
}
