package ical

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultMaxLineOctets = 1 << 20

// ParseConfig controls how Parse treats malformed input.
type ParseConfig struct {
	// Strict turns bare LF line endings and untokenizable lines into fatal
	// errors instead of findings.
	Strict bool `yaml:"strict" json:"strict"`

	// MaxLineOctets bounds the length of a logical line. Longer lines are
	// dropped with a finding.
	MaxLineOctets int `yaml:"max_line_octets" json:"max_line_octets"`
}

// ValidateConfig controls which findings a Validator reports.
type ValidateConfig struct {
	// StrictDuplicates reports a property that repeats with an identical
	// value where only one is allowed. A repeat with a different value is
	// always reported.
	StrictDuplicates bool `yaml:"strict_duplicates" json:"strict_duplicates"`

	// RequireTimezones makes a TZID without a matching VTIMEZONE an error.
	RequireTimezones bool `yaml:"require_timezones" json:"require_timezones"`

	// DisabledRules lists rule identifiers that are never reported.
	DisabledRules []string `yaml:"disabled_rules" json:"disabled_rules"`

	// Severity overrides the severity of a rule, "error" or "warning".
	Severity map[string]string `yaml:"severity" json:"severity"`
}

// Config is the top level configuration, usually loaded from YAML:
//
//	parse:
//	  strict: false
//	  max_line_octets: 1048576
//	validate:
//	  strict_duplicates: true
//	  disabled_rules: [value.inferred]
//	  severity:
//	    reference.tzid: error
type Config struct {
	Parse    ParseConfig    `yaml:"parse" json:"parse"`
	Validate ValidateConfig `yaml:"validate" json:"validate"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Parse: ParseConfig{
			MaxLineOctets: defaultMaxLineOctets,
		},
		Validate: ValidateConfig{
			DisabledRules: []string{},
			Severity:      map[string]string{},
		},
	}
}

// Normalize fills in zero values with defaults so that partially filled
// files behave like the default configuration.
func (c *Config) Normalize() {
	c.Parse.normalize()
	c.Validate.normalize()
}

func (c *ParseConfig) normalize() {
	if c.MaxLineOctets <= 0 {
		c.MaxLineOctets = defaultMaxLineOctets
	}
}

func (c *ValidateConfig) normalize() {
	if c.DisabledRules == nil {
		c.DisabledRules = []string{}
	}
	if c.Severity == nil {
		c.Severity = map[string]string{}
	}
}

// check rejects severity overrides that are neither "error" nor "warning".
func (c *ValidateConfig) check() error {
	for rule, s := range c.Severity {
		if _, ok := ParseSeverity(s); !ok {
			return errors.Errorf("severity %q for rule %s must be error or warning", s, rule)
		}
	}
	return nil
}

// ParseConfigYAML decodes a YAML document into a normalized Config.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Normalize()
	if err := cfg.Validate.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
