package logging

import (
	"strings"
	"time"
)

type Config struct {
	EnabledSinks    []string       `yaml:"sinks"`
	BufferSize      int            `yaml:"bufferSize"`
	MinimumSeverity Severity       `yaml:"-"`
	Severity        string         `yaml:"severity"`
	Fields          map[string]any `yaml:"fields"`
	// MutedCategories drops every event of the listed categories.
	MutedCategories  []string      `yaml:"mute"`
	JSON             JSONConfig    `yaml:"json"`
	Console          ConsoleConfig `yaml:"console"`
	DropWarnInterval time.Duration `yaml:"dropWarnInterval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"path"`
	MaxBatch      int           `yaml:"maxBatch"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

type ConsoleConfig struct {
	UseColor bool `yaml:"color"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// Muted reports whether events of category are suppressed.
func (c Config) Muted(category string) bool {
	for _, muted := range c.MutedCategories {
		if strings.EqualFold(muted, category) {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}

// ParseSeverity maps a configuration string onto a Severity, falling back to
// info for unknown values.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return SeverityDebug, true
	case "info", "":
		return SeverityInfo, true
	case "warn", "warning":
		return SeverityWarn, true
	case "error":
		return SeverityError, true
	default:
		return SeverityInfo, false
	}
}
