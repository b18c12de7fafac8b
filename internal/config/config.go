// Package config loads the server configuration file and the language file
// and exposes the path-addressed views the ability layer consults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ability-engine/internal/collision"
	"ability-engine/internal/sim"
	"ability-engine/internal/telemetry"
	"ability-engine/logging"
)

const (
	EnvTickRate = "ABILITY_TICK_RATE"
	EnvHTTPAddr = "ABILITY_HTTP_ADDR"
	EnvAddonDir = "ABILITY_ADDON_DIR"

	EnvPerActorCommandLimit = "ABILITY_PER_ACTOR_COMMAND_LIMIT"
)

const (
	DefaultTickRate            = 20
	DefaultCatchupMaxTicks     = 2
	DefaultHTTPAddr            = ":8080"
	DefaultAddonDir            = "addons"
	DefaultHeartbeatTimeout    = 10 * time.Second
	DefaultDiagnosticsInterval = time.Second
	DefaultCommandCapacity     = sim.DefaultCommandCapacity
	DefaultPerActorLimit       = sim.DefaultPerActorLimit
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ServerConfig controls the runtime loop and its outer surfaces.
type ServerConfig struct {
	TickRate             int           `yaml:"tickRate" json:"tickRate" jsonschema:"minimum=1,description=Simulation ticks per second"`
	CatchupMaxTicks      int           `yaml:"catchupMaxTicks" json:"catchupMaxTicks" jsonschema:"minimum=0"`
	HTTPAddr             string        `yaml:"httpAddr" json:"httpAddr"`
	AddonDir             string        `yaml:"addonDir" json:"addonDir" jsonschema:"description=Directory scanned for addon scripts"`
	LanguageFile         string        `yaml:"languageFile" json:"languageFile,omitempty"`
	HeartbeatTimeout     time.Duration `yaml:"heartbeatTimeout" json:"heartbeatTimeout"`
	SweepInterval        time.Duration `yaml:"sweepInterval" json:"sweepInterval,omitempty"`
	DiagnosticsInterval  time.Duration `yaml:"diagnosticsInterval" json:"diagnosticsInterval"`
	CommandCapacity      int           `yaml:"commandCapacity" json:"commandCapacity" jsonschema:"minimum=1"`
	PerActorCommandLimit int           `yaml:"perActorCommandLimit" json:"perActorCommandLimit" jsonschema:"minimum=0,description=Commands one actor may stage per tick; 0 disables the limit"`
	CollisionCellSize    float64       `yaml:"collisionCellSize" json:"collisionCellSize,omitempty" jsonschema:"minimum=0"`
}

// Document is the typed shape of config.yml. The Abilities section is kept
// free-form and read through Provider.
type Document struct {
	Server     ServerConfig         `yaml:"Server" json:"Server"`
	Logging    logging.Config       `yaml:"Logging" json:"Logging"`
	Collisions []collision.PairSpec `yaml:"Collisions" json:"Collisions,omitempty"`
	Abilities  map[string]any       `yaml:"Abilities" json:"Abilities,omitempty" jsonschema:"description=Per element ability flags addressed as Abilities.<Element>.[Passive.|Combo.]<Name>.Enabled"`

	tree *Provider
}

// Default returns the configuration used when no file is present.
func Default() Document {
	return Document{
		Server: ServerConfig{
			TickRate:             DefaultTickRate,
			CatchupMaxTicks:      DefaultCatchupMaxTicks,
			HTTPAddr:             DefaultHTTPAddr,
			AddonDir:             DefaultAddonDir,
			HeartbeatTimeout:     DefaultHeartbeatTimeout,
			DiagnosticsInterval:  DefaultDiagnosticsInterval,
			CommandCapacity:      DefaultCommandCapacity,
			PerActorCommandLimit: DefaultPerActorLimit,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Parse decodes config bytes over the defaults.
func Parse(data []byte) (Document, error) {
	doc := Default()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("config: parse document: %w", err)
	}
	tree, err := ParseProvider(data)
	if err != nil {
		return Document{}, err
	}
	doc.tree = tree
	if err := doc.normalize(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadLanguage reads the language file. A missing file yields an empty tree.
func LoadLanguage(path string) (*Provider, error) {
	if path == "" {
		return NewProvider(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewProvider(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseProvider(data)
}

// Provider returns the path-addressed view of the document.
func (d *Document) Provider() *Provider {
	if d.tree == nil {
		root := make(map[string]any)
		if d.Abilities != nil {
			root["Abilities"] = d.Abilities
		}
		d.tree = NewProvider(root)
	}
	return d.tree
}

func (d *Document) normalize() error {
	if d.Server.TickRate <= 0 {
		return fmt.Errorf("%w: Server.tickRate must be positive, got %d", ErrInvalidConfig, d.Server.TickRate)
	}
	if d.Server.CatchupMaxTicks < 0 {
		return fmt.Errorf("%w: Server.catchupMaxTicks must not be negative", ErrInvalidConfig)
	}
	if d.Server.PerActorCommandLimit < 0 {
		return fmt.Errorf("%w: Server.perActorCommandLimit must not be negative", ErrInvalidConfig)
	}
	if d.Server.CommandCapacity <= 0 {
		d.Server.CommandCapacity = DefaultCommandCapacity
	}
	if d.Server.HeartbeatTimeout <= 0 {
		d.Server.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if d.Server.DiagnosticsInterval <= 0 {
		d.Server.DiagnosticsInterval = DefaultDiagnosticsInterval
	}
	if severity, ok := logging.ParseSeverity(d.Logging.Severity); ok {
		d.Logging.MinimumSeverity = severity
	} else {
		return fmt.Errorf("%w: unknown Logging.severity %q", ErrInvalidConfig, d.Logging.Severity)
	}
	for i, spec := range d.Collisions {
		if spec.First == "" || spec.Second == "" {
			return fmt.Errorf("%w: Collisions[%d] must name both abilities", ErrInvalidConfig, i)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. Invalid values are logged
// and ignored.
func (d *Document) ApplyEnv(getenv func(string) string, logger telemetry.Logger) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if raw := getenv(EnvTickRate); raw != "" {
		value, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			logger.Printf("invalid %s=%q: %v", EnvTickRate, raw, err)
		case value <= 0:
			logger.Printf("invalid %s=%q: must be positive", EnvTickRate, raw)
		default:
			d.Server.TickRate = value
		}
	}
	if raw := getenv(EnvHTTPAddr); raw != "" {
		d.Server.HTTPAddr = raw
	}
	if raw := getenv(EnvAddonDir); raw != "" {
		d.Server.AddonDir = raw
	}
	if raw := getenv(EnvPerActorCommandLimit); raw != "" {
		value, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			logger.Printf("invalid %s=%q: %v", EnvPerActorCommandLimit, raw, err)
		case value < 0:
			logger.Printf("invalid %s=%q: must not be negative", EnvPerActorCommandLimit, raw)
		default:
			d.Server.PerActorCommandLimit = value
		}
	}
}
