// Package loader discovers ability definitions from in-process plugins and
// interpreted addon scripts and registers them with the catalog.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"ability-engine/internal/ability"
	"ability-engine/internal/catalog"
	"ability-engine/internal/loader/addonapi"
	"ability-engine/internal/telemetry"
	"ability-engine/logging"
	loaderLog "ability-engine/logging/loader"
)

// Descriptor produces one cold definition. It must not activate anything.
type Descriptor func() (*ability.Definition, error)

var (
	ErrIncomplete   = errors.New("loader: incomplete definition")
	ErrNoEntryPoint = errors.New("loader: addon script has no Register entry point")
	ErrNoContract   = errors.New("loader: addon definition lacks the addon contract")
)

// Packages addon scripts may import besides the addon API.
var allowedPackages = []string{
	"fmt/fmt",
	"math/math",
	"strings/strings",
	"strconv/strconv",
	"time/time",
	"errors/errors",
}

const (
	metricRegistered = "loader.registered"
	metricFailed     = "loader.failed"
)

// Config wires a Loader.
type Config struct {
	Catalog *catalog.Catalog
	// Enablement decides whether a definition without its own predicate is
	// enabled. It is evaluated lazily.
	Enablement func(def *ability.Definition) bool
	// Describe fills in presentation text the definition left empty.
	Describe  func(def *ability.Definition)
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Report summarises one scan.
type Report struct {
	Registered []string          `json:"registered"`
	Disabled   []string          `json:"disabled,omitempty"`
	Skipped    []string          `json:"skipped,omitempty"`
	Failed     map[string]string `json:"failed,omitempty"`
}

func (r *Report) fail(name string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[name] = err.Error()
}

// Merge folds other into r.
func (r *Report) Merge(other Report) {
	r.Registered = append(r.Registered, other.Registered...)
	r.Disabled = append(r.Disabled, other.Disabled...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	for name, reason := range other.Failed {
		if r.Failed == nil {
			r.Failed = make(map[string]string)
		}
		r.Failed[name] = reason
	}
}

// Loader registers definitions into a catalog. Scans are serialised.
type Loader struct {
	catalog    *catalog.Catalog
	enablement func(def *ability.Definition) bool
	describe   func(def *ability.Definition)
	logger     telemetry.Logger
	metrics    telemetry.Metrics
	publisher  logging.Publisher

	mu       sync.Mutex
	disabled map[string]struct{}
}

// New constructs a Loader.
func New(cfg Config) *Loader {
	l := &Loader{
		catalog:    cfg.Catalog,
		enablement: cfg.Enablement,
		describe:   cfg.Describe,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		publisher:  cfg.Publisher,
		disabled:   make(map[string]struct{}),
	}
	if l.catalog == nil {
		l.catalog = catalog.New()
	}
	if l.logger == nil {
		l.logger = telemetry.NopLogger()
	}
	if l.metrics == nil {
		l.metrics = telemetry.NopMetrics()
	}
	if l.publisher == nil {
		l.publisher = logging.NopPublisher()
	}
	return l
}

// Catalog returns the catalog the loader registers into.
func (l *Loader) Catalog() *catalog.Catalog {
	return l.catalog
}

// RegisterAll clears the catalog and registers the plugin descriptors and
// then every addon found in dir. Disabled names are reported once across
// both sources, and again only after the next RegisterAll.
func (l *Loader) RegisterAll(plugin string, descriptors []Descriptor, dir string) Report {
	l.mu.Lock()
	l.disabled = make(map[string]struct{})
	l.mu.Unlock()
	l.catalog.Clear()
	report := l.RegisterPlugin(plugin, descriptors)
	if dir != "" {
		report.Merge(l.RegisterAddons(dir))
	}
	return report
}

// RegisterPlugin registers every descriptor of an in-process plugin. A
// failing descriptor never affects its siblings.
func (l *Loader) RegisterPlugin(plugin string, descriptors []Descriptor) Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report Report
	for i, describe := range descriptors {
		def, err := safeDescribe(describe)
		if err != nil {
			name := fmt.Sprintf("%s[%d]", plugin, i)
			report.fail(name, err)
			l.metrics.Add(metricFailed, 1)
			l.logger.Printf("[loader] %s: failed to build definition: %v", name, err)
			loaderLog.DefinitionSkipped(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: name, Source: plugin, Reason: err.Error()})
			continue
		}
		if !complete(def) {
			name := fmt.Sprintf("%s[%d]", plugin, i)
			if def != nil && def.Name != "" {
				name = def.Name
			}
			report.Skipped = append(report.Skipped, name)
			loaderLog.DefinitionSkipped(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: name, Source: plugin, Reason: ErrIncomplete.Error()})
			continue
		}

		l.prepare(def)
		if !def.IsEnabled() {
			if l.noteDisabled(def, plugin) {
				report.Disabled = append(report.Disabled, def.Name)
			}
			continue
		}
		if err := l.catalog.Register(def); err != nil {
			report.fail(def.Name, err)
			l.metrics.Add(metricFailed, 1)
			l.logger.Printf("[loader] %s: %v", def.Name, err)
			continue
		}
		if def.Caps.Addon && def.HasAddonContract() {
			if err := safeLoad(def); err != nil {
				l.unload(def, plugin, err, true)
				report.fail(def.Name, err)
				continue
			}
		}
		report.Registered = append(report.Registered, def.Name)
		l.metrics.Add(metricRegistered, 1)
		loaderLog.DefinitionRegistered(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: def.Name, Source: plugin})
	}
	return report
}

// RegisterAddons interprets every *.go script in dir and registers the
// definitions each declares. A missing directory is created and the scan
// ends there.
func (l *Loader) RegisterAddons(dir string) Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report Report
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			l.logger.Printf("[loader] unable to create addon directory %s: %v", dir, err)
		}
		return report
	}
	if err != nil || !info.IsDir() {
		l.logger.Printf("[loader] addon path %s is not a directory", dir)
		return report
	}

	scripts, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		l.logger.Printf("[loader] unable to list addons in %s: %v", dir, err)
		return report
	}
	sort.Strings(scripts)

	for _, script := range scripts {
		source := filepath.Base(script)
		registrar, err := l.evaluate(script)
		if err != nil {
			report.fail(source, err)
			l.metrics.Add(metricFailed, 1)
			l.logger.Printf("[loader] %s: %v; remove it from %s if the problem persists", source, err, dir)
			loaderLog.AddonFailed(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: source, Source: source, Reason: err.Error()})
			continue
		}
		if specErr := registrar.Err(); specErr != nil {
			l.logger.Printf("[loader] %s: rejected specs: %v", source, specErr)
		}
		for _, def := range registrar.Definitions() {
			l.registerAddon(def, source, &report)
		}
	}
	return report
}

func (l *Loader) registerAddon(def *ability.Definition, source string, report *Report) {
	if !complete(def) {
		report.Skipped = append(report.Skipped, def.Name)
		return
	}
	if !def.HasAddonContract() {
		l.logger.Printf("[loader] %s from %s does not provide author, load and stop; skipping", def.Name, source)
		report.Skipped = append(report.Skipped, def.Name)
		loaderLog.DefinitionSkipped(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: def.Name, Source: source, Reason: ErrNoContract.Error()})
		return
	}
	def.Caps.Addon = true

	l.prepare(def)
	if !def.IsEnabled() {
		if l.noteDisabled(def, source) {
			report.Disabled = append(report.Disabled, def.Name)
		}
		return
	}
	if err := safeLoad(def); err != nil {
		l.unload(def, source, err, false)
		report.fail(def.Name, err)
		return
	}
	if err := l.catalog.Register(def); err != nil {
		l.unload(def, source, err, false)
		report.fail(def.Name, err)
		return
	}
	report.Registered = append(report.Registered, def.Name)
	l.metrics.Add(metricRegistered, 1)
	loaderLog.DefinitionRegistered(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: def.Name, Source: source})
}

// evaluate runs one script and calls its Register entry point.
func (l *Loader) evaluate(path string) (registrar *addonapi.Registrar, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	registrar = addonapi.NewRegistrar(filepath.Base(path))
	defer func() {
		if recovered := recover(); recovered != nil {
			registrar, err = nil, fmt.Errorf("addon panicked: %v", recovered)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(restrictedStdlib()); err != nil {
		return nil, fmt.Errorf("stdlib: %w", err)
	}
	if err := i.Use(addonapi.Exports()); err != nil {
		return nil, fmt.Errorf("addon api: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	entry, err := i.Eval("Register")
	if err != nil || entry.Kind() != reflect.Func {
		return nil, ErrNoEntryPoint
	}
	if fn, ok := entry.Interface().(func(*addonapi.Registrar)); ok {
		fn(registrar)
	} else {
		entry.Call([]reflect.Value{reflect.ValueOf(registrar)})
	}
	return registrar, nil
}

func restrictedStdlib() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range allowedPackages {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
}

// prepare attaches config-driven enablement and language text.
func (l *Loader) prepare(def *ability.Definition) {
	if l.describe != nil {
		l.describe(def)
	}
	if def.Enabled == nil && l.enablement != nil {
		enablement := l.enablement
		snapshot := def.Clone()
		def.Enabled = func() bool { return enablement(snapshot) }
	}
}

// noteDisabled logs a disabled definition once per name until the next
// RegisterAll.
func (l *Loader) noteDisabled(def *ability.Definition, source string) bool {
	key := def.Key()
	if _, seen := l.disabled[key]; seen {
		return false
	}
	l.disabled[key] = struct{}{}
	l.logger.Printf("[loader] %s is disabled", def.Name)
	loaderLog.DefinitionDisabled(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: def.Name, Source: source})
	return true
}

// unload reverses a partial addon registration. The catalog entry is only
// dropped when this call registered it.
func (l *Loader) unload(def *ability.Definition, source string, cause error, registered bool) {
	if def.Addon != nil && def.Addon.Stop != nil {
		if err := safeCall(def.Addon.Stop); err != nil {
			l.logger.Printf("[loader] %s: stop hook failed: %v", def.Name, err)
		}
	}
	if registered {
		l.catalog.RemoveIf(def.Name, def.Type)
	}
	l.metrics.Add(metricFailed, 1)
	l.logger.Printf("[loader] %s from %s failed to load and was unloaded: %v; remove it from your addons", def.Name, source, cause)
	loaderLog.AddonFailed(context.Background(), l.publisher, loaderLog.DefinitionPayload{Name: def.Name, Source: source, Reason: cause.Error()})
}

func complete(def *ability.Definition) bool {
	return def != nil && strings.TrimSpace(def.Name) != "" && def.Instantiable()
}

func safeDescribe(describe Descriptor) (def *ability.Definition, err error) {
	if describe == nil {
		return nil, ErrIncomplete
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			def, err = nil, fmt.Errorf("descriptor panicked: %v", recovered)
		}
	}()
	return describe()
}

func safeLoad(def *ability.Definition) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("load hook panicked: %v", recovered)
		}
	}()
	if err := def.Addon.Load(); err != nil {
		return fmt.Errorf("load hook: %w", err)
	}
	return nil
}

func safeCall(fn func()) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panicked: %v", recovered)
		}
	}()
	fn()
	return nil
}
