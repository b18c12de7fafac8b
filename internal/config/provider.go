package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Provider answers dotted-path lookups over a parsed YAML tree, the way
// plugin configuration files are addressed ("Abilities.Air.Gust.Enabled").
// Keys match exactly first and case-insensitively as a fallback.
type Provider struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewProvider wraps an already decoded tree. A nil tree behaves as empty.
func NewProvider(root map[string]any) *Provider {
	if root == nil {
		root = make(map[string]any)
	}
	return &Provider{root: root}
}

// ParseProvider decodes YAML bytes into a Provider.
func ParseProvider(data []byte) (*Provider, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("config: parse tree: %w", err)
	}
	return NewProvider(root), nil
}

// Lookup returns the raw value stored at path.
func (p *Provider) Lookup(path string) (any, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var current any = p.root
	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(node any, key string) (any, bool) {
	switch typed := node.(type) {
	case map[string]any:
		if v, ok := typed[key]; ok {
			return v, true
		}
		for k, v := range typed {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	case map[any]any:
		if v, ok := typed[key]; ok {
			return v, true
		}
		for k, v := range typed {
			if s, ok := k.(string); ok && strings.EqualFold(s, key) {
				return v, true
			}
		}
	}
	return nil, false
}

// Bool reads a boolean, accepting YAML booleans and their string forms.
func (p *Provider) Bool(path string, fallback bool) bool {
	raw, ok := p.Lookup(path)
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

// String reads a scalar as text.
func (p *Provider) String(path, fallback string) string {
	raw, ok := p.Lookup(path)
	if !ok || raw == nil {
		return fallback
	}
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any, map[any]any, []any:
		return fallback
	default:
		return fmt.Sprint(v)
	}
}

// Float reads a number.
func (p *Provider) Float(path string, fallback float64) float64 {
	raw, ok := p.Lookup(path)
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// Int reads an integer. Fractional values are truncated.
func (p *Provider) Int(path string, fallback int) int {
	raw, ok := p.Lookup(path)
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

// Set stores value at path, creating intermediate sections.
func (p *Provider) Set(path string, value any) {
	if p == nil || path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	segments := strings.Split(path, ".")
	node := p.root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
}
