package namespaces

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/malbeclabs/viewgen/generator/pkg/views"
)

// ViewConfig is an explicitly declared view.
type ViewConfig struct {
	Type   string        `yaml:"type"`
	Tables []views.Table `yaml:"tables"`
}

// Namespace groups the views of one application.
type Namespace struct {
	PrettyName string `yaml:"pretty_name"`
	// GleanApp marks applications that report metrics to the catalog.
	GleanApp bool `yaml:"glean_app"`
	// AppName is the catalog key; defaults to the namespace name for glean
	// applications.
	AppName  string                `yaml:"app_name"`
	Channels []views.Channel       `yaml:"channels"`
	Views    map[string]ViewConfig `yaml:"views"`
}

// Config maps namespace name to its definition.
type Config map[string]Namespace

// Load reads a namespaces file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open namespaces file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode namespaces: %w", err)
	}
	if cfg == nil {
		cfg = Config{}
	}
	for name, ns := range cfg {
		if ns.GleanApp && ns.AppName == "" {
			ns.AppName = name
			cfg[name] = ns
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for _, name := range c.Names() {
		ns := c[name]
		for _, ch := range ns.Channels {
			if ch.Dataset == "" {
				return fmt.Errorf("namespace %s: channel %q has no dataset", name, ch.Channel)
			}
		}
		for _, viewName := range sortedKeys(ns.Views) {
			v := ns.Views[viewName]
			switch v.Type {
			case views.TypePingView:
			case views.TypeGleanPingView:
				if !ns.GleanApp {
					return fmt.Errorf("namespace %s: view %s is a %s but the namespace is not a glean app", name, viewName, v.Type)
				}
			default:
				return fmt.Errorf("namespace %s: view %s has unknown type %q", name, viewName, v.Type)
			}
			if len(v.Tables) == 0 {
				return fmt.Errorf("namespace %s: view %s has no tables", name, viewName)
			}
			for _, t := range v.Tables {
				if t.Table == "" {
					return fmt.Errorf("namespace %s: view %s has a table without a name", name, viewName)
				}
				if len(v.Tables) > 1 && t.Channel == "" {
					return fmt.Errorf("namespace %s: view %s has several tables so each needs a channel", name, viewName)
				}
			}
		}
	}
	return nil
}

// Names returns the namespace names in sorted order.
func (c Config) Names() []string {
	return sortedKeys(c)
}

// Definitions returns the explicitly declared views of namespace name, sorted
// by view name.
func (c Config) Definitions(name string) []views.Definition {
	ns := c[name]
	defs := make([]views.Definition, 0, len(ns.Views))
	for _, viewName := range sortedKeys(ns.Views) {
		v := ns.Views[viewName]
		defs = append(defs, views.Definition{
			Name:      viewName,
			Type:      v.Type,
			Namespace: name,
			AppName:   ns.AppName,
			Tables:    v.Tables,
		})
	}
	return defs
}

// Datasets returns every distinct channel dataset, sorted.
func (c Config) Datasets() []string {
	seen := make(map[string]bool)
	for _, ns := range c {
		for _, ch := range ns.Channels {
			seen[ch.Dataset] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
