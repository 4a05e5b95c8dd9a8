package catalog

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fileApplication struct {
	Application `yaml:",inline"`
	Probes      []MetricProbe `yaml:"probes"`
}

type fileCatalogDoc struct {
	Applications []fileApplication `yaml:"applications"`
}

// FileCatalog is a static catalog loaded from YAML:
//
//	applications:
//	  - name: fenix
//	    probes:
//	      - id: app.foo
//	        type: counter
//	        send_in_pings: [metrics]
type FileCatalog struct {
	apps   []Application
	probes map[string][]MetricProbe
}

// LoadFileCatalog reads a catalog from path.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return ParseFileCatalog(f)
}

func ParseFileCatalog(r io.Reader) (*FileCatalog, error) {
	var doc fileCatalogDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &FileCatalog{probes: make(map[string][]MetricProbe, len(doc.Applications))}
	for _, app := range doc.Applications {
		if app.Name == "" {
			return nil, fmt.Errorf("catalog application without a name")
		}
		if _, ok := c.probes[app.Name]; ok {
			return nil, fmt.Errorf("duplicate catalog application %q", app.Name)
		}
		for i, p := range app.Probes {
			if p.ID == "" || p.Type == "" {
				return nil, fmt.Errorf("application %q probe %d: id and type are required", app.Name, i)
			}
		}
		c.apps = append(c.apps, app.Application)
		c.probes[app.Name] = app.Probes
	}
	return c, nil
}

func (c *FileCatalog) Applications(ctx context.Context) ([]Application, error) {
	return c.apps, nil
}

func (c *FileCatalog) Probes(ctx context.Context, app Application) ([]MetricProbe, error) {
	probes, ok := c.probes[app.Name]
	if !ok {
		return nil, fmt.Errorf("unknown application %q", app.Name)
	}
	return probes, nil
}
