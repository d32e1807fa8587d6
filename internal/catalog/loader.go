package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Applications []Application `yaml:"applications"`
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML catalog. Missing display names are derived from ids
// and applications default to enabled unless "enabled: false" is given.
func Decode(r io.Reader) (*Catalog, error) {
	var raw struct {
		Applications []yaml.Node `yaml:"applications"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return New()
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	apps := make([]Application, 0, len(raw.Applications))
	for i := range raw.Applications {
		node := &raw.Applications[i]
		app := Application{IsEnabled: true}
		if err := node.Decode(&app); err != nil {
			return nil, fmt.Errorf("catalog: application #%d: %w", i+1, err)
		}
		apps = append(apps, withDisplayNames(app))
	}
	return New(apps...)
}

// Encode writes the catalog in the format Decode reads.
func Encode(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fileFormat{Applications: c.ListApplications()}); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	return enc.Close()
}

func withDisplayNames(app Application) Application {
	if app.Name == "" {
		app.Name = displayName(app.ID)
	}
	for i := range app.Modules {
		m := &app.Modules[i]
		if m.Name == "" {
			m.Name = displayName(m.ID)
		}
		for j := range m.Actions {
			if m.Actions[j].Name == "" {
				m.Actions[j].Name = displayName(m.Actions[j].ID)
			}
		}
	}
	return app
}

// displayName turns an id such as "purchase-orders" into "Purchase Orders".
func displayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}
