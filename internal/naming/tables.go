package naming

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables holds the static rename and fallback data.
type Tables struct {
	// Aliases maps a legacy name to its current name.
	Aliases map[string]string `yaml:"aliases" toml:"aliases"`
	// Fallbacks lists older names still present in some backend.
	Fallbacks map[string][]string `yaml:"fallbacks" toml:"fallbacks"`
	// Priority names are tried against the fast tier first.
	Priority []string `yaml:"priority" toml:"priority"`
}

// DefaultTables returns the built-in asset tables.
func DefaultTables() Tables {
	return Tables{
		Aliases: map[string]string{
			"hhh_nxf9ww.glb": "hhb_nxf9ww.glb",
		},
		Fallbacks: map[string][]string{
			"nissan2.glb": {"nissan1.glb", "nissan.glb"},
			"bibi3.glb":   {"bibi2.glb", "bibi.glb"},
		},
		Priority: []string{
			"cloth_sim.glb",
			"DRAP+Barrel Model1.glb",
			"Desk-bati.glb",
			"spaceship.glb",
			"nissan1.glb",
			"nissan2.glb",
			"nissan.glb",
		},
	}
}

// Merge overlays other onto t. Alias and fallback keys in other replace
// those in t; priority names are appended.
func (t Tables) Merge(other Tables) Tables {
	out := Tables{
		Aliases:   make(map[string]string, len(t.Aliases)+len(other.Aliases)),
		Fallbacks: make(map[string][]string, len(t.Fallbacks)+len(other.Fallbacks)),
	}
	for k, v := range t.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range other.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range t.Fallbacks {
		out.Fallbacks[k] = append([]string(nil), v...)
	}
	for k, v := range other.Fallbacks {
		out.Fallbacks[k] = append([]string(nil), v...)
	}
	out.Priority = append(append([]string(nil), t.Priority...), other.Priority...)
	return out
}

// LoadCatalog reads a YAML catalog file. A blank path yields empty tables.
func LoadCatalog(path string) (Tables, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Tables{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, err
	}
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return tables, nil
}
