// Package region is the static directory of administrative regions (시/도)
// and their cities (시/군/구).
package region

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

type entry struct {
	Name       string   `yaml:"name"`
	Selectable bool     `yaml:"selectable"`
	Cities     []string `yaml:"cities"`
}

type file struct {
	Regions []entry `yaml:"regions"`
}

// Directory answers region and city lookups. It is read-only after Load.
type Directory struct {
	order  []string
	cities map[string][]string
}

// Load parses the embedded directory.
func Load() (*Directory, error) {
	return parse(regionsYAML)
}

// MustLoad is Load for package-level wiring; the embedded data is fixed at
// build time, so a failure is a programming error.
func MustLoad() *Directory {
	d, err := Load()
	if err != nil {
		panic(err)
	}
	return d
}

func parse(data []byte) (*Directory, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("region: decoding directory: %w", err)
	}

	d := &Directory{cities: make(map[string][]string, len(f.Regions))}
	for _, r := range f.Regions {
		if r.Name == "" {
			return nil, fmt.Errorf("region: entry without a name")
		}
		if _, dup := d.cities[r.Name]; dup {
			return nil, fmt.Errorf("region: duplicate region %q", r.Name)
		}

		cities := make([]string, 0, len(r.Cities)+1)
		if r.Selectable {
			cities = append(cities, r.Name)
		}
		cities = append(cities, r.Cities...)

		d.order = append(d.order, r.Name)
		d.cities[r.Name] = cities
	}
	return d, nil
}

// Regions returns every region in display order.
func (d *Directory) Regions() []string {
	return slices.Clone(d.order)
}

// Cities returns the cities of region and whether the region exists.
func (d *Directory) Cities(region string) ([]string, bool) {
	cities, ok := d.cities[region]
	if !ok {
		return nil, false
	}
	return slices.Clone(cities), true
}

// Contains reports whether city is a valid choice inside region.
func (d *Directory) Contains(region, city string) bool {
	return slices.Contains(d.cities[region], city)
}

// HasCity reports whether city exists in any region. Admin tools use it to
// validate the city they post or browse as.
func (d *Directory) HasCity(city string) bool {
	for _, cities := range d.cities {
		if slices.Contains(cities, city) {
			return true
		}
	}
	return false
}
