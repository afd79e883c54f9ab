package extract

import (
	"os"

	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AddressSelectors locates address groups and their sub-elements.
type AddressSelectors struct {
	Group    string `yaml:"group"`
	Physical string `yaml:"physical"`
	Email    string `yaml:"email"`
	Website  string `yaml:"website"`
	Tel      string `yaml:"tel"`
}

// OfficialSelectors locates official groups and their sub-elements.
type OfficialSelectors struct {
	Group string `yaml:"group"`
	Title string `yaml:"title"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Tel   string `yaml:"tel"`
}

// Selectors is a page-layout profile. FaxMarker is the substring of a tel: link
// target that marks it as a fax line (matched case-insensitively).
type Selectors struct {
	Addresses AddressSelectors  `yaml:"addresses"`
	Officials OfficialSelectors `yaml:"officials"`
	FaxMarker string            `yaml:"fax_marker"`
}

// DefaultSelectors returns the US Vote Foundation office page layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Addresses: AddressSelectors{
			Group:    ".office-addresses .address",
			Physical: ".physical",
			Email:    "a[href^='mailto:']",
			Website:  "a[href]",
			Tel:      "a[href^='tel:']",
		},
		Officials: OfficialSelectors{
			Group: ".office-officials .official",
			Title: ".title-row .label h4",
			Name:  ".title-row .value",
			Email: "a[href^='mailto:']",
			Tel:   "a[href^='tel:']",
		},
		FaxMarker: "fax",
	}
}

// LoadSelectors reads a YAML selector profile. Keys missing from the file keep
// their default values.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return Selectors{}, eris.Wrapf(err, "extract: read selectors %s", path)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return Selectors{}, eris.Wrapf(err, "extract: parse selectors %s", path)
	}
	if err := sel.Validate(); err != nil {
		return Selectors{}, err
	}
	return sel, nil
}

// Validate checks that every selector compiles.
func (s Selectors) Validate() error {
	checks := []struct {
		key, css string
	}{
		{"addresses.group", s.Addresses.Group},
		{"addresses.physical", s.Addresses.Physical},
		{"addresses.email", s.Addresses.Email},
		{"addresses.website", s.Addresses.Website},
		{"addresses.tel", s.Addresses.Tel},
		{"officials.group", s.Officials.Group},
		{"officials.title", s.Officials.Title},
		{"officials.name", s.Officials.Name},
		{"officials.email", s.Officials.Email},
		{"officials.tel", s.Officials.Tel},
	}
	for _, c := range checks {
		if c.css == "" {
			return eris.Errorf("extract: selector %s is empty", c.key)
		}
		if _, err := cascadia.ParseGroup(c.css); err != nil {
			return eris.Wrapf(err, "extract: selector %s", c.key)
		}
	}
	if s.FaxMarker == "" {
		return eris.New("extract: fax_marker is empty")
	}
	return nil
}
