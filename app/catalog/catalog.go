package catalog

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog holds the enumerated values a subscription may reference. The
// built-in defaults mirror the British Cycling regions and disciplines; a
// YAML file can override either list for other federations.
type Catalog struct {
	Regions        []string `yaml:"regions"`
	Disciplines    []string `yaml:"disciplines"`
	DefaultSendDay string   `yaml:"default_send_day"`
}

var defaultRegions = []string{
	"Central",
	"Eastern",
	"London & South East",
	"East Midlands",
	"West Midlands",
	"North East",
	"North West",
	"Scotland",
	"South",
	"South West",
	"Wales",
	"Yorkshire & Humber",
}

var defaultDisciplines = []string{
	"Road",
	"Track",
	"BMX",
	"MTB",
	"Cyclo Cross",
	"Speedway",
	"Time Trial",
	"Hill Climb",
}

func Default() *Catalog {
	return &Catalog{
		Regions:        slices.Clone(defaultRegions),
		Disciplines:    slices.Clone(defaultDisciplines),
		DefaultSendDay: "Friday",
	}
}

// Load reads a catalog override file. Missing fields fall back to the
// defaults; an empty path returns the default catalog unchanged.
func Load(path string) (*Catalog, error) {
	catalog := Default()

	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	if len(override.Regions) > 0 {
		catalog.Regions = override.Regions
	}
	if len(override.Disciplines) > 0 {
		catalog.Disciplines = override.Disciplines
	}
	if override.DefaultSendDay != "" {
		if !ValidWeekday(override.DefaultSendDay) {
			return nil, fmt.Errorf("invalid default_send_day: %s", override.DefaultSendDay)
		}
		catalog.DefaultSendDay = override.DefaultSendDay
	}

	return catalog, nil
}

func (c *Catalog) ValidRegion(region string) bool {
	return slices.Contains(c.Regions, region)
}

func (c *Catalog) ValidDiscipline(discipline string) bool {
	return slices.Contains(c.Disciplines, discipline)
}

// ValidWeekday reports whether name is an English weekday name as produced
// by time.Weekday.String.
func ValidWeekday(name string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return true
		}
	}
	return false
}
