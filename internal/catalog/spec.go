// Package catalog loads the template/resource catalog file and serves
// read-only access to seeded catalog data.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the parsed catalog file (catalog.yaml).
type File struct {
	Templates []TemplateSpec `yaml:"templates"`
	Resources []ResourceSpec `yaml:"resources"`
}

// TemplateSpec is one maintenance template as authored in the catalog file.
type TemplateSpec struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	Category       string       `yaml:"category"`
	EquipmentTypes []string     `yaml:"equipment_types"`
	EstimatedTotal int          `yaml:"estimated_total"` // minutes; defaults to the sum of action durations
	Inactive       bool         `yaml:"inactive"`
	Actions        []ActionSpec `yaml:"actions"`
}

// ActionSpec is one ordered step in a template. Order is the position in the
// actions list.
type ActionSpec struct {
	ID                string           `yaml:"id"`
	Title             string           `yaml:"title"`
	Description       string           `yaml:"description"`
	Type              string           `yaml:"type"`
	Priority          string           `yaml:"priority"`
	EstimatedDuration int              `yaml:"estimated_duration"` // minutes
	DependsOn         []string         `yaml:"depends_on"`         // action IDs within the same template
	Resources         []string         `yaml:"resources"`
	Skills            []string         `yaml:"skills"`
	Safety            []string         `yaml:"safety"`
	RequiresApproval  bool             `yaml:"requires_approval"`
	Checkpoints       []CheckpointSpec `yaml:"checkpoints"`
}

// CheckpointSpec is a sub-verification inside a template action.
type CheckpointSpec struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Mandatory   bool   `yaml:"mandatory"`
}

// LoadFile reads and validates a catalog file from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile unmarshals YAML bytes into a validated catalog File.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// applyDefaults fills in derived values.
func (f *File) applyDefaults() {
	for i := range f.Templates {
		t := &f.Templates[i]
		if t.EstimatedTotal == 0 {
			for _, a := range t.Actions {
				t.EstimatedTotal += a.EstimatedDuration
			}
		}
		for j := range t.Actions {
			if t.Actions[j].Type == "" {
				t.Actions[j].Type = "execution"
			}
			if t.Actions[j].Priority == "" {
				t.Actions[j].Priority = "medium"
			}
		}
	}
}

// validate checks id uniqueness and dependency integrity across the file.
func (f *File) validate() error {
	var errs []string

	seenTemplates := make(map[string]bool)
	for ti, t := range f.Templates {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("templates[%d].id is required", ti))
			continue
		}
		if seenTemplates[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate template id %s", t.ID))
		}
		seenTemplates[t.ID] = true
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("template %s: name is required", t.ID))
		}

		actionIDs := make(map[string]bool)
		for ai, a := range t.Actions {
			if a.ID == "" {
				errs = append(errs, fmt.Sprintf("template %s: actions[%d].id is required", t.ID, ai))
				continue
			}
			if actionIDs[a.ID] {
				errs = append(errs, fmt.Sprintf("template %s: duplicate action id %s", t.ID, a.ID))
			}
			actionIDs[a.ID] = true
			if a.Title == "" {
				errs = append(errs, fmt.Sprintf("template %s: action %s: title is required", t.ID, a.ID))
			}
		}
		for _, a := range t.Actions {
			for _, dep := range a.DependsOn {
				if dep == a.ID {
					errs = append(errs, fmt.Sprintf("template %s: action %s depends on itself", t.ID, a.ID))
				} else if !actionIDs[dep] {
					errs = append(errs, fmt.Sprintf("template %s: action %s depends on unknown action %s", t.ID, a.ID, dep))
				}
			}
		}
	}

	seenResources := make(map[string]bool)
	for ri, r := range f.Resources {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("resources[%d].id is required", ri))
			continue
		}
		if seenResources[r.ID] {
			errs = append(errs, fmt.Sprintf("duplicate resource id %s", r.ID))
		}
		seenResources[r.ID] = true
		switch r.Type {
		case "part", "consumable", "human":
		default:
			errs = append(errs, fmt.Sprintf("resource %s: type %q is not supported (part, consumable, human)", r.ID, r.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResourceSpec is one resource catalog entry.
type ResourceSpec struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"` // part, consumable, human
	Quantity int     `yaml:"quantity"`
	Unit     string  `yaml:"unit"`
	UnitCost float64 `yaml:"unit_cost"`
	Supplier string  `yaml:"supplier"`
}
