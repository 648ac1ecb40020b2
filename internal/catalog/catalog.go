package catalog

import (
	"fmt"
	"os"

	"egzersizlab/internal/evaluation"

	"gopkg.in/yaml.v3"
)

// Modality is the interaction kind a test requires.
type Modality string

const (
	ModalityVideoCapture      Modality = "video-capture"
	ModalityMeasurement       Modality = "measurement"
	ModalityResponseSelection Modality = "response-selection"
	ModalityTimedBalance      Modality = "timed-balance"
)

// Test describes one self-test as loaded from the catalog file.
// Modality-specific metadata lives in exactly one of the optional
// Measurement/Response/Balance/Capture blocks; Validate enforces that.
type Test struct {
	ID           string                `yaml:"id"`
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Duration     string                `yaml:"duration,omitempty"`
	Modality     Modality              `yaml:"modality"`
	Instructions []string              `yaml:"instructions"`
	Regions      []string              `yaml:"regions,omitempty"`
	Criteria     *evaluation.Criteria  `yaml:"criteria,omitempty"`
	Measurement  *MeasurementMeta      `yaml:"measurement,omitempty"`
	Response     *ResponseMeta         `yaml:"response,omitempty"`
	Balance      *BalanceMeta          `yaml:"balance,omitempty"`
	Capture      *CaptureMeta          `yaml:"capture,omitempty"`
}

// MeasurementMeta describes a numeric-entry test.
type MeasurementMeta struct {
	Unit      string `yaml:"unit" json:"unit"`
	Bilateral bool   `yaml:"bilateral" json:"bilateral"`
}

// ResponseMeta describes a response-selection test.
type ResponseMeta struct {
	Options []ResponseOption `yaml:"options" json:"options"`
}

// ResponseOption is one selectable answer with its resolved result text.
type ResponseOption struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Result      string `yaml:"result" json:"result"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// BalanceMeta describes a timed-balance test variant.
type BalanceMeta struct {
	Variant    string `yaml:"variant" json:"variant"` // e.g. "eyes-open", "eyes-closed"
	MaxSeconds int    `yaml:"max_seconds" json:"maxSeconds"`
}

// CaptureMeta describes a video-capture test.
type CaptureMeta struct {
	Steps []string `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Option returns the response option with the given id.
func (r *ResponseMeta) Option(id string) (ResponseOption, bool) {
	for _, opt := range r.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ResponseOption{}, false
}

// Category groups an ordered list of tests under one display title.
type Category struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Tests []Test `yaml:"tests"`
}

// Catalog holds all test categories. Loaded once at process start and
// read-only afterwards, so it is safe to share across sessions.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// Load reads and parses the test catalog file, then validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog YAML: %w", err)
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &cat, nil
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (*Category, bool) {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i], true
		}
	}
	return nil, false
}

// Test returns the test with the given id, searching all categories.
func (c *Catalog) Test(id string) (*Test, *Category, bool) {
	for i := range c.Categories {
		for j := range c.Categories[i].Tests {
			if c.Categories[i].Tests[j].ID == id {
				return &c.Categories[i].Tests[j], &c.Categories[i], true
			}
		}
	}
	return nil, nil, false
}

// Validate checks every test carries the metadata its modality requires
// and that evaluation criteria partition cleanly. A test that passes here
// can be dispatched on modality without further shape checks.
func (c *Catalog) Validate() error {
	seen := make(map[string]string)
	for _, cat := range c.Categories {
		if len(cat.Tests) == 0 {
			return fmt.Errorf("category %q has no tests", cat.ID)
		}
		for _, t := range cat.Tests {
			if prev, dup := seen[t.ID]; dup {
				return fmt.Errorf("test id %q appears in both %q and %q", t.ID, prev, cat.ID)
			}
			seen[t.ID] = cat.ID

			if err := t.validate(); err != nil {
				return fmt.Errorf("test %q: %w", t.ID, err)
			}
		}
	}
	return nil
}

func (t *Test) validate() error {
	switch t.Modality {
	case ModalityVideoCapture:
		// Capture steps are optional; the instruction list carries the rest.
	case ModalityMeasurement:
		if t.Measurement == nil {
			return fmt.Errorf("measurement modality requires a measurement block")
		}
		if t.Criteria == nil {
			return fmt.Errorf("measurement modality requires criteria")
		}
	case ModalityResponseSelection:
		if t.Response == nil || len(t.Response.Options) == 0 {
			return fmt.Errorf("response-selection modality requires response options")
		}
	case ModalityTimedBalance:
		if t.Balance == nil || t.Balance.MaxSeconds <= 0 {
			return fmt.Errorf("timed-balance modality requires a positive max_seconds")
		}
		if t.Criteria == nil {
			return fmt.Errorf("timed-balance modality requires criteria")
		}
	default:
		return fmt.Errorf("unknown modality %q", t.Modality)
	}

	if t.Criteria != nil {
		if err := t.Criteria.Validate(); err != nil {
			return fmt.Errorf("criteria: %w", err)
		}
	}
	return nil
}
