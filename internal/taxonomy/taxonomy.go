package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultYAML []byte

// Intent is a secondary category.
type Intent struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Category is a primary category with its ordered secondary intents.
type Category struct {
	Name    string   `yaml:"name"`
	Intents []Intent `yaml:"intents"`
}

// Pair is a (primary, secondary) label.
type Pair struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// Example is a worked classification shown to the model.
type Example struct {
	Message   string `yaml:"message"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	Reasoning string `yaml:"reasoning"`
	Wrong     *Pair  `yaml:"wrong,omitempty"`
}

// FallbackRule maps keywords to a label for rule-based classification.
type FallbackRule struct {
	Primary   string   `yaml:"primary"`
	Secondary string   `yaml:"secondary"`
	Keywords  []string `yaml:"keywords"`
}

// Taxonomy is the closed set of intents plus the text used to build prompts.
// It is read-only once loaded and safe to share between goroutines.
type Taxonomy struct {
	Company    string         `yaml:"company"`
	Rules      []string       `yaml:"rules"`
	Categories []Category     `yaml:"categories"`
	Examples   []Example      `yaml:"examples"`
	Default    Pair           `yaml:"default"`
	Fallback   []FallbackRule `yaml:"fallback"`

	index        map[string]map[string]bool
	instructions string
}

// Default returns the embedded taxonomy.
func Default() (*Taxonomy, error) {
	return Parse(defaultYAML)
}

// DefaultYAML returns a copy of the embedded taxonomy document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// Load reads a taxonomy file. An empty path returns the embedded taxonomy.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	t.buildIndex()
	if err := t.validate(); err != nil {
		return nil, err
	}
	t.instructions = t.renderInstructions()
	return &t, nil
}

func (t *Taxonomy) buildIndex() {
	t.index = make(map[string]map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		set := t.index[c.Name]
		if set == nil {
			set = make(map[string]bool, len(c.Intents))
			t.index[c.Name] = set
		}
		for _, in := range c.Intents {
			set[in.Name] = true
		}
	}
}

func (t *Taxonomy) validate() error {
	var errs []error

	if len(t.Categories) == 0 {
		errs = append(errs, errors.New("taxonomy: at least one category is required"))
	}

	seen := make(map[string]bool, len(t.Categories))
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("taxonomy: categories[%d].name is required", i))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("taxonomy: duplicate category %q", c.Name))
		}
		seen[c.Name] = true
		if len(c.Intents) == 0 {
			errs = append(errs, fmt.Errorf("taxonomy: category %q has no intents", c.Name))
		}
		names := make(map[string]bool, len(c.Intents))
		for j, in := range c.Intents {
			if strings.TrimSpace(in.Name) == "" {
				errs = append(errs, fmt.Errorf("taxonomy: %s.intents[%d].name is required", c.Name, j))
				continue
			}
			if names[in.Name] {
				errs = append(errs, fmt.Errorf("taxonomy: duplicate intent %q in %q", in.Name, c.Name))
			}
			names[in.Name] = true
		}
	}

	if !t.Valid(t.Default.Primary, t.Default.Secondary) {
		errs = append(errs, fmt.Errorf("taxonomy: default %s/%s is not a declared intent", t.Default.Primary, t.Default.Secondary))
	}

	for i, r := range t.Fallback {
		if !t.Valid(r.Primary, r.Secondary) {
			errs = append(errs, fmt.Errorf("taxonomy: fallback[%d] %s/%s is not a declared intent", i, r.Primary, r.Secondary))
		}
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("taxonomy: fallback[%d] has no keywords", i))
		}
		for _, kw := range r.Keywords {
			if kw == "" || kw != strings.ToLower(kw) {
				errs = append(errs, fmt.Errorf("taxonomy: fallback[%d] keyword %q must be non-empty lower case", i, kw))
			}
		}
	}

	return errors.Join(errs...)
}

// Valid reports whether secondary is declared under primary.
func (t *Taxonomy) Valid(primary, secondary string) bool {
	return t.index[primary][secondary]
}

// Primaries returns primary category names in declaration order.
func (t *Taxonomy) Primaries() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// Secondaries returns the intents declared under primary, in order.
func (t *Taxonomy) Secondaries(primary string) []string {
	for _, c := range t.Categories {
		if c.Name != primary {
			continue
		}
		out := make([]string, len(c.Intents))
		for i, in := range c.Intents {
			out[i] = in.Name
		}
		return out
	}
	return nil
}
