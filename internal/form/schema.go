// Package form defines the member profile form and turns answers into the
// profile content that gets indexed.
package form

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSchema []byte

// FieldKind is the answer shape of a form field.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindChoices FieldKind = "choices"
)

// Field is one question of the form.
type Field struct {
	Key       string    `yaml:"key" json:"key"`
	Question  string    `yaml:"question" json:"question"`
	Kind      FieldKind `yaml:"kind" json:"kind"`
	MinLength int       `yaml:"min_length" json:"min_length"`
	Required  bool      `yaml:"required" json:"required"`
	Options   []string  `yaml:"options,omitempty" json:"options,omitempty"`
}

// Schema is an ordered list of fields.
type Schema struct {
	Version int     `yaml:"version" json:"version"`
	Fields  []Field `yaml:"fields" json:"fields"`
}

// Parse decodes and checks a YAML form definition.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse form schema: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a form definition from path, or the built-in form when path is empty.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Parse(defaultSchema)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form schema %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in form.
func Default() *Schema {
	s, err := Parse(defaultSchema)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) check() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("form schema has no fields")
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("form field %d has no key", i)
		}
		if seen[f.Key] {
			return fmt.Errorf("form field %q is defined twice", f.Key)
		}
		seen[f.Key] = true
		if strings.TrimSpace(f.Question) == "" {
			return fmt.Errorf("form field %q has no question", f.Key)
		}
		switch f.Kind {
		case KindText, KindChoices:
		default:
			return fmt.Errorf("form field %q has unknown kind %q", f.Key, f.Kind)
		}
	}
	return nil
}

// Field returns the field with the given key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Normalize validates answers and returns them in form order with trimmed
// values and questions filled in. Optional fields left blank are dropped.
func (s *Schema) Normalize(answers []domain.ProfileAnswer) ([]domain.ProfileAnswer, error) {
	byKey := make(map[string]string, len(answers))
	var unknown []string
	for _, a := range answers {
		if _, ok := s.Field(a.Key); !ok {
			unknown = append(unknown, a.Key)
			continue
		}
		if _, dup := byKey[a.Key]; dup {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("answer %q given more than once", a.Key))
		}
		byKey[a.Key] = a.Value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "unknown form fields: "+strings.Join(unknown, ", "))
	}

	var problems []string
	out := make([]domain.ProfileAnswer, 0, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := byKey[f.Key]
		value := strings.TrimSpace(raw)
		if !ok || value == "" {
			if f.Required {
				problems = append(problems, fmt.Sprintf("%s is required", f.Key))
			}
			continue
		}

		if f.Kind == KindChoices {
			items := splitChoices(value)
			if len(items) < max(f.MinLength, 1) {
				problems = append(problems, fmt.Sprintf("%s needs at least %d choices", f.Key, max(f.MinLength, 1)))
				continue
			}
			if bad := f.unknownOptions(items); len(bad) > 0 {
				problems = append(problems, fmt.Sprintf("%s has unknown choices: %s", f.Key, strings.Join(bad, ", ")))
				continue
			}
			value = strings.Join(items, ", ")
		} else if len([]rune(value)) < f.MinLength {
			problems = append(problems, fmt.Sprintf("%s must be at least %d characters", f.Key, f.MinLength))
			continue
		}

		out = append(out, domain.ProfileAnswer{Key: f.Key, Question: f.Question, Value: value})
	}

	if len(problems) > 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid form answers: "+strings.Join(problems, "; "))
	}
	return out, nil
}

// BuildContent validates answers and renders them as "question: answer"
// lines in form order.
func (s *Schema) BuildContent(answers []domain.ProfileAnswer) (string, []domain.ProfileAnswer, error) {
	normalized, err := s.Normalize(answers)
	if err != nil {
		return "", nil, err
	}
	return RenderContent(normalized), normalized, nil
}

// RenderContent joins already normalized answers into profile content.
func RenderContent(answers []domain.ProfileAnswer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		question := strings.TrimSuffix(strings.TrimSpace(a.Question), ":")
		if question == "" {
			question = a.Key
		}
		lines = append(lines, question+": "+a.Value)
	}
	return strings.Join(lines, "\n")
}

func (f Field) unknownOptions(items []string) []string {
	if len(f.Options) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		allowed[strings.ToLower(o)] = true
	}
	var bad []string
	for _, it := range items {
		if !allowed[strings.ToLower(it)] {
			bad = append(bad, it)
		}
	}
	return bad
}

func splitChoices(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
