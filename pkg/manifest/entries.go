package manifest

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Entries is an ordered list of labeled entries. HCL decodes labeled
// blocks into it directly; YAML and TOML decode a mapping keyed by label.
//
// YAML keeps document order. TOML tables carry no order, so their keys are
// sorted lexically.
type Entries[T any] []T

type labeled interface {
	label() *string
}

func labelOf[T any](v *T) *string {
	if l, ok := any(v).(labeled); ok {
		return l.label()
	}
	return nil
}

// Get returns the first entry labeled name.
func (l Entries[T]) Get(name string) (T, bool) {
	for i := range l {
		if label := labelOf(&l[i]); label != nil && *label == name {
			return l[i], true
		}
	}
	var zero T
	return zero, false
}

func (l Entries[T]) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

func (l Entries[T]) Names() []string {
	names := make([]string, 0, len(l))
	for i := range l {
		if label := labelOf(&l[i]); label != nil {
			names = append(names, *label)
		}
	}
	return names
}

func (l *Entries[T]) UnmarshalYAML(node *yaml.Node) error {
	if isYAMLNull(node) {
		*l = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of named entries", node.Line)
	}
	out := make(Entries[T], 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var v T
		if !isYAMLNull(value) {
			if err := value.Decode(&v); err != nil {
				return fmt.Errorf("%s: %w", key.Value, err)
			}
		}
		if label := labelOf(&v); label != nil {
			*label = key.Value
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

func isYAMLNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

func (l *Entries[T]) UnmarshalTOML(data any) error {
	table, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("expected a table of named entries, got %T", data)
	}
	out := make(Entries[T], 0, len(table))
	for _, key := range slices.Sorted(maps.Keys(table)) {
		var v T
		if err := retoml(table[key], &v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if label := labelOf(&v); label != nil {
			*label = key
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// retoml re-encodes an already decoded TOML value and decodes it into out.
func retoml(value any, out any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	_, err := toml.NewDecoder(&buf).Decode(out)
	return err
}

func (p *GenericPackage) label() *string       { return &p.Name }
func (c *AptConfiguration) label() *string     { return &c.Name }
func (p *AptPackage) label() *string           { return &p.Name }
func (c *BrewConfiguration) label() *string    { return &c.Name }
func (p *BrewPackage) label() *string          { return &p.Name }
func (c *CurlConfiguration) label() *string    { return &c.Name }
func (s *CurlScript) label() *string           { return &s.Name }
func (c *GitConfiguration) label() *string     { return &c.Name }
func (r *GitRepository) label() *string        { return &r.Name }
func (c *NixConfiguration) label() *string     { return &c.Name }
func (p *NixPackage) label() *string           { return &p.Name }
func (c *SystemConfiguration) label() *string  { return &c.Name }
func (p *SystemPackage) label() *string        { return &p.Name }
func (c *ProfileConfiguration) label() *string { return &c.Name }
func (p *ProfilePackage) label() *string       { return &p.Name }
func (s *Server) label() *string               { return &s.Name }
