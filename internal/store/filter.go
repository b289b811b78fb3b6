package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter []Condition

// Condition is one predicate over a document's top-level fields.
type Condition interface {
	condition()
}

// Eq matches documents whose field equals Value.
type Eq struct {
	Field string
	Value any
}

// Gt matches documents whose numeric field is greater than Value.
type Gt struct {
	Field string
	Value any
}

// Gte matches documents whose numeric field is greater than or equal to Value.
type Gte struct {
	Field string
	Value any
}

// Contains matches documents whose string field contains Substr, ignoring case.
type Contains struct {
	Field  string
	Substr string
}

// ElemContains matches documents where any element of the string array field
// contains Substr, ignoring case.
type ElemContains struct {
	Field  string
	Substr string
}

// Or matches documents that satisfy at least one of its conditions.
type Or []Condition

func (Eq) condition()           {}
func (Gt) condition()           {}
func (Gte) condition()          {}
func (Contains) condition()     {}
func (ElemContains) condition() {}
func (Or) condition()           {}

func (f Filter) validate() error {
	for _, c := range f {
		if err := validateCondition(c); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c Condition) error {
	switch c := c.(type) {
	case Eq:
		return checkField(c.Field)
	case Gt:
		return checkField(c.Field)
	case Gte:
		return checkField(c.Field)
	case Contains:
		return checkField(c.Field)
	case ElemContains:
		return checkField(c.Field)
	case Or:
		if len(c) == 0 {
			return fmt.Errorf("empty or-condition")
		}
		for _, sub := range c {
			if err := validateCondition(sub); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported condition %T", c)
	}
}

// Patch describes an update: Set replaces fields, Inc adds to numeric fields
// and Unset removes fields.
type Patch struct {
	Set   map[string]any
	Inc   map[string]int
	Unset []string
}

// field is one normalized patch entry.
type field struct {
	name  string
	value json.RawMessage
	delta int
}

// normalize validates p and returns its entries in a stable order, with Set
// values encoded as JSON.
func (p Patch) normalize() (set, inc []field, unset []string, err error) {
	if len(p.Set) == 0 && len(p.Inc) == 0 && len(p.Unset) == 0 {
		return nil, nil, nil, fmt.Errorf("empty patch")
	}

	for name, v := range p.Set {
		if err := checkField(name); err != nil {
			return nil, nil, nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("encoding field %q: %w", name, err)
		}
		set = append(set, field{name: name, value: raw})
	}
	for name, delta := range p.Inc {
		if err := checkField(name); err != nil {
			return nil, nil, nil, err
		}
		if _, ok := p.Set[name]; ok {
			return nil, nil, nil, fmt.Errorf("field %q both set and incremented", name)
		}
		inc = append(inc, field{name: name, delta: delta})
	}
	for _, name := range p.Unset {
		if err := checkField(name); err != nil {
			return nil, nil, nil, err
		}
		_, isSet := p.Set[name]
		_, isInc := p.Inc[name]
		if isSet || isInc {
			return nil, nil, nil, fmt.Errorf("field %q both updated and unset", name)
		}
		unset = append(unset, name)
	}

	sort.Slice(set, func(i, j int) bool { return set[i].name < set[j].name })
	sort.Slice(inc, func(i, j int) bool { return inc[i].name < inc[j].name })
	sort.Strings(unset)
	return set, inc, unset, nil
}

// encodeValue renders a filter operand as JSON text.
func encodeValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding filter value: %w", err)
	}
	return string(raw), nil
}
