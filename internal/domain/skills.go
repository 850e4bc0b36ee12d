package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSkillItem is returned for skill items that are neither a name nor an object.
var ErrInvalidSkillItem = errors.New("each skill must be a string or an object")

type SkillKind int

const (
	SkillNamed SkillKind = iota + 1
	SkillInline
)

// SkillRef points at a skill either by catalog name or by an inline descriptor
// that is not backed by the catalog.
type SkillRef struct {
	kind       SkillKind
	name       string
	descriptor map[string]any
}

func Named(name string) SkillRef {
	return SkillRef{kind: SkillNamed, name: name}
}

func Inline(descriptor map[string]any) SkillRef {
	cp := make(map[string]any, len(descriptor))
	for k, v := range descriptor {
		cp[k] = v
	}
	return SkillRef{kind: SkillInline, descriptor: cp}
}

func (r SkillRef) Kind() SkillKind { return r.kind }
func (r SkillRef) IsNamed() bool   { return r.kind == SkillNamed }

// Name returns the catalog name, or the descriptor's "name" field for inline refs.
func (r SkillRef) Name() string {
	if r.kind == SkillNamed {
		return r.name
	}
	if n, ok := r.descriptor["name"].(string); ok {
		return n
	}
	return ""
}

// Descriptor returns a copy of the inline descriptor, nil for named refs.
func (r SkillRef) Descriptor() map[string]any {
	if r.kind != SkillInline {
		return nil
	}
	cp := make(map[string]any, len(r.descriptor))
	for k, v := range r.descriptor {
		cp[k] = v
	}
	return cp
}

func (r SkillRef) Equal(o SkillRef) bool {
	if r.kind != o.kind {
		return false
	}
	if r.kind == SkillNamed {
		return r.name == o.name
	}
	a, errA := json.Marshal(r.descriptor)
	b, errB := json.Marshal(o.descriptor)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

func (r SkillRef) String() string {
	if r.kind == SkillNamed {
		return r.name
	}
	if n := r.Name(); n != "" {
		return n
	}
	b, _ := json.Marshal(r.descriptor)
	return string(b)
}

// Value is the JSON-shaped form: a string for named refs, an object for inline ones.
func (r SkillRef) Value() any {
	if r.kind == SkillInline {
		return r.Descriptor()
	}
	return r.name
}

func (r SkillRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

func (r *SkillRef) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := ParseSkillItem(raw)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// ParseSkillItem converts a decoded JSON value into a SkillRef.
func ParseSkillItem(item any) (SkillRef, error) {
	switch v := item.(type) {
	case string:
		return Named(v), nil
	case map[string]any:
		return Inline(v), nil
	default:
		return SkillRef{}, fmt.Errorf("%w, got %T", ErrInvalidSkillItem, item)
	}
}

// ParseSkillItems converts every item or fails on the first invalid one.
func ParseSkillItems(items []any) ([]SkillRef, error) {
	refs := make([]SkillRef, 0, len(items))
	for i, item := range items {
		ref, err := ParseSkillItem(item)
		if err != nil {
			return nil, fmt.Errorf("skill %d: %w", i, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SkillNames returns the non-empty skill names in order.
func SkillNames(refs []SkillRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := r.Name(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// SharedSkills returns the names present in both lists, in the order of b.
func SharedSkills(a, b []SkillRef) []string {
	have := map[string]bool{}
	for _, n := range SkillNames(a) {
		have[n] = true
	}
	var shared []string
	seen := map[string]bool{}
	for _, n := range SkillNames(b) {
		if have[n] && !seen[n] {
			shared = append(shared, n)
			seen[n] = true
		}
	}
	return shared
}

// ContainsSkill reports whether refs holds a ref equal to r.
func ContainsSkill(refs []SkillRef, r SkillRef) bool {
	for _, existing := range refs {
		if existing.Equal(r) {
			return true
		}
	}
	return false
}

func SkillValues(refs []SkillRef) []any {
	out := make([]any, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Value())
	}
	return out
}
