package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseSkillItems(t *testing.T) {
	refs, err := ParseSkillItems([]any{"Python", map[string]any{"name": "ML", "level": "senior"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !refs[0].IsNamed() || refs[0].Name() != "Python" {
		t.Fatalf("unexpected named ref %+v", refs[0])
	}
	if refs[1].Kind() != SkillInline || refs[1].Name() != "ML" {
		t.Fatalf("unexpected inline ref %+v", refs[1])
	}

	_, err = ParseSkillItems([]any{"Go", 42})
	if !errors.Is(err, ErrInvalidSkillItem) {
		t.Fatalf("expected ErrInvalidSkillItem, got %v", err)
	}
}

func TestSkillRefEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b SkillRef
		want bool
	}{
		{"same name", Named("Go"), Named("Go"), true},
		{"case sensitive", Named("Go"), Named("go"), false},
		{"named vs inline", Named("Go"), Inline(map[string]any{"name": "Go"}), false},
		{"inline key order", Inline(map[string]any{"name": "ML", "level": 3}), Inline(map[string]any{"level": 3, "name": "ML"}), true},
		{"inline differs", Inline(map[string]any{"name": "ML"}), Inline(map[string]any{"name": "ML", "level": 1}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSkillRefJSON(t *testing.T) {
	refs := []SkillRef{Named("Python"), Inline(map[string]any{"name": "ML"})}
	b, err := json.Marshal(refs)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["Python",{"name":"ML"}]` {
		t.Fatalf("unexpected json %s", b)
	}
	var back []SkillRef
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || !back[0].Equal(refs[0]) || !back[1].Equal(refs[1]) {
		t.Fatalf("round trip mismatch %+v", back)
	}
	var bad SkillRef
	if err := json.Unmarshal([]byte(`7`), &bad); err == nil {
		t.Fatalf("expected error for numeric skill")
	}
}

func TestInlineDescriptorIsCopied(t *testing.T) {
	src := map[string]any{"name": "ML"}
	ref := Inline(src)
	src["name"] = "changed"
	d := ref.Descriptor()
	d["name"] = "mutated"
	if ref.Name() != "ML" {
		t.Fatalf("descriptor leaked mutation: %s", ref.Name())
	}
}

func TestSharedSkills(t *testing.T) {
	dev := []SkillRef{Named("Java"), Inline(map[string]any{"name": "Python", "years": 4})}
	project := []SkillRef{Named("Python"), Named("Go"), Named("Python")}
	got := SharedSkills(dev, project)
	if !reflect.DeepEqual(got, []string{"Python"}) {
		t.Fatalf("unexpected shared skills %v", got)
	}
	if got := SharedSkills(dev, nil); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestProjectDays(t *testing.T) {
	start, _ := ParseDate("2024-05-09")
	end, _ := ParseDate("2024-05-11")
	p := Project{StartDate: start, EndDate: end}
	if p.Days() != 2 {
		t.Fatalf("expected 2 days, got %d", p.Days())
	}
	if !StatusLate.Valid() || ProjectStatus("ARCHIVED").Valid() {
		t.Fatalf("status validity wrong")
	}
}
