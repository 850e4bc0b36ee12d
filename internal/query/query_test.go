package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseDropsUnknownParameters(t *testing.T) {
	conds := Programmers.Parse(map[string][]string{
		"name__icontains":  {"dev"},
		"name__regex":      {".*"},
		"salary":           {"1"},
		"skills":           {"Go"},
		"skills__contains": {"Go"},
	})
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", conds)
	}
	if conds[0].Field.Name != "name" || conds[0].Lookup != IContains {
		t.Fatalf("unexpected first condition %+v", conds[0])
	}
	if conds[1].Field.Name != "skills" || conds[1].Lookup != Contains {
		t.Fatalf("unexpected second condition %+v", conds[1])
	}
}

func TestParseLastValueWins(t *testing.T) {
	conds := Technologies.Parse(map[string][]string{"name": {"Go", "Python"}})
	if len(conds) != 1 || conds[0].Lookup != Exact || conds[0].Value != "Python" {
		t.Fatalf("unexpected conditions %+v", conds)
	}
}

func TestWhere(t *testing.T) {
	cases := []struct {
		name   string
		entity Entity
		params map[string][]string
		clause string
		args   []any
	}{
		{"empty", Projects, nil, "", nil},
		{"exact int", Allocations, map[string][]string{"project": {"3"}}, "project_id = ?", []any{int64(3)}},
		{"in", Allocations, map[string][]string{"id__in": {"1, 2"}}, "id IN (?,?)", []any{int64(1), int64(2)}},
		{"date range", Projects, map[string][]string{"end_date__lt": {"2024-06-01"}}, "end_date < ?", []any{"2024-06-01"}},
		{"decimal range", Allocations, map[string][]string{"hours__gte": {"10.5"}}, "CAST(ROUND(hours * 100) AS INTEGER) >= ?", []any{int64(1050)}},
		{"decimal range rounds", Allocations, map[string][]string{"hours__lt": {"0.105"}}, "CAST(ROUND(hours * 100) AS INTEGER) < ?", []any{int64(11)}},
		{"decimal exact", Allocations, map[string][]string{"hours": {"10.5"}}, "hours = ?", []any{"10.50"}},
		{"icontains", Technologies, map[string][]string{"name__icontains": {"py"}}, "instr(lower(name), lower(?)) > 0", []any{"py"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clause, args, err := Where(tc.entity.Parse(tc.params))
			if err != nil {
				t.Fatalf("where: %v", err)
			}
			if clause != tc.clause {
				t.Fatalf("clause = %q, want %q", clause, tc.clause)
			}
			if !reflect.DeepEqual(args, tc.args) {
				t.Fatalf("args = %#v, want %#v", args, tc.args)
			}
		})
	}
}

func TestWhereJoinsWithAnd(t *testing.T) {
	clause, args, err := Where(Projects.Parse(map[string][]string{
		"status":           {"LATE"},
		"name__startswith": {"P"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(clause, " AND ") || len(args) != 3 {
		t.Fatalf("unexpected clause %q args %v", clause, args)
	}
}

func TestWhereValueError(t *testing.T) {
	_, _, err := Where(Projects.Parse(map[string][]string{"start_date__gte": {"yesterday"}}))
	var ve ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValueError, got %v", err)
	}
	if ve.Param != "start_date__gte" || ve.Value != "yesterday" {
		t.Fatalf("unexpected value error %+v", ve)
	}
}

func TestDescribeListsFields(t *testing.T) {
	doc := Projects.Describe()
	for _, want := range []string{"`end_date`: exact, gt, gte, lt, lte", "`required_skills`: contains", "ignored"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("description missing %q:\n%s", want, doc)
		}
	}
}
