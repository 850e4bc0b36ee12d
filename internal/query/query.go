// Package query holds the per-entity filter allow-lists. A request parameter is
// either "field" or "field__lookup"; parameters whose field or lookup is not on
// the entity's list are dropped without a diagnostic.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"staffline/internal/domain"
)

type Lookup string

const (
	Exact      Lookup = "exact"
	IExact     Lookup = "iexact"
	Contains   Lookup = "contains"
	IContains  Lookup = "icontains"
	StartsWith Lookup = "startswith"
	In         Lookup = "in"
	GT         Lookup = "gt"
	GTE        Lookup = "gte"
	LT         Lookup = "lt"
	LTE        Lookup = "lte"
)

type FieldKind int

const (
	KindInt FieldKind = iota
	KindText
	KindDate
	KindDecimal
	KindSkills
)

type Field struct {
	Name    string
	Column  string
	Kind    FieldKind
	Lookups []Lookup
}

func (f Field) allows(l Lookup) bool {
	for _, allowed := range f.Lookups {
		if allowed == l {
			return true
		}
	}
	return false
}

type Entity struct {
	Name   string
	Fields []Field
}

var (
	idLookups    = []Lookup{Exact, In}
	textLookups  = []Lookup{Exact, IExact, Contains, IContains, StartsWith, In}
	rangeLookups = []Lookup{Exact, GT, GTE, LT, LTE}
)

var Technologies = Entity{
	Name: "technology",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Lookups: idLookups},
		{Name: "name", Column: "name", Kind: KindText, Lookups: textLookups},
	},
}

var Programmers = Entity{
	Name: "programmer",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Lookups: idLookups},
		{Name: "name", Column: "name", Kind: KindText, Lookups: textLookups},
		{Name: "skills", Column: "skills_json", Kind: KindSkills, Lookups: []Lookup{Contains}},
	},
}

var Projects = Entity{
	Name: "project",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Lookups: idLookups},
		{Name: "name", Column: "name", Kind: KindText, Lookups: textLookups},
		{Name: "start_date", Column: "start_date", Kind: KindDate, Lookups: rangeLookups},
		{Name: "end_date", Column: "end_date", Kind: KindDate, Lookups: rangeLookups},
		{Name: "status", Column: "status", Kind: KindText, Lookups: []Lookup{Exact, In}},
		{Name: "required_skills", Column: "required_skills_json", Kind: KindSkills, Lookups: []Lookup{Contains}},
	},
}

var Allocations = Entity{
	Name: "allocation",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Lookups: idLookups},
		{Name: "project", Column: "project_id", Kind: KindInt, Lookups: idLookups},
		{Name: "developer", Column: "developer_id", Kind: KindInt, Lookups: idLookups},
		{Name: "hours", Column: "hours", Kind: KindDecimal, Lookups: rangeLookups},
	},
}

func (e Entity) field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Condition is one accepted filter.
type Condition struct {
	Field  Field
	Lookup Lookup
	Value  string
}

// Parse keeps the allow-listed parameters. When a parameter repeats, its last
// value wins. Conditions are returned in parameter-name order.
func (e Entity) Parse(params map[string][]string) []Condition {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var conds []Condition
	for _, key := range keys {
		values := params[key]
		if len(values) == 0 {
			continue
		}
		name, lookup := key, Exact
		if i := strings.Index(key, "__"); i >= 0 {
			name, lookup = key[:i], Lookup(key[i+2:])
		}
		f, ok := e.field(name)
		if !ok || !f.allows(lookup) {
			continue
		}
		conds = append(conds, Condition{Field: f, Lookup: lookup, Value: values[len(values)-1]})
	}
	return conds
}

// Describe renders the allow-list for API documentation.
func (e Entity) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filter %s records with field or field__lookup query parameters. Unrecognized parameters are ignored.\n\n", e.Name)
	for _, f := range e.Fields {
		lookups := make([]string, 0, len(f.Lookups))
		for _, l := range f.Lookups {
			lookups = append(lookups, string(l))
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", f.Name, strings.Join(lookups, ", "))
	}
	return b.String()
}

// ValueError reports a filter value that does not fit its field.
type ValueError struct {
	Param string
	Value string
	Err   error
}

func (e ValueError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %s: %v", e.Value, e.Param, e.Err)
}

func (e ValueError) Unwrap() error { return e.Err }

// Where compiles conditions into a SQL boolean expression joined by AND.
// It returns an empty clause when there are no conditions.
func Where(conds []Condition) (string, []any, error) {
	var clauses []string
	var args []any
	for _, c := range conds {
		clause, cargs, err := compile(c)
		if err != nil {
			param := c.Field.Name
			if c.Lookup != Exact {
				param += "__" + string(c.Lookup)
			}
			return "", nil, ValueError{Param: param, Value: c.Value, Err: err}
		}
		clauses = append(clauses, clause)
		args = append(args, cargs...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func compile(c Condition) (string, []any, error) {
	col := c.Field.Column
	if c.Field.Kind == KindSkills {
		return `EXISTS (SELECT 1 FROM json_each(` + col + `) j WHERE (j.type = 'text' AND j.value = ?) OR (j.type = 'object' AND json_extract(j.value, '$.name') = ?))`,
			[]any{c.Value, c.Value}, nil
	}
	if c.Lookup == In {
		parts := strings.Split(c.Value, ",")
		placeholders := make([]string, 0, len(parts))
		args := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := convert(c.Field, strings.TrimSpace(p))
			if err != nil {
				return "", nil, err
			}
			placeholders = append(placeholders, "?")
			args = append(args, v)
		}
		return col + " IN (" + strings.Join(placeholders, ",") + ")", args, nil
	}
	v, err := convert(c.Field, c.Value)
	if err != nil {
		return "", nil, err
	}
	if c.Field.Kind == KindDecimal && c.Lookup != Exact {
		// Stored hours have two decimals, so compare hundredths as integers.
		col = "CAST(ROUND(" + col + " * 100) AS INTEGER)"
		v = decimal.RequireFromString(v.(string)).Shift(2).IntPart()
	}
	switch c.Lookup {
	case Exact:
		return col + " = ?", []any{v}, nil
	case IExact:
		return "lower(" + col + ") = lower(?)", []any{v}, nil
	case Contains:
		return "instr(" + col + ", ?) > 0", []any{v}, nil
	case IContains:
		return "instr(lower(" + col + "), lower(?)) > 0", []any{v}, nil
	case StartsWith:
		return "substr(" + col + ", 1, length(?)) = ?", []any{v, v}, nil
	case GT:
		return col + " > ?", []any{v}, nil
	case GTE:
		return col + " >= ?", []any{v}, nil
	case LT:
		return col + " < ?", []any{v}, nil
	case LTE:
		return col + " <= ?", []any{v}, nil
	}
	return "", nil, fmt.Errorf("unsupported lookup %s", c.Lookup)
}

func convert(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindDate:
		t, err := domain.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		return domain.FormatDate(t), nil
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		return d.StringFixed(2), nil
	default:
		return raw, nil
	}
}
