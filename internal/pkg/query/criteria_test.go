package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/insightboard/core/internal/pkg/apperr"
)

func TestBuild_EmptyCriteriaMatchesAll(t *testing.T) {
	p, err := Build(Criteria{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !p.IsEmpty() {
		t.Errorf("Expected empty predicate, got %d clauses", len(p.Clauses()))
	}
}

func TestBuild_Clauses(t *testing.T) {
	p, err := Build(Criteria{
		EndYear: "2025",
		Sector:  "Energy",
		Region:  "World",
		Country: "India",
		Pestle:  "Economic",
		Source:  "EIA",
		City:    "Delhi",
		Topic:   "oil",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	clauses := p.Clauses()
	if len(clauses) != 8 {
		t.Fatalf("Expected 8 clauses, got %d", len(clauses))
	}
	if clauses[0].Op != OpYearEquals || clauses[0].Field != "end_year" || clauses[0].Number != 2025 {
		t.Errorf("Unexpected year clause: %+v", clauses[0])
	}

	want := map[string]string{"sector": "Energy", "region": "World", "country": "India", "pestle": "Economic", "source": "EIA", "city": "Delhi"}
	for _, c := range clauses[1:7] {
		if c.Op != OpEquals {
			t.Errorf("Expected equality clause for %s, got op %d", c.Field, c.Op)
			continue
		}
		if want[c.Field] != c.Value {
			t.Errorf("Expected %s=%q, got %q", c.Field, want[c.Field], c.Value)
		}
	}
	if clauses[7].Op != OpMatches || clauses[7].Pattern != "oil" {
		t.Errorf("Unexpected topic clause: %+v", clauses[7])
	}
}

func TestBuild_TopicIsCaseInsensitiveSubstring(t *testing.T) {
	p, err := Build(Criteria{Topic: "GaS"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	re := p.Clauses()[0].Regexp()

	tests := []struct {
		topic string
		match bool
	}{
		{"gas", true},
		{"natural GAS prices", true},
		{"Gasoline", true},
		{"oil", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := re.MatchString(tt.topic); got != tt.match {
			t.Errorf("topic %q: expected match=%v, got %v", tt.topic, tt.match, got)
		}
	}
}

func TestBuild_IntensityRange(t *testing.T) {
	tests := []struct {
		name    string
		min     string
		max     string
		wantMin *float64
		wantMax *float64
	}{
		{"both", "5", "20", ptr(5), ptr(20)},
		{"min only", "5", "", ptr(5), nil},
		{"max only", "", "20", nil, ptr(20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Build(Criteria{MinIntensity: tt.min, MaxIntensity: tt.max})
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if len(p.Clauses()) != 1 {
				t.Fatalf("Expected a single intensity clause, got %d", len(p.Clauses()))
			}
			c := p.Clauses()[0]
			if c.Op != OpBetween || c.Field != "intensity" {
				t.Fatalf("Unexpected clause: %+v", c)
			}
			if !sameBound(c.Min, tt.wantMin) || !sameBound(c.Max, tt.wantMax) {
				t.Errorf("Expected bounds %v..%v, got %v..%v", deref(tt.wantMin), deref(tt.wantMax), deref(c.Min), deref(c.Max))
			}
		})
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
	}{
		{"non-numeric year", Criteria{EndYear: "soon"}},
		{"fractional year", Criteria{EndYear: "2020.5"}},
		{"non-numeric min", Criteria{MinIntensity: "low"}},
		{"max out of range", Criteria{MaxIntensity: "101"}},
		{"bad pattern", Criteria{Topic: "oil("}},
		{"lookahead pattern", Criteria{Topic: "oil(?=gas)"}},
		{"backreference pattern", Criteria{Topic: `(o)\1`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.c)
			if !errors.Is(err, apperr.ErrInvalidFilter) {
				t.Errorf("Expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestParseCriteria_IgnoresUnknownKeys(t *testing.T) {
	values := url.Values{}
	values.Set("sector", "Energy")
	values.Set("cascading", "true")
	values.Set("page", "2")

	c := ParseCriteria(values)
	if c != (Criteria{Sector: "Energy"}) {
		t.Errorf("Unexpected criteria: %+v", c)
	}
}

func TestPredicate_WithDoesNotAlias(t *testing.T) {
	base := NewPredicate(Equals("sector", "Energy"))
	a := base.With(NotEmpty("region"))
	b := base.With(NotEmpty("topic"))

	if len(base.Clauses()) != 1 {
		t.Errorf("Base predicate modified: %d clauses", len(base.Clauses()))
	}
	if a.Clauses()[1].Field != "region" || b.Clauses()[1].Field != "topic" {
		t.Errorf("Refinements leaked between predicates: %q %q", a.Clauses()[1].Field, b.Clauses()[1].Field)
	}
}

func ptr(v float64) *float64 { return &v }

func deref(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
