package models

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestYear_JSONAcceptsNumberOrEmpty(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		known   bool
		wantErr bool
	}{
		{`2025`, 2025, true, false},
		{`"2030"`, 2030, true, false},
		{`""`, 0, false, false},
		{`null`, 0, false, false},
		{`"soon"`, 0, false, true},
		{`2020.5`, 0, false, true},
	}
	for _, tt := range tests {
		var y Year
		err := json.Unmarshal([]byte(tt.in), &y)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.in, err)
			continue
		}
		got, ok := y.Int()
		if ok != tt.known || got != tt.want {
			t.Errorf("%s: expected (%d,%v), got (%d,%v)", tt.in, tt.want, tt.known, got, ok)
		}
	}
}

func TestInsight_BSONKeepsEmptySentinel(t *testing.T) {
	in := InsightModel{
		EndYear:   KnownYear(2027),
		StartYear: Year{},
		Impact:    KnownImpact(3.5),
		Title:     "t",
	}
	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal into map failed: %v", err)
	}
	if v, ok := doc["end_year"].(int32); !ok || v != 2027 {
		t.Errorf("Expected end_year stored as int32 2027, got %T %v", doc["end_year"], doc["end_year"])
	}
	if v, ok := doc["start_year"].(string); !ok || v != "" {
		t.Errorf("Expected start_year stored as empty string, got %T %v", doc["start_year"], doc["start_year"])
	}
	if _, ok := doc["_id"]; ok {
		t.Errorf("Expected zero _id to be omitted")
	}

	var out InsightModel
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if y, ok := out.EndYear.Int(); !ok || y != 2027 {
		t.Errorf("Expected end_year 2027, got %v %v", y, ok)
	}
	if out.StartYear.IsSet() {
		t.Errorf("Expected start_year unset")
	}
	if v, ok := out.Impact.Float(); !ok || v != 3.5 {
		t.Errorf("Expected impact 3.5, got %v %v", v, ok)
	}
}

func TestInsight_BSONDecodesDoubleYear(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"end_year": 2030.0, "impact": ""})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out InsightModel
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if y, ok := out.EndYear.Int(); !ok || y != 2030 {
		t.Errorf("Expected 2030, got %d %v", y, ok)
	}
	if out.Impact.IsSet() {
		t.Errorf("Expected unset impact")
	}
}

func TestInsight_Field(t *testing.T) {
	m := InsightModel{EndYear: KnownYear(2020), Sector: "Energy", Intensity: 6}
	if v, _ := m.Field("end_year"); v != float64(2020) {
		t.Errorf("Expected numeric end_year, got %v", v)
	}
	if v, _ := m.Field("start_year"); v != "" {
		t.Errorf("Expected empty start_year, got %v", v)
	}
	if v, _ := m.Field("impact"); v != "" {
		t.Errorf("Expected empty impact, got %v", v)
	}
	if _, ok := m.Field("unknown"); ok {
		t.Errorf("Expected unknown field to be reported missing")
	}
}

func TestInsight_Normalize(t *testing.T) {
	m := InsightModel{Insight: "  Oil prices rise ", Title: "\tOil\n"}
	m.Normalize()
	if m.Insight != "Oil prices rise" || m.Title != "Oil" {
		t.Errorf("Unexpected normalized text: %q / %q", m.Insight, m.Title)
	}
}

func TestInDomain(t *testing.T) {
	tests := []struct {
		domain []string
		v      string
		want   bool
	}{
		{Sectors, "", true},
		{Sectors, "Aerospace & defence", true},
		{Sectors, "Mining", false},
		{Regions, "Northern America", true},
		{PestleCategories, "economic", false},
	}
	for _, tt := range tests {
		if got := InDomain(tt.domain, tt.v); got != tt.want {
			t.Errorf("InDomain(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
