// Package query turns loosely-typed filter parameters into a canonical
// Predicate that every store read operation accepts.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/insightboard/core/internal/pkg/apperr"
)

// Query parameter names understood by ParseCriteria.
const (
	KeyEndYear      = "endYear"
	KeySector       = "sector"
	KeyTopic        = "topic"
	KeyRegion       = "region"
	KeyCountry      = "country"
	KeyPestle       = "pestle"
	KeySource       = "source"
	KeyCity         = "city"
	KeyMinIntensity = "minIntensity"
	KeyMaxIntensity = "maxIntensity"
)

// Criteria holds raw filter values. An empty string means the dimension is
// not constrained; it never means "match the empty string".
type Criteria struct {
	EndYear      string `json:"endYear,omitempty"`
	Sector       string `json:"sector,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Region       string `json:"region,omitempty"`
	Country      string `json:"country,omitempty"`
	Pestle       string `json:"pestle,omitempty"`
	Source       string `json:"source,omitempty"`
	City         string `json:"city,omitempty"`
	MinIntensity string `json:"minIntensity,omitempty"`
	MaxIntensity string `json:"maxIntensity,omitempty"`
}

// ParseCriteria copies the known filter keys out of values. Unknown keys
// are ignored.
func ParseCriteria(values url.Values) Criteria {
	return Criteria{
		EndYear:      values.Get(KeyEndYear),
		Sector:       values.Get(KeySector),
		Topic:        values.Get(KeyTopic),
		Region:       values.Get(KeyRegion),
		Country:      values.Get(KeyCountry),
		Pestle:       values.Get(KeyPestle),
		Source:       values.Get(KeySource),
		City:         values.Get(KeyCity),
		MinIntensity: values.Get(KeyMinIntensity),
		MaxIntensity: values.Get(KeyMaxIntensity),
	}
}

// Build translates c into a conjunctive predicate. Criteria with no values
// yield the empty predicate, which matches every record.
func Build(c Criteria) (Predicate, error) {
	var clauses []Clause

	if raw := strings.TrimSpace(c.EndYear); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: endYear %q is not an integer", apperr.ErrInvalidFilter, c.EndYear)
		}
		clauses = append(clauses, YearEquals("end_year", year))
	}

	exact := []struct {
		field string
		value string
	}{
		{"sector", c.Sector},
		{"region", c.Region},
		{"country", c.Country},
		{"pestle", c.Pestle},
		{"source", c.Source},
		{"city", c.City},
	}
	for _, f := range exact {
		if f.value != "" {
			clauses = append(clauses, Equals(f.field, f.value))
		}
	}

	if c.Topic != "" {
		clause, err := Matches("topic", c.Topic)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: topic %q is not a valid pattern: %v", apperr.ErrInvalidFilter, c.Topic, err)
		}
		clauses = append(clauses, clause)
	}

	lo, err := parseBound(KeyMinIntensity, c.MinIntensity)
	if err != nil {
		return Predicate{}, err
	}
	hi, err := parseBound(KeyMaxIntensity, c.MaxIntensity)
	if err != nil {
		return Predicate{}, err
	}
	if lo != nil || hi != nil {
		clauses = append(clauses, Between("intensity", lo, hi))
	}

	return Predicate{clauses: clauses}, nil
}

func parseBound(key, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", apperr.ErrInvalidFilter, key, raw)
	}
	if v < 0 || v > 100 {
		return nil, fmt.Errorf("%w: %s must be between 0 and 100", apperr.ErrInvalidFilter, key)
	}
	return &v, nil
}
