package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InsightCollection is the collection holding InsightModel documents.
const InsightCollection = "insights"

// InsightModel is a single scored observation tagged with geography,
// sector and topic.
type InsightModel struct {
	ID         primitive.ObjectID `json:"_id"        bson:"_id,omitempty"`
	EndYear    Year               `json:"end_year"   bson:"end_year"`
	StartYear  Year               `json:"start_year" bson:"start_year"`
	Intensity  float64            `json:"intensity"  bson:"intensity"`
	Likelihood float64            `json:"likelihood" bson:"likelihood"`
	Relevance  float64            `json:"relevance"  bson:"relevance"`
	Impact     Impact             `json:"impact"     bson:"impact"`
	Sector     string             `json:"sector"     bson:"sector"`
	Topic      string             `json:"topic"      bson:"topic"`
	Region     string             `json:"region"     bson:"region"`
	Country    string             `json:"country"    bson:"country"`
	City       string             `json:"city"       bson:"city"`
	Pestle     string             `json:"pestle"     bson:"pestle"`
	Insight    string             `json:"insight"    bson:"insight"`
	Title      string             `json:"title"      bson:"title"`
	URL        string             `json:"url"        bson:"url"`
	Source     string             `json:"source"     bson:"source"`
	Added      string             `json:"added"      bson:"added"`
	Published  string             `json:"published"  bson:"published"`
	CreatedAt  time.Time          `json:"createdAt"  bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"  bson:"updatedAt"`
}

// Touch stamps the creation and update times the way a fresh insert does.
func (m *InsightModel) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Field returns the stored value of a top-level field by its document name.
// Strings come back as string, numbers as float64, and unset years or
// impacts as the empty string, mirroring what the document holds.
func (m *InsightModel) Field(name string) (interface{}, bool) {
	switch name {
	case "_id":
		return m.ID.Hex(), true
	case "end_year":
		return yearValue(m.EndYear), true
	case "start_year":
		return yearValue(m.StartYear), true
	case "intensity":
		return m.Intensity, true
	case "likelihood":
		return m.Likelihood, true
	case "relevance":
		return m.Relevance, true
	case "impact":
		if v, ok := m.Impact.Float(); ok {
			return v, true
		}
		return "", true
	case "sector":
		return m.Sector, true
	case "topic":
		return m.Topic, true
	case "region":
		return m.Region, true
	case "country":
		return m.Country, true
	case "city":
		return m.City, true
	case "pestle":
		return m.Pestle, true
	case "insight":
		return m.Insight, true
	case "title":
		return m.Title, true
	case "url":
		return m.URL, true
	case "source":
		return m.Source, true
	case "added":
		return m.Added, true
	case "published":
		return m.Published, true
	}
	return nil, false
}

func yearValue(y Year) interface{} {
	if v, ok := y.Int(); ok {
		return float64(v)
	}
	return ""
}
