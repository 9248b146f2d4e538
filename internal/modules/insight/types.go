package insight

import (
	"encoding/json"
	"errors"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Input is an insight record as submitted by a client. Scores are pointers
// so a missing value can be told apart from zero.
type Input struct {
	ID         string        `json:"_id" validate:"omitempty,len=24,hexadecimal"`
	EndYear    models.Year   `json:"end_year"`
	StartYear  models.Year   `json:"start_year"`
	Intensity  *float64      `json:"intensity" validate:"required,gte=0,lte=100"`
	Likelihood *float64      `json:"likelihood" validate:"required,gte=1,lte=5"`
	Relevance  *float64      `json:"relevance" validate:"required,gte=1,lte=5"`
	Impact     models.Impact `json:"impact"`
	Sector     string        `json:"sector" validate:"sector"`
	Topic      string        `json:"topic"`
	Region     string        `json:"region" validate:"region"`
	Country    string        `json:"country"`
	City       string        `json:"city"`
	Pestle     string        `json:"pestle" validate:"pestle"`
	Insight    string        `json:"insight" validate:"notblank"`
	Title      string        `json:"title" validate:"notblank"`
	URL        string        `json:"url" validate:"omitempty,http_url"`
	Source     string        `json:"source"`
	Added      string        `json:"added" validate:"notblank"`
	Published  string        `json:"published"`
}

// decodeInput reads one raw record. A type mismatch such as a string
// intensity is reported as a field violation.
func decodeInput(raw json.RawMessage) (Input, error) {
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		field := "record"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return in, &models.ValidationError{Fields: []models.FieldError{{Field: field, Message: err.Error()}}}
	}
	return in, nil
}

// Model converts in into a normalized, validated record.
func (in Input) Model() (models.InsightModel, error) {
	if errs := fieldErrors(&in); len(errs) > 0 {
		return models.InsightModel{}, &models.ValidationError{Fields: errs}
	}

	m := models.InsightModel{
		EndYear:    in.EndYear,
		StartYear:  in.StartYear,
		Intensity:  *in.Intensity,
		Likelihood: *in.Likelihood,
		Relevance:  *in.Relevance,
		Impact:     in.Impact,
		Sector:     in.Sector,
		Topic:      in.Topic,
		Region:     in.Region,
		Country:    in.Country,
		City:       in.City,
		Pestle:     in.Pestle,
		Insight:    in.Insight,
		Title:      in.Title,
		URL:        in.URL,
		Source:     in.Source,
		Added:      in.Added,
		Published:  in.Published,
	}
	if in.ID != "" {
		oid, err := primitive.ObjectIDFromHex(in.ID)
		if err != nil {
			return m, &models.ValidationError{Fields: []models.FieldError{{Field: "_id", Message: "must be a 24-character hex object id"}}}
		}
		m.ID = oid
	}
	m.Normalize()
	return m, nil
}

// ListResult is one page of records.
type ListResult struct {
	Data       []models.InsightModel `json:"data"`
	Pagination response.Pagination   `json:"pagination"`
}

// BulkResult reports an unordered bulk insert. Duplicates counts every
// record that was not stored, and is omitted when all were.
type BulkResult struct {
	Success    bool   `json:"success"`
	Inserted   int    `json:"inserted"`
	Total      int    `json:"total"`
	Duplicates int    `json:"duplicates,omitempty"`
	Message    string `json:"message,omitempty"`
}

type bulkRequest struct {
	Data []json.RawMessage `json:"data"`
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}
