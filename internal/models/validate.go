package models

import (
	"strings"

	"github.com/insightboard/core/internal/pkg/apperr"
)

// FieldError describes one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violation found in a record.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is match apperr.ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == apperr.ErrValidation }

// Normalize trims the free-text fields the schema stores trimmed.
func (m *InsightModel) Normalize() {
	m.Insight = strings.TrimSpace(m.Insight)
	m.Title = strings.TrimSpace(m.Title)
}
