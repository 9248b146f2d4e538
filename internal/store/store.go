// Package store is the persistence collaborator for insight records. It
// exposes the two read capabilities the services rely on, grouped
// aggregation and filtered find, plus the write operations, behind a
// Store interface with MongoDB and in-memory implementations.
package store

import (
	"context"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/query"
)

// Store is implemented by every insight backend. Errors wrap the kinds in
// package apperr; a missing record is reported as a nil result.
type Store interface {
	Aggregate(ctx context.Context, pred query.Predicate, p Pipeline) ([]Row, error)
	Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]models.InsightModel, error)
	Count(ctx context.Context, pred query.Predicate) (int64, error)

	InsertOne(ctx context.Context, rec *models.InsightModel) error
	InsertMany(ctx context.Context, recs []models.InsightModel) (InsertManyResult, error)
	FindByID(ctx context.Context, id string) (*models.InsightModel, error)
	UpdateByID(ctx context.Context, id string, rec *models.InsightModel) (*models.InsightModel, error)
	DeleteByID(ctx context.Context, id string) (bool, error)

	Ping(ctx context.Context) error
}

// AccOp is a group accumulator.
type AccOp int

const (
	// AccCount counts the records in the group.
	AccCount AccOp = iota + 1
	// AccAvg averages the numeric values of Field.
	AccAvg
	// AccMin takes the smallest numeric value of Field.
	AccMin
	// AccMax takes the largest numeric value of Field.
	AccMax
	// AccSum sums the numeric values of Field; other values contribute 0.
	AccSum
	// AccDistinct collects the distinct non-empty string values of Field.
	AccDistinct
	// AccDistinctNumber collects the distinct numeric values of Field.
	AccDistinctNumber
)

// Accumulator computes one named output of a group.
type Accumulator struct {
	Name  string
	Op    AccOp
	Field string
}

// Count, Avg, Min, Max, Sum, Distinct and DistinctNumber build accumulators.
func Count(name string) Accumulator { return Accumulator{Name: name, Op: AccCount} }
func Avg(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccAvg, Field: field}
}
func Min(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccMin, Field: field}
}
func Max(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccMax, Field: field}
}
func Sum(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccSum, Field: field}
}
func Distinct(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccDistinct, Field: field}
}
func DistinctNumber(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccDistinctNumber, Field: field}
}

// KeyName is the sort name addressing the group key.
const KeyName = "_id"

// SortKey orders groups by an accumulator name or by KeyName.
type SortKey struct {
	Name string
	Desc bool
}

// Pipeline groups the matched records by GroupBy (all records form one
// group when GroupBy is empty), computes Accumulators, sorts and limits.
// Groups that tie on every sort key are ordered by key ascending.
type Pipeline struct {
	GroupBy      string
	Accumulators []Accumulator
	Sort         []SortKey
	Limit        int
}

// Row is one aggregated group. Metrics holds numeric outputs; a missing
// entry means the accumulator saw no numeric value. Sets holds distinct
// outputs: strings for AccDistinct, float64 for AccDistinctNumber.
type Row struct {
	Key     interface{}
	Metrics map[string]float64
	Sets    map[string][]interface{}
}

// Metric returns a numeric output, or 0 when absent.
func (r Row) Metric(name string) float64 { return r.Metrics[name] }

// SetSize returns the number of distinct values collected under name.
func (r Row) SetSize(name string) int { return len(r.Sets[name]) }

// Strings returns a distinct string set.
func (r Row) Strings(name string) []string {
	raw := r.Sets[name]
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Numbers returns a distinct numeric set.
func (r Row) Numbers(name string) []float64 {
	raw := r.Sets[name]
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

// FindOptions shapes a Find call. Sort keys name document fields.
type FindOptions struct {
	Sort       []SortKey
	Skip       int64
	Limit      int64
	Projection []string
}

// InsertFailure is one record rejected by InsertMany.
type InsertFailure struct {
	Index int
	Err   error
}

// InsertManyResult reports an unordered bulk insert. Records not listed in
// Failures were persisted.
type InsertManyResult struct {
	InsertedCount int
	Failures      []InsertFailure
}
