// Package filter resolves the choices available for each filter dimension.
package filter

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
)

const statPlaces = 2

var distinctFields = []struct{ name, field string }{
	{"sectors", "sector"},
	{"topics", "topic"},
	{"regions", "region"},
	{"countries", "country"},
	{"pestles", "pestle"},
	{"sources", "source"},
	{"cities", "city"},
}

var scoreFields = []string{"intensity", "relevance", "likelihood"}

type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// Defaults returns the options over the whole collection.
func (s *Service) Defaults(ctx context.Context) (*Options, error) {
	row, err := s.optionsRow(ctx, "defaults", query.Predicate{}, false)
	if err != nil {
		return nil, err
	}
	opts := optionsFrom(row)
	return &opts, nil
}

// Cascading returns the options and score ranges over the records matching c.
func (s *Service) Cascading(ctx context.Context, c query.Criteria) (*CascadingOptions, error) {
	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}
	row, err := s.optionsRow(ctx, "cascading", pred, true)
	if err != nil {
		return nil, err
	}

	out := &CascadingOptions{Options: optionsFrom(row)}
	if row != nil {
		out.IntensityRange = rangeOf(*row, "intensity")
		out.RelevanceRange = rangeOf(*row, "relevance")
		out.LikelihoodRange = rangeOf(*row, "likelihood")
	}
	return out, nil
}

// Statistics returns the record count and score statistics over the
// records matching c.
func (s *Service) Statistics(ctx context.Context, c query.Criteria) (*Statistics, error) {
	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}

	accs := []store.Accumulator{store.Count("total")}
	for _, f := range scoreFields {
		accs = append(accs, store.Avg(f+"Avg", f), store.Min(f+"Min", f), store.Max(f+"Max", f))
	}
	rows, err := s.store.Aggregate(ctx, pred, store.Pipeline{Accumulators: accs})
	if err != nil {
		return nil, s.fail("statistics", err)
	}
	if len(rows) == 0 {
		return &Statistics{}, nil
	}

	r := rows[0]
	stat := func(f string) Stat {
		return Stat{
			Avg: round(r.Metric(f+"Avg"), statPlaces),
			Min: r.Metric(f + "Min"),
			Max: r.Metric(f + "Max"),
		}
	}
	return &Statistics{
		TotalRecords:    int64(r.Metric("total")),
		IntensityStats:  stat("intensity"),
		RelevanceStats:  stat("relevance"),
		LikelihoodStats: stat("likelihood"),
	}, nil
}

// optionsRow runs the single global-group aggregation. A nil row means no
// record matched.
func (s *Service) optionsRow(ctx context.Context, op string, pred query.Predicate, ranges bool) (*store.Row, error) {
	accs := make([]store.Accumulator, 0, len(distinctFields)+1+2*len(scoreFields))
	for _, d := range distinctFields {
		accs = append(accs, store.Distinct(d.name, d.field))
	}
	accs = append(accs, store.DistinctNumber("endYears", "end_year"))
	if ranges {
		for _, f := range scoreFields {
			accs = append(accs, store.Min(f+"Min", f), store.Max(f+"Max", f))
		}
	}

	rows, err := s.store.Aggregate(ctx, pred, store.Pipeline{Accumulators: accs})
	if err != nil {
		return nil, s.fail(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Service) fail(op string, err error) error {
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		s.logger.Warn("filter options query failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func optionsFrom(row *store.Row) Options {
	var r store.Row
	if row != nil {
		r = *row
	}
	years := r.Numbers("endYears")
	endYears := make([]int, 0, len(years))
	for _, y := range years {
		endYears = append(endYears, int(y))
	}
	sort.Ints(endYears)

	return Options{
		Sectors:   sortedStrings(r, "sectors"),
		Topics:    sortedStrings(r, "topics"),
		Regions:   sortedStrings(r, "regions"),
		Countries: sortedStrings(r, "countries"),
		Pestles:   sortedStrings(r, "pestles"),
		Sources:   sortedStrings(r, "sources"),
		Cities:    sortedStrings(r, "cities"),
		EndYears:  endYears,
	}
}

func sortedStrings(r store.Row, name string) []string {
	out := r.Strings(name)
	sort.Strings(out)
	return out
}

func rangeOf(r store.Row, field string) *Range {
	lo, okLo := r.Metrics[field+"Min"]
	hi, okHi := r.Metrics[field+"Max"]
	if !okLo || !okHi {
		return nil
	}
	return &Range{Min: lo, Max: hi}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
