// Package analytics computes the read-only aggregate views over insights.
// Every view builds the filter predicate, adds its own refinement and runs
// a single aggregation.
package analytics

import (
	"context"
	"errors"
	"math"

	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
)

const (
	breakdownPlaces = 1
	overviewPlaces  = 2

	topicLimit   = 15
	countryLimit = 20

	unknownLabel = "Unknown"
)

// Accumulator output names.
const (
	mCount          = "count"
	mAvgIntensity   = "avgIntensity"
	mAvgRelevance   = "avgRelevance"
	mAvgLikelihood  = "avgLikelihood"
	mMaxIntensity   = "maxIntensity"
	mMinIntensity   = "minIntensity"
	mTotalIntensity = "totalIntensity"
	mTotalImpact    = "totalImpact"
	sCountries      = "countries"
	sSectors        = "sectors"
	sTopics         = "topics"
)

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

func (s *Service) Overview(ctx context.Context, c query.Criteria) (*Overview, error) {
	rows, err := s.aggregate(ctx, "overview", c, nil, store.Pipeline{
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Max(mMaxIntensity, "intensity"),
			store.Min(mMinIntensity, "intensity"),
			store.Distinct(sCountries, "country"),
			store.Distinct(sSectors, "sector"),
			store.Distinct(sTopics, "topic"),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Overview{}, nil
	}

	r := rows[0]
	return &Overview{
		TotalRecords:         int64(r.Metric(mCount)),
		AvgIntensity:         round(r.Metric(mAvgIntensity), overviewPlaces),
		AvgRelevance:         round(r.Metric(mAvgRelevance), overviewPlaces),
		AvgLikelihood:        round(r.Metric(mAvgLikelihood), overviewPlaces),
		MaxIntensity:         r.Metric(mMaxIntensity),
		MinIntensity:         r.Metric(mMinIntensity),
		UniqueCountriesCount: r.SetSize(sCountries),
		UniqueSectorsCount:   r.SetSize(sSectors),
		UniqueTopicsCount:    r.SetSize(sTopics),
	}, nil
}

func (s *Service) ByRegion(ctx context.Context, c query.Criteria) ([]RegionBreakdown, error) {
	rows, err := s.aggregate(ctx, "by-region", c, []query.Clause{query.NotEmpty("region")}, store.Pipeline{
		GroupBy: "region",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Max(mMaxIntensity, "intensity"),
			store.Min(mMinIntensity, "intensity"),
		},
		Sort: []store.SortKey{{Name: mAvgIntensity, Desc: true}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]RegionBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, RegionBreakdown{
			Region:        keyString(r.Key),
			Count:         int64(r.Metric(mCount)),
			AvgIntensity:  round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:  round(r.Metric(mAvgRelevance), breakdownPlaces),
			AvgLikelihood: round(r.Metric(mAvgLikelihood), breakdownPlaces),
			MaxIntensity:  r.Metric(mMaxIntensity),
			MinIntensity:  r.Metric(mMinIntensity),
		})
	}
	return out, nil
}

func (s *Service) ByTopic(ctx context.Context, c query.Criteria) ([]TopicBreakdown, error) {
	rows, err := s.aggregate(ctx, "by-topic", c, []query.Clause{query.NotEmpty("topic")}, store.Pipeline{
		GroupBy: "topic",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Sum(mTotalImpact, "impact"),
			store.Distinct(sCountries, "country"),
			store.Distinct(sSectors, "sector"),
		},
		Sort:  []store.SortKey{{Name: mCount, Desc: true}},
		Limit: topicLimit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]TopicBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopicBreakdown{
			Topic:          keyString(r.Key),
			Count:          int64(r.Metric(mCount)),
			AvgIntensity:   round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:   round(r.Metric(mAvgRelevance), breakdownPlaces),
			TotalImpact:    r.Metric(mTotalImpact),
			CountriesCount: r.SetSize(sCountries),
			SectorsCount:   r.SetSize(sSectors),
		})
	}
	return out, nil
}

func (s *Service) ByCountry(ctx context.Context, c query.Criteria) ([]CountryBreakdown, error) {
	rows, err := s.aggregate(ctx, "by-country", c, []query.Clause{query.NotEmpty("country")}, store.Pipeline{
		GroupBy: "country",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Sum(mTotalIntensity, "intensity"),
			store.Distinct(sSectors, "sector"),
			store.Distinct(sTopics, "topic"),
		},
		Sort:  []store.SortKey{{Name: mTotalIntensity, Desc: true}},
		Limit: countryLimit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]CountryBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, CountryBreakdown{
			Country:        keyString(r.Key),
			Count:          int64(r.Metric(mCount)),
			AvgIntensity:   round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:   round(r.Metric(mAvgRelevance), breakdownPlaces),
			AvgLikelihood:  round(r.Metric(mAvgLikelihood), breakdownPlaces),
			TotalIntensity: r.Metric(mTotalIntensity),
			SectorsCount:   r.SetSize(sSectors),
			TopicsCount:    r.SetSize(sTopics),
		})
	}
	return out, nil
}

// YearlyTrends groups by end year. Records whose end year is the empty
// sentinel never form a group.
func (s *Service) YearlyTrends(ctx context.Context, c query.Criteria) ([]YearlyTrend, error) {
	refine := []query.Clause{query.NotEmpty("end_year"), query.IsNumber("end_year")}
	rows, err := s.aggregate(ctx, "yearly-trends", c, refine, store.Pipeline{
		GroupBy: "end_year",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Max(mMaxIntensity, "intensity"),
			store.Distinct(sSectors, "sector"),
		},
		Sort: []store.SortKey{{Name: store.KeyName}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]YearlyTrend, 0, len(rows))
	for _, r := range rows {
		year, ok := r.Key.(float64)
		if !ok {
			continue
		}
		out = append(out, YearlyTrend{
			Year:          int(year),
			Count:         int64(r.Metric(mCount)),
			AvgIntensity:  round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:  round(r.Metric(mAvgRelevance), breakdownPlaces),
			AvgLikelihood: round(r.Metric(mAvgLikelihood), breakdownPlaces),
			MaxIntensity:  r.Metric(mMaxIntensity),
			ActiveSectors: r.SetSize(sSectors),
		})
	}
	return out, nil
}

func (s *Service) BySector(ctx context.Context, c query.Criteria) ([]SectorBreakdown, error) {
	rows, err := s.aggregate(ctx, "by-sector", c, []query.Clause{query.NotEmpty("sector")}, store.Pipeline{
		GroupBy: "sector",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Sum(mTotalIntensity, "intensity"),
			store.Distinct(sTopics, "topic"),
			store.Distinct(sCountries, "country"),
		},
		Sort: []store.SortKey{{Name: mTotalIntensity, Desc: true}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]SectorBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, SectorBreakdown{
			Sector:         keyString(r.Key),
			Count:          int64(r.Metric(mCount)),
			AvgIntensity:   round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:   round(r.Metric(mAvgRelevance), breakdownPlaces),
			AvgLikelihood:  round(r.Metric(mAvgLikelihood), breakdownPlaces),
			TotalIntensity: r.Metric(mTotalIntensity),
			TopicsCount:    r.SetSize(sTopics),
			CountriesCount: r.SetSize(sCountries),
		})
	}
	return out, nil
}

func (s *Service) ByPestle(ctx context.Context, c query.Criteria) ([]PestleBreakdown, error) {
	rows, err := s.aggregate(ctx, "by-pestle", c, []query.Clause{query.NotEmpty("pestle")}, store.Pipeline{
		GroupBy: "pestle",
		Accumulators: []store.Accumulator{
			store.Count(mCount),
			store.Avg(mAvgIntensity, "intensity"),
			store.Avg(mAvgRelevance, "relevance"),
			store.Avg(mAvgLikelihood, "likelihood"),
			store.Distinct(sSectors, "sector"),
		},
		Sort: []store.SortKey{{Name: mAvgIntensity, Desc: true}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]PestleBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, PestleBreakdown{
			Pestle:        keyString(r.Key),
			Count:         int64(r.Metric(mCount)),
			AvgIntensity:  round(r.Metric(mAvgIntensity), breakdownPlaces),
			AvgRelevance:  round(r.Metric(mAvgRelevance), breakdownPlaces),
			AvgLikelihood: round(r.Metric(mAvgLikelihood), breakdownPlaces),
			SectorsCount:  r.SetSize(sSectors),
		})
	}
	return out, nil
}

// Correlation returns one point per matched record in store order.
func (s *Service) Correlation(ctx context.Context, c query.Criteria) ([]CorrelationPoint, error) {
	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.Find(ctx, pred, store.FindOptions{
		Projection: []string{"intensity", "relevance", "likelihood", "sector", "region"},
	})
	if err != nil {
		return nil, s.fail("correlation", err)
	}

	out := make([]CorrelationPoint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, CorrelationPoint{
			Intensity:  rec.Intensity,
			Relevance:  rec.Relevance,
			Likelihood: rec.Likelihood,
			Sector:     orUnknown(rec.Sector),
			Region:     orUnknown(rec.Region),
		})
	}
	return out, nil
}

func (s *Service) aggregate(ctx context.Context, view string, c query.Criteria, refine []query.Clause, p store.Pipeline) ([]store.Row, error) {
	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Aggregate(ctx, pred.With(refine...), p)
	if err != nil {
		return nil, s.fail(view, err)
	}
	return rows, nil
}

func (s *Service) fail(view string, err error) error {
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		s.logger.Warn("analytics query failed", zap.String("view", view), zap.Error(err))
	}
	return err
}

// round rounds half away from zero to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func keyString(key interface{}) string {
	s, _ := key.(string)
	return s
}

func orUnknown(v string) string {
	if v == "" {
		return unknownLabel
	}
	return v
}
