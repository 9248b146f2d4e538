package filter

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/store"
)

func sample() *store.Memory {
	return store.NewMemory(
		models.InsightModel{Intensity: 6, Relevance: 2, Likelihood: 3, Sector: "Energy", Topic: "oil", Region: "World", Country: "Iran", Pestle: "Economic", Source: "EIA", City: "Tehran", EndYear: models.KnownYear(2030)},
		models.InsightModel{Intensity: 40, Relevance: 5, Likelihood: 4, Sector: "Retail", Topic: "gas", Region: "Asia", Country: "India", Pestle: "Social", Source: "WSJ", EndYear: models.KnownYear(2020)},
		models.InsightModel{Intensity: 1, Relevance: 1, Likelihood: 1, Sector: "Energy", Topic: "coal", Region: "World", Country: "", Source: "EIA"},
	)
}

func TestDefaults(t *testing.T) {
	svc := NewService(sample(), nil)
	out, err := svc.Defaults(context.Background())
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}

	want := Options{
		Sectors:   []string{"Energy", "Retail"},
		Topics:    []string{"coal", "gas", "oil"},
		Regions:   []string{"Asia", "World"},
		Countries: []string{"India", "Iran"},
		Pestles:   []string{"Economic", "Social"},
		Sources:   []string{"EIA", "WSJ"},
		Cities:    []string{"Tehran"},
		EndYears:  []int{2020, 2030},
	}
	if !reflect.DeepEqual(*out, want) {
		t.Errorf("Defaults() = %+v, want %+v", *out, want)
	}
}

func TestDefaults_Idempotent(t *testing.T) {
	svc := NewService(sample(), nil)
	first, err := svc.Defaults(context.Background())
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	second, err := svc.Defaults(context.Background())
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical option sets, got %+v and %+v", first, second)
	}
}

func TestCascading(t *testing.T) {
	svc := NewService(sample(), nil)
	out, err := svc.Cascading(context.Background(), query.Criteria{Sector: "Energy"})
	if err != nil {
		t.Fatalf("Cascading failed: %v", err)
	}
	if !reflect.DeepEqual(out.Topics, []string{"coal", "oil"}) || !reflect.DeepEqual(out.Regions, []string{"World"}) {
		t.Errorf("Unexpected cascading sets: %+v", out.Options)
	}
	if !reflect.DeepEqual(out.EndYears, []int{2030}) {
		t.Errorf("Expected only numeric years, got %v", out.EndYears)
	}
	if out.IntensityRange == nil || *out.IntensityRange != (Range{Min: 1, Max: 6}) {
		t.Errorf("Unexpected intensity range: %+v", out.IntensityRange)
	}
	if out.LikelihoodRange == nil || *out.LikelihoodRange != (Range{Min: 1, Max: 3}) {
		t.Errorf("Unexpected likelihood range: %+v", out.LikelihoodRange)
	}
}

func TestCascading_EmptySubsetHasNoRanges(t *testing.T) {
	svc := NewService(sample(), nil)
	out, err := svc.Cascading(context.Background(), query.Criteria{Sector: "Tourism"})
	if err != nil {
		t.Fatalf("Cascading failed: %v", err)
	}
	if out.IntensityRange != nil || out.RelevanceRange != nil || out.LikelihoodRange != nil {
		t.Errorf("Expected absent ranges, got %+v %+v %+v", out.IntensityRange, out.RelevanceRange, out.LikelihoodRange)
	}
	if out.Sectors == nil || len(out.Sectors) != 0 || out.EndYears == nil {
		t.Errorf("Expected empty non-nil sets, got %+v", out.Options)
	}
}

func TestCascading_InvalidFilter(t *testing.T) {
	svc := NewService(sample(), nil)
	if _, err := svc.Cascading(context.Background(), query.Criteria{MinIntensity: "high"}); !errors.Is(err, apperr.ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

func TestStatistics(t *testing.T) {
	svc := NewService(sample(), nil)
	out, err := svc.Statistics(context.Background(), query.Criteria{Source: "EIA"})
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if out.TotalRecords != 2 {
		t.Errorf("Expected 2 records, got %d", out.TotalRecords)
	}
	if out.IntensityStats != (Stat{Avg: 3.5, Min: 1, Max: 6}) {
		t.Errorf("Unexpected intensity stats: %+v", out.IntensityStats)
	}
	if out.RelevanceStats != (Stat{Avg: 1.5, Min: 1, Max: 2}) {
		t.Errorf("Unexpected relevance stats: %+v", out.RelevanceStats)
	}

	empty, err := svc.Statistics(context.Background(), query.Criteria{Source: "nobody"})
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if *empty != (Statistics{}) {
		t.Errorf("Expected zero-filled statistics, got %+v", empty)
	}
}

func TestService_StoreUnavailable(t *testing.T) {
	st := sample()
	st.SetUnavailable(errors.New("no reachable servers"))
	svc := NewService(st, nil)
	if _, err := svc.Defaults(context.Background()); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}
