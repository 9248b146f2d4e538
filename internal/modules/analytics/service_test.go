package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/store"
)

func energySample() *store.Memory {
	return store.NewMemory(
		models.InsightModel{Intensity: 10, Relevance: 2, Likelihood: 3, Sector: "Energy", Region: "World", Country: "India", Topic: "oil", Pestle: "Economic", EndYear: models.KnownYear(2030), Impact: models.KnownImpact(2)},
		models.InsightModel{Intensity: 20, Relevance: 3, Likelihood: 4, Sector: "Energy", Region: "World", Country: "Iran", Topic: "gas", Pestle: "Economic", EndYear: models.KnownYear(2025)},
		models.InsightModel{Intensity: 5, Relevance: 1, Likelihood: 1, Sector: "", Region: "Asia", Country: "", Topic: "oil", Pestle: ""},
	)
}

func TestOverview(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.Overview(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if out.TotalRecords != 3 {
		t.Errorf("Expected 3 records, got %d", out.TotalRecords)
	}
	if out.AvgIntensity != 11.67 || out.AvgRelevance != 2 || out.AvgLikelihood != 2.67 {
		t.Errorf("Unexpected averages: %+v", out)
	}
	if out.MaxIntensity != 20 || out.MinIntensity != 5 {
		t.Errorf("Unexpected min/max: %+v", out)
	}
	if out.UniqueCountriesCount != 2 || out.UniqueSectorsCount != 1 || out.UniqueTopicsCount != 2 {
		t.Errorf("Unexpected distinct counts: %+v", out)
	}
}

func TestOverview_NoMatchIsZeroFilled(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.Overview(context.Background(), query.Criteria{Sector: "Retail"})
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if *out != (Overview{}) {
		t.Errorf("Expected zero-filled overview, got %+v", out)
	}
}

func TestBySector_ExcludesEmptySector(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.BySector(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("BySector failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected only Energy, got %+v", out)
	}
	got := out[0]
	if got.Sector != "Energy" || got.Count != 2 || got.AvgIntensity != 15.0 || got.TotalIntensity != 30 {
		t.Errorf("Unexpected Energy breakdown: %+v", got)
	}
	if got.TopicsCount != 2 || got.CountriesCount != 2 {
		t.Errorf("Unexpected distinct counts: %+v", got)
	}
}

func TestByRegion_SortsByAverageIntensity(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.ByRegion(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByRegion failed: %v", err)
	}
	if len(out) != 2 || out[0].Region != "World" || out[1].Region != "Asia" {
		t.Fatalf("Unexpected order: %+v", out)
	}
	if out[0].AvgIntensity != 15 || out[0].MaxIntensity != 20 || out[0].MinIntensity != 10 {
		t.Errorf("Unexpected World breakdown: %+v", out[0])
	}
}

func TestByRegion_RoundedTiesKeepUnroundedOrder(t *testing.T) {
	svc := NewService(store.NewMemory(
		models.InsightModel{Intensity: 7.02, Region: "Europe"},
		models.InsightModel{Intensity: 7.06, Region: "Oceania"},
		models.InsightModel{Intensity: 7.04, Region: "World"},
	), nil)
	out, err := svc.ByRegion(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByRegion failed: %v", err)
	}
	want := []struct {
		region string
		avg    float64
	}{{"Oceania", 7.1}, {"World", 7}, {"Europe", 7}}
	if len(out) != len(want) {
		t.Fatalf("Unexpected breakdown: %+v", out)
	}
	for i, w := range want {
		if out[i].Region != w.region || out[i].AvgIntensity != w.avg {
			t.Errorf("row %d = %s/%v, want %s/%v", i, out[i].Region, out[i].AvgIntensity, w.region, w.avg)
		}
	}
}

func TestByRegion_FilterAndRefinementBothApply(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.ByRegion(context.Background(), query.Criteria{Region: "Asia"})
	if err != nil {
		t.Fatalf("ByRegion failed: %v", err)
	}
	if len(out) != 1 || out[0].Region != "Asia" || out[0].Count != 1 {
		t.Errorf("Unexpected breakdown: %+v", out)
	}
}

func TestByTopic(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.ByTopic(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByTopic failed: %v", err)
	}
	if len(out) != 2 || out[0].Topic != "oil" || out[0].Count != 2 {
		t.Fatalf("Unexpected topics: %+v", out)
	}
	if out[0].TotalImpact != 2 {
		t.Errorf("Expected unset impact to contribute 0, got %v", out[0].TotalImpact)
	}
	if out[0].CountriesCount != 1 || out[0].SectorsCount != 1 {
		t.Errorf("Unexpected distinct counts: %+v", out[0])
	}
}

func TestByTopic_Limit(t *testing.T) {
	var recs []models.InsightModel
	for i := 0; i < topicLimit+5; i++ {
		recs = append(recs, models.InsightModel{Topic: string(rune('a' + i)), Intensity: 1})
	}
	out, err := NewService(store.NewMemory(recs...), nil).ByTopic(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByTopic failed: %v", err)
	}
	if len(out) != topicLimit {
		t.Fatalf("Expected %d topics, got %d", topicLimit, len(out))
	}
	// Equal counts fall back to key order.
	if out[0].Topic != "a" || out[topicLimit-1].Topic != string(rune('a'+topicLimit-1)) {
		t.Errorf("Unexpected tie order: first=%q last=%q", out[0].Topic, out[topicLimit-1].Topic)
	}
}

func TestByCountry(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.ByCountry(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByCountry failed: %v", err)
	}
	if len(out) != 2 || out[0].Country != "Iran" || out[0].TotalIntensity != 20 {
		t.Errorf("Unexpected countries: %+v", out)
	}
}

func TestYearlyTrends_ExcludesEmptyYear(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.YearlyTrends(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("YearlyTrends failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Expected 2 years, got %+v", out)
	}
	if out[0].Year != 2025 || out[1].Year != 2030 {
		t.Errorf("Expected ascending years, got %+v", out)
	}
	if out[1].ActiveSectors != 1 || out[1].MaxIntensity != 10 {
		t.Errorf("Unexpected 2030 trend: %+v", out[1])
	}
}

func TestByPestle(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.ByPestle(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("ByPestle failed: %v", err)
	}
	if len(out) != 1 || out[0].Pestle != "Economic" || out[0].SectorsCount != 1 || out[0].AvgLikelihood != 3.5 {
		t.Errorf("Unexpected pestle breakdown: %+v", out)
	}
}

func TestCorrelation_DefaultsUnknown(t *testing.T) {
	svc := NewService(energySample(), nil)
	out, err := svc.Correlation(context.Background(), query.Criteria{Region: "Asia"})
	if err != nil {
		t.Fatalf("Correlation failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected one point, got %+v", out)
	}
	if out[0].Sector != "Unknown" || out[0].Region != "Asia" || out[0].Intensity != 5 {
		t.Errorf("Unexpected point: %+v", out[0])
	}
}

func TestViews_PropagateErrors(t *testing.T) {
	st := energySample()
	svc := NewService(st, nil)

	if _, err := svc.ByRegion(context.Background(), query.Criteria{EndYear: "soon"}); !errors.Is(err, apperr.ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}

	st.SetUnavailable(errors.New("timeout"))
	if _, err := svc.Overview(context.Background(), query.Criteria{}); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := svc.Correlation(context.Background(), query.Criteria{}); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{2.25, 1, 2.3},
		{-2.25, 1, -2.3},
		{0.125, 2, 0.13},
		{15, 1, 15},
	}
	for _, tt := range tests {
		if got := round(tt.in, tt.places); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}
