package store

import (
	"context"
	"errors"
	"testing"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed() *Memory {
	return NewMemory(
		models.InsightModel{Title: "a", Sector: "Energy", Region: "Asia", Country: "India", Intensity: 10, Relevance: 2, EndYear: models.KnownYear(2020), Added: "2017-01-01"},
		models.InsightModel{Title: "b", Sector: "Energy", Region: "Asia", Country: "Iran", Intensity: 20, Relevance: 4, EndYear: models.KnownYear(2021), Added: "2017-01-03"},
		models.InsightModel{Title: "c", Sector: "", Region: "Europe", Country: "", Intensity: 5, Relevance: 4, Added: "2017-01-02"},
	)
}

func TestMemory_FindMatchesAndSorts(t *testing.T) {
	s := seed()
	ctx := context.Background()

	out, err := s.Find(ctx, query.Predicate{}, FindOptions{Sort: []SortKey{{Name: "added", Desc: true}}})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(out) != 3 || out[0].Title != "b" || out[1].Title != "c" || out[2].Title != "a" {
		t.Errorf("Unexpected order: %v", titles(out))
	}

	// Ties on relevance keep insertion order.
	out, err = s.Find(ctx, query.Predicate{}, FindOptions{Sort: []SortKey{{Name: "relevance", Desc: true}}, Limit: 2})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(out) != 2 || out[0].Title != "b" || out[1].Title != "c" {
		t.Errorf("Unexpected order: %v", titles(out))
	}

	out, err = s.Find(ctx, query.Predicate{}, FindOptions{Skip: 5})
	if err != nil || len(out) != 0 {
		t.Errorf("Expected empty page past the end, got %v, %v", titles(out), err)
	}
}

func TestMemory_ClauseSemantics(t *testing.T) {
	s := seed()
	ctx := context.Background()
	lo := 10.0
	topicless, _ := query.Matches("title", "^A$")

	tests := []struct {
		name string
		pred query.Predicate
		want int64
	}{
		{"match all", query.Predicate{}, 3},
		{"equals", query.NewPredicate(query.Equals("sector", "Energy")), 2},
		{"year equals ignores unset", query.NewPredicate(query.YearEquals("end_year", 2020)), 1},
		{"not empty", query.NewPredicate(query.NotEmpty("country")), 2},
		{"not empty on numeric year", query.NewPredicate(query.NotEmpty("end_year")), 2},
		{"is number", query.NewPredicate(query.IsNumber("end_year")), 2},
		{"between open", query.NewPredicate(query.Between("intensity", &lo, nil)), 2},
		{"regex case-insensitive", query.NewPredicate(topicless), 1},
		{"conjunction on one field", query.NewPredicate(query.Equals("region", "Asia"), query.NotEmpty("region")), 2},
		{"any of", query.NewPredicate(query.AnyOf(query.Equals("country", "Iran"), query.Equals("region", "Europe"))), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.pred)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, n)
			}
		})
	}
}

func TestMemory_AggregateGroupsSortsAndBreaksTies(t *testing.T) {
	s := NewMemory(
		models.InsightModel{Region: "b", Intensity: 10},
		models.InsightModel{Region: "a", Intensity: 10},
		models.InsightModel{Region: "c", Intensity: 30},
		models.InsightModel{Region: "c", Intensity: 10, Country: "X"},
	)
	rows, err := s.Aggregate(context.Background(), query.Predicate{}, Pipeline{
		GroupBy:      "region",
		Accumulators: []Accumulator{Count("count"), Avg("avg", "intensity"), Distinct("countries", "country")},
		Sort:         []SortKey{{Name: "avg", Desc: true}},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(rows))
	}
	keys := []interface{}{rows[0].Key, rows[1].Key, rows[2].Key}
	if keys[0] != "c" || keys[1] != "a" || keys[2] != "b" {
		t.Errorf("Unexpected group order: %v", keys)
	}
	if rows[0].Metric("count") != 2 || rows[0].Metric("avg") != 20 {
		t.Errorf("Unexpected metrics: %v", rows[0].Metrics)
	}
	if rows[0].SetSize("countries") != 1 || rows[1].SetSize("countries") != 0 {
		t.Errorf("Unexpected distinct sets: %v / %v", rows[0].Sets, rows[1].Sets)
	}
}

func TestMemory_AggregateSkipsNonNumeric(t *testing.T) {
	s := NewMemory(
		models.InsightModel{Topic: "oil", Impact: models.KnownImpact(2)},
		models.InsightModel{Topic: "oil"},
	)
	rows, err := s.Aggregate(context.Background(), query.Predicate{}, Pipeline{
		GroupBy:      "topic",
		Accumulators: []Accumulator{Sum("impact", "impact"), Avg("avgImpact", "impact"), DistinctNumber("years", "end_year")},
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if rows[0].Metric("impact") != 2 || rows[0].Metric("avgImpact") != 2 {
		t.Errorf("Unexpected metrics: %v", rows[0].Metrics)
	}
	if rows[0].SetSize("years") != 0 {
		t.Errorf("Expected no numeric years, got %v", rows[0].Sets["years"])
	}
}

func TestMemory_AggregateEmptyGlobalGroup(t *testing.T) {
	rows, err := NewMemory().Aggregate(context.Background(), query.Predicate{}, Pipeline{Accumulators: []Accumulator{Count("n")}})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %v", rows)
	}
}

func TestMemory_InsertManyReportsDuplicates(t *testing.T) {
	s := NewMemory()
	dup := primitive.NewObjectID()
	recs := []models.InsightModel{
		{ID: dup, Title: "1"},
		{Title: "2"},
		{ID: dup, Title: "3"},
		{Title: "4"},
	}
	res, err := s.InsertMany(context.Background(), recs)
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if res.InsertedCount != 3 || len(res.Failures) != 1 || res.Failures[0].Index != 2 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if !errors.Is(res.Failures[0].Err, apperr.ErrConstraintViolation) {
		t.Errorf("Expected constraint violation, got %v", res.Failures[0].Err)
	}
	if recs[1].ID.IsZero() {
		t.Error("Expected generated id to be written back")
	}
}

func TestMemory_CRUD(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	rec := &models.InsightModel{Title: "first"}
	if err := s.InsertOne(ctx, rec); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if err := s.InsertOne(ctx, rec); !errors.Is(err, apperr.ErrConstraintViolation) {
		t.Errorf("Expected duplicate insert to fail, got %v", err)
	}

	id := rec.ID.Hex()
	got, err := s.FindByID(ctx, id)
	if err != nil || got == nil || got.Title != "first" {
		t.Fatalf("FindByID = %v, %v", got, err)
	}

	updated, err := s.UpdateByID(ctx, id, &models.InsightModel{Title: "second"})
	if err != nil || updated == nil || updated.Title != "second" || updated.ID != rec.ID {
		t.Fatalf("UpdateByID = %v, %v", updated, err)
	}

	ok, err := s.DeleteByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("DeleteByID = %v, %v", ok, err)
	}
	got, err = s.FindByID(ctx, id)
	if err != nil || got != nil {
		t.Errorf("Expected missing record after delete, got %v, %v", got, err)
	}
	ok, err = s.DeleteByID(ctx, id)
	if err != nil || ok {
		t.Errorf("Expected second delete to report false, got %v, %v", ok, err)
	}

	if _, err := s.FindByID(ctx, "not-an-id"); !errors.Is(err, apperr.ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

func TestMemory_Unavailable(t *testing.T) {
	s := seed()
	s.SetUnavailable(errors.New("connection refused"))
	if _, err := s.Count(context.Background(), query.Predicate{}); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
	s.SetUnavailable(nil)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Expected store to recover, got %v", err)
	}
}

func titles(recs []models.InsightModel) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}
