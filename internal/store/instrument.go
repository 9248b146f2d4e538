package store

import (
	"context"
	"time"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/metrics"
	"github.com/insightboard/core/internal/pkg/query"
)

// Instrumented wraps a Store and reports per-operation latency and failures.
type Instrumented struct {
	next Store
	m    *metrics.Metrics
}

// Instrument returns next unchanged when m is nil.
func Instrument(next Store, m *metrics.Metrics) Store {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, m: m}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.m.ObserveStore(op, time.Since(start), err)
}

func (s *Instrumented) Aggregate(ctx context.Context, pred query.Predicate, p Pipeline) ([]Row, error) {
	start := time.Now()
	rows, err := s.next.Aggregate(ctx, pred, p)
	s.observe("aggregate", start, err)
	return rows, err
}

func (s *Instrumented) Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]models.InsightModel, error) {
	start := time.Now()
	out, err := s.next.Find(ctx, pred, opts)
	s.observe("find", start, err)
	return out, err
}

func (s *Instrumented) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	start := time.Now()
	n, err := s.next.Count(ctx, pred)
	s.observe("count", start, err)
	return n, err
}

func (s *Instrumented) InsertOne(ctx context.Context, rec *models.InsightModel) error {
	start := time.Now()
	err := s.next.InsertOne(ctx, rec)
	s.observe("insert_one", start, err)
	return err
}

func (s *Instrumented) InsertMany(ctx context.Context, recs []models.InsightModel) (InsertManyResult, error) {
	start := time.Now()
	res, err := s.next.InsertMany(ctx, recs)
	s.observe("insert_many", start, err)
	return res, err
}

func (s *Instrumented) FindByID(ctx context.Context, id string) (*models.InsightModel, error) {
	start := time.Now()
	rec, err := s.next.FindByID(ctx, id)
	s.observe("find_by_id", start, err)
	return rec, err
}

func (s *Instrumented) UpdateByID(ctx context.Context, id string, rec *models.InsightModel) (*models.InsightModel, error) {
	start := time.Now()
	out, err := s.next.UpdateByID(ctx, id, rec)
	s.observe("update_by_id", start, err)
	return out, err
}

func (s *Instrumented) DeleteByID(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := s.next.DeleteByID(ctx, id)
	s.observe("delete_by_id", start, err)
	return ok, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}
