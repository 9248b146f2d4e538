// Package insight serves paginated, searched and bulk-written insight
// records.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/metrics"
	"github.com/insightboard/core/internal/pkg/pagination"
	"github.com/insightboard/core/internal/pkg/query"
	"github.com/insightboard/core/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MinSearchLength is the shortest accepted search query, in characters.
	MinSearchLength = 2
	// SearchLimit caps the number of search results.
	SearchLimit = 20
)

var searchFields = []string{"title", "insight", "topic", "source"}

type Service struct {
	store   store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(st store.Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger, metrics: m, now: time.Now}
}

// List returns one page of the records matching c, newest added first.
func (s *Service) List(ctx context.Context, c query.Criteria, q pagination.Query) (*ListResult, error) {
	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}

	var (
		items []models.InsightModel
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.Find(gctx, pred, store.FindOptions{
			Sort:  []store.SortKey{{Name: "added", Desc: true}},
			Skip:  q.Skip(),
			Limit: int64(q.Limit),
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail("list", err)
	}

	if items == nil {
		items = []models.InsightModel{}
	}
	return &ListResult{Data: items, Pagination: pagination.Build(q, total)}, nil
}

// Search returns up to SearchLimit records matching c whose title, insight,
// topic or source contain text, most relevant first.
func (s *Service) Search(ctx context.Context, text string, c query.Criteria) ([]models.InsightModel, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinSearchLength {
		return nil, fmt.Errorf("%w: query must be at least %d characters long", apperr.ErrInvalidFilter, MinSearchLength)
	}

	pred, err := query.Build(c)
	if err != nil {
		return nil, err
	}
	anyOf := make([]query.Clause, 0, len(searchFields))
	for _, f := range searchFields {
		cl, err := query.Matches(f, text)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid search pattern: %v", apperr.ErrInvalidFilter, err)
		}
		anyOf = append(anyOf, cl)
	}

	out, err := s.store.Find(ctx, pred.With(query.AnyOf(anyOf...)), store.FindOptions{
		Sort:  []store.SortKey{{Name: "relevance", Desc: true}, {Name: "intensity", Desc: true}},
		Limit: SearchLimit,
	})
	if err != nil {
		return nil, s.fail("search", err)
	}
	if out == nil {
		out = []models.InsightModel{}
	}
	return out, nil
}

// BulkInsert stores every valid record in records without stopping at the
// first rejection. Records that fail to decode or validate are counted
// with duplicates, not returned as errors.
func (s *Service) BulkInsert(ctx context.Context, records []json.RawMessage) (*BulkResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: data must be a non-empty array", apperr.ErrValidation)
	}

	now := s.now()
	recs := make([]models.InsightModel, 0, len(records))
	invalid := 0
	for i, raw := range records {
		in, err := decodeInput(raw)
		var m models.InsightModel
		if err == nil {
			m, err = in.Model()
		}
		if err != nil {
			invalid++
			s.logger.Debug("bulk insert record rejected", zap.Int("index", i), zap.Error(err))
			continue
		}
		m.Touch(now)
		recs = append(recs, m)
	}

	inserted := 0
	if len(recs) > 0 {
		res, err := s.store.InsertMany(ctx, recs)
		if err != nil {
			return nil, s.fail("bulk_insert", err)
		}
		inserted = res.InsertedCount
		for _, f := range res.Failures {
			s.logger.Debug("bulk insert record skipped", zap.Int("index", f.Index), zap.Error(f.Err))
		}
	}

	total := len(records)
	s.metrics.RecordBulkInsert(inserted, total-inserted)

	out := &BulkResult{Success: true, Inserted: inserted, Total: total}
	if skipped := total - inserted; skipped > 0 {
		out.Duplicates = skipped
		out.Message = fmt.Sprintf("Inserted %d records, %d duplicates skipped", inserted, skipped)
		s.logger.Info("bulk insert completed with skipped records",
			zap.Int("inserted", inserted),
			zap.Int("skipped", skipped),
			zap.Int("invalid", invalid),
		)
	}
	return out, nil
}

// GetByIDs returns the stored records among ids. Unknown ids are absent
// from the result.
func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]models.InsightModel, error) {
	if len(ids) == 0 {
		return []models.InsightModel{}, nil
	}
	out, err := s.store.Find(ctx, query.NewPredicate(query.IDIn(ids)), store.FindOptions{})
	if err != nil {
		return nil, s.fail("lookup", err)
	}
	if out == nil {
		out = []models.InsightModel{}
	}
	return out, nil
}

// GetByID returns nil when no record has the id.
func (s *Service) GetByID(ctx context.Context, id string) (*models.InsightModel, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	return rec, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.InsightModel, error) {
	m, err := in.Model()
	if err != nil {
		return nil, err
	}
	m.Touch(s.now())
	if err := s.store.InsertOne(ctx, &m); err != nil {
		return nil, s.fail("create", err)
	}
	return &m, nil
}

// Update replaces the record's fields and returns the stored result, or
// nil when no record has the id.
func (s *Service) Update(ctx context.Context, id string, in Input) (*models.InsightModel, error) {
	in.ID = ""
	m, err := in.Model()
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now()
	rec, err := s.store.UpdateByID(ctx, id, &m)
	if err != nil {
		return nil, s.fail("update", err)
	}
	return rec, nil
}

// Delete reports whether a record was removed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, s.fail("delete", err)
	}
	return ok, nil
}

func (s *Service) fail(op string, err error) error {
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		s.logger.Warn("insight store call failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
