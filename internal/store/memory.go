package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store that evaluates predicates and pipelines the
// same way the MongoDB backend compiles them. Records keep insertion order,
// which serves as the natural order.
type Memory struct {
	mu      sync.RWMutex
	records []models.InsightModel
	index   map[primitive.ObjectID]int
	down    error
}

// NewMemory creates an empty in-memory store seeded with recs.
func NewMemory(recs ...models.InsightModel) *Memory {
	m := &Memory{index: make(map[primitive.ObjectID]int)}
	for i := range recs {
		rec := recs[i]
		_ = m.insert(&rec)
	}
	return m
}

// SetUnavailable makes every call fail with err wrapped as
// apperr.ErrStoreUnavailable. Passing nil restores the store.
func (m *Memory) SetUnavailable(err error) {
	m.mu.Lock()
	m.down = err
	m.mu.Unlock()
}

func (m *Memory) check() error {
	if m.down != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, m.down)
	}
	return nil
}

func (m *Memory) Aggregate(ctx context.Context, pred query.Predicate, p Pipeline) ([]Row, error) {
	matched, err := m.match(ctx, pred)
	if err != nil {
		return nil, err
	}

	type group struct {
		key   interface{}
		accs  []*accState
		order int
	}
	groups := make(map[interface{}]*group)
	var ordered []*group
	for i := range matched {
		rec := &matched[i]
		var key interface{}
		if p.GroupBy != "" {
			key, _ = rec.Field(p.GroupBy)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, order: len(ordered)}
			for _, acc := range p.Accumulators {
				g.accs = append(g.accs, newAccState(acc))
			}
			groups[key] = g
			ordered = append(ordered, g)
		}
		for _, st := range g.accs {
			st.add(rec)
		}
	}

	rows := make([]Row, 0, len(ordered))
	for _, g := range ordered {
		row := Row{Key: g.key, Metrics: make(map[string]float64), Sets: make(map[string][]interface{})}
		for _, st := range g.accs {
			st.emit(&row)
		}
		rows = append(rows, row)
	}

	if len(p.Sort) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, k := range p.Sort {
				c := compareRowField(rows[i], rows[j], k.Name)
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return compareValues(rows[i].Key, rows[j].Key) < 0
		})
	}
	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}
	return rows, nil
}

func (m *Memory) Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]models.InsightModel, error) {
	matched, err := m.match(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, k := range opts.Sort {
				a, _ := matched[i].Field(k.Name)
				b, _ := matched[j].Field(k.Name)
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = matched[:0]
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]models.InsightModel, 0, len(matched))
	for _, rec := range matched {
		if len(opts.Projection) > 0 {
			rec = project(rec, opts.Projection)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	matched, err := m.match(ctx, pred)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (m *Memory) InsertOne(ctx context.Context, rec *models.InsightModel) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	return m.insert(rec)
}

func (m *Memory) InsertMany(ctx context.Context, recs []models.InsightModel) (InsertManyResult, error) {
	if err := ctx.Err(); err != nil {
		return InsertManyResult{}, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return InsertManyResult{}, err
	}

	var res InsertManyResult
	for i := range recs {
		if err := m.insert(&recs[i]); err != nil {
			res.Failures = append(res.Failures, InsertFailure{Index: i, Err: err})
			continue
		}
		res.InsertedCount++
	}
	return res, nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*models.InsightModel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	pos, ok := m.index[oid]
	if !ok {
		return nil, nil
	}
	rec := m.records[pos]
	return &rec, nil
}

func (m *Memory) UpdateByID(ctx context.Context, id string, rec *models.InsightModel) (*models.InsightModel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	pos, ok := m.index[oid]
	if !ok {
		return nil, nil
	}

	next := *rec
	next.ID = oid
	next.CreatedAt = m.records[pos].CreatedAt
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}
	m.records[pos] = next
	return &next, nil
}

func (m *Memory) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	pos, ok := m.index[oid]
	if !ok {
		return false, nil
	}
	m.records = append(m.records[:pos], m.records[pos+1:]...)
	delete(m.index, oid)
	for i := pos; i < len(m.records); i++ {
		m.index[m.records[i].ID] = i
	}
	return true, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

// insert must be called with mu held for writing.
func (m *Memory) insert(rec *models.InsightModel) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, dup := m.index[rec.ID]; dup {
		return fmt.Errorf("%w: duplicate key _id %s", apperr.ErrConstraintViolation, rec.ID.Hex())
	}
	m.index[rec.ID] = len(m.records)
	m.records = append(m.records, *rec)
	return nil
}

func (m *Memory) match(ctx context.Context, pred query.Predicate) ([]models.InsightModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	for _, c := range pred.Clauses() {
		if err := validateClause(c); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := make([]models.InsightModel, 0, len(m.records))
	for i := range m.records {
		if matchAll(&m.records[i], pred.Clauses()) {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func validateClause(c query.Clause) error {
	switch c.Op {
	case query.OpIDIn:
		_, err := parseObjectIDs(c.IDs)
		return err
	case query.OpMatches:
		if c.Regexp() == nil {
			return fmt.Errorf("%w: invalid pattern %q", apperr.ErrInvalidFilter, c.Pattern)
		}
	case query.OpAnyOf:
		for _, sub := range c.Any {
			if err := validateClause(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func matchAll(rec *models.InsightModel, clauses []query.Clause) bool {
	for _, c := range clauses {
		if !matchClause(rec, c) {
			return false
		}
	}
	return true
}

func matchClause(rec *models.InsightModel, c query.Clause) bool {
	switch c.Op {
	case query.OpAnyOf:
		for _, sub := range c.Any {
			if matchClause(rec, sub) {
				return true
			}
		}
		return false
	case query.OpIDIn:
		hex := rec.ID.Hex()
		for _, id := range c.IDs {
			if strings.EqualFold(id, hex) {
				return true
			}
		}
		return false
	}

	v, ok := rec.Field(c.Field)
	switch c.Op {
	case query.OpEquals:
		s, isStr := v.(string)
		return ok && isStr && s == c.Value
	case query.OpYearEquals:
		f, isNum := v.(float64)
		return ok && isNum && f == float64(c.Number)
	case query.OpMatches:
		s, isStr := v.(string)
		return ok && isStr && c.Regexp().MatchString(s)
	case query.OpBetween:
		f, isNum := v.(float64)
		if !ok || !isNum {
			return false
		}
		if c.Min != nil && f < *c.Min {
			return false
		}
		if c.Max != nil && f > *c.Max {
			return false
		}
		return true
	case query.OpNotEmpty:
		s, isStr := v.(string)
		return !isStr || s != ""
	case query.OpIsNumber:
		_, isNum := v.(float64)
		return ok && isNum
	}
	return false
}

type accState struct {
	acc    Accumulator
	count  int
	sum    float64
	n      int
	lo, hi float64
	seen   map[interface{}]struct{}
	set    []interface{}
}

func newAccState(acc Accumulator) *accState {
	return &accState{acc: acc, lo: math.Inf(1), hi: math.Inf(-1), seen: make(map[interface{}]struct{})}
}

func (s *accState) add(rec *models.InsightModel) {
	if s.acc.Op == AccCount {
		s.count++
		return
	}
	v, _ := rec.Field(s.acc.Field)
	switch s.acc.Op {
	case AccDistinct:
		if str, ok := v.(string); ok && str != "" {
			s.collect(str)
		}
	case AccDistinctNumber:
		if f, ok := v.(float64); ok {
			s.collect(f)
		}
	default:
		f, ok := v.(float64)
		if !ok {
			return
		}
		s.n++
		s.sum += f
		s.lo = math.Min(s.lo, f)
		s.hi = math.Max(s.hi, f)
	}
}

func (s *accState) collect(v interface{}) {
	if _, dup := s.seen[v]; dup {
		return
	}
	s.seen[v] = struct{}{}
	s.set = append(s.set, v)
}

func (s *accState) emit(row *Row) {
	name := s.acc.Name
	switch s.acc.Op {
	case AccCount:
		row.Metrics[name] = float64(s.count)
	case AccSum:
		row.Metrics[name] = s.sum
	case AccDistinct, AccDistinctNumber:
		set := s.set
		if set == nil {
			set = []interface{}{}
		}
		row.Sets[name] = set
	default:
		if s.n == 0 {
			return
		}
		switch s.acc.Op {
		case AccAvg:
			row.Metrics[name] = s.sum / float64(s.n)
		case AccMin:
			row.Metrics[name] = s.lo
		case AccMax:
			row.Metrics[name] = s.hi
		}
	}
}

func compareRowField(a, b Row, name string) int {
	if name == KeyName {
		return compareValues(a.Key, b.Key)
	}
	av, aok := a.Metrics[name]
	bv, bok := b.Metrics[name]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return compareValues(av, bv)
}

// compareValues orders values the way the document store does across
// types: nil first, then numbers, then strings.
func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	}
	return 3
}

func project(rec models.InsightModel, fields []string) models.InsightModel {
	out := models.InsightModel{ID: rec.ID}
	for _, f := range fields {
		switch f {
		case "end_year":
			out.EndYear = rec.EndYear
		case "start_year":
			out.StartYear = rec.StartYear
		case "intensity":
			out.Intensity = rec.Intensity
		case "likelihood":
			out.Likelihood = rec.Likelihood
		case "relevance":
			out.Relevance = rec.Relevance
		case "impact":
			out.Impact = rec.Impact
		case "sector":
			out.Sector = rec.Sector
		case "topic":
			out.Topic = rec.Topic
		case "region":
			out.Region = rec.Region
		case "country":
			out.Country = rec.Country
		case "city":
			out.City = rec.City
		case "pestle":
			out.Pestle = rec.Pestle
		case "insight":
			out.Insight = rec.Insight
		case "title":
			out.Title = rec.Title
		case "url":
			out.URL = rec.URL
		case "source":
			out.Source = rec.Source
		case "added":
			out.Added = rec.Added
		case "published":
			out.Published = rec.Published
		}
	}
	return out
}
