package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DatabaseProvider hands out the database handle, connecting lazily.
// *database.Connector implements it.
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	db         DatabaseProvider
	collection string
}

// NewMongo creates a store over the insights collection of db.
func NewMongo(db DatabaseProvider) *Mongo {
	return &Mongo{db: db, collection: models.InsightCollection}
}

func (s *Mongo) coll(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	return db.Collection(s.collection), nil
}

func (s *Mongo) Aggregate(ctx context.Context, pred query.Predicate, p Pipeline) ([]Row, error) {
	filter, err := CompileFilter(pred)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	stages := append(bson.A{bson.D{{Key: "$match", Value: filter}}}, CompilePipeline(p)...)
	cur, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, wrapMongoErr("aggregate", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrapMongoErr("aggregate", err)
	}

	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, decodeRow(doc, p.Accumulators))
	}
	return rows, nil
}

func (s *Mongo) Find(ctx context.Context, pred query.Predicate, opts FindOptions) ([]models.InsightModel, error) {
	filter, err := CompileFilter(pred)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if sort := compileSort(opts.Sort); sort != nil {
		findOpts.SetSort(sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if proj := compileProjection(opts.Projection); proj != nil {
		findOpts.SetProjection(proj)
	}

	cur, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, wrapMongoErr("find", err)
	}
	out := []models.InsightModel{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapMongoErr("find", err)
	}
	return out, nil
}

func (s *Mongo) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	filter, err := CompileFilter(pred)
	if err != nil {
		return 0, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapMongoErr("count", err)
	}
	return n, nil
}

func (s *Mongo) InsertOne(ctx context.Context, rec *models.InsightModel) error {
	coll, err := s.coll(ctx)
	if err != nil {
		return err
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, err := coll.InsertOne(ctx, rec); err != nil {
		return wrapMongoErr("insert", err)
	}
	return nil
}

func (s *Mongo) InsertMany(ctx context.Context, recs []models.InsightModel) (InsertManyResult, error) {
	if len(recs) == 0 {
		return InsertManyResult{}, nil
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return InsertManyResult{}, err
	}

	docs := make([]interface{}, len(recs))
	for i := range recs {
		if recs[i].ID.IsZero() {
			recs[i].ID = primitive.NewObjectID()
		}
		docs[i] = recs[i]
	}

	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return InsertManyResult{InsertedCount: len(recs)}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		return InsertManyResult{}, wrapMongoErr("insert many", err)
	}
	res := InsertManyResult{InsertedCount: len(recs) - len(bwe.WriteErrors)}
	for _, we := range bwe.WriteErrors {
		kind := apperr.ErrConstraintViolation
		if !mongo.IsDuplicateKeyError(we) {
			kind = apperr.ErrValidation
		}
		res.Failures = append(res.Failures, InsertFailure{
			Index: we.Index,
			Err:   fmt.Errorf("%w: %s", kind, we.Message),
		})
	}
	return res, nil
}

func (s *Mongo) FindByID(ctx context.Context, id string) (*models.InsightModel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}
	var rec models.InsightModel
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, wrapMongoErr("find by id", err)
	}
	return &rec, nil
}

func (s *Mongo) UpdateByID(ctx context.Context, id string, rec *models.InsightModel) (*models.InsightModel, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return nil, err
	}

	set, err := updateDocument(rec)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.InsightModel
	err = coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, wrapMongoErr("update", err)
	}
	return &out, nil
}

func (s *Mongo) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	coll, err := s.coll(ctx)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, wrapMongoErr("delete", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	db, err := s.db.Database(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: ping: %w", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// updateDocument renders rec as a $set body without identity or creation
// time so those stay as stored.
func updateDocument(rec *models.InsightModel) (bson.D, error) {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key == "_id" || e.Key == "createdAt" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id format %q", apperr.ErrInvalidFilter, id)
	}
	return oid, nil
}

func wrapMongoErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s: %w", apperr.ErrConstraintViolation, op, err)
	}
	return fmt.Errorf("%w: %s: %w", apperr.ErrStoreUnavailable, op, err)
}

func decodeRow(doc bson.M, accs []Accumulator) Row {
	row := Row{
		Key:     normalizeValue(doc["_id"]),
		Metrics: make(map[string]float64, len(accs)),
		Sets:    make(map[string][]interface{}),
	}
	for _, acc := range accs {
		v, ok := doc[acc.Name]
		if !ok || v == nil {
			continue
		}
		switch acc.Op {
		case AccDistinct, AccDistinctNumber:
			arr, _ := v.(bson.A)
			set := make([]interface{}, 0, len(arr))
			for _, item := range arr {
				if item = normalizeValue(item); item != nil {
					set = append(set, item)
				}
			}
			row.Sets[acc.Name] = set
		default:
			if f, ok := toFloat(v); ok {
				row.Metrics[acc.Name] = f
			}
		}
	}
	return row
}

// normalizeValue folds BSON numeric types into float64.
func normalizeValue(v interface{}) interface{} {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case primitive.Decimal128:
		f, err := decimalToFloat(n)
		return f, err == nil
	}
	return 0, false
}

func decimalToFloat(d primitive.Decimal128) (float64, error) {
	var f float64
	_, err := fmt.Sscan(d.String(), &f)
	return f, err
}
