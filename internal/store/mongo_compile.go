package store

import (
	"fmt"

	"github.com/insightboard/core/internal/pkg/apperr"
	"github.com/insightboard/core/internal/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompileFilter turns a predicate into a MongoDB filter document. Clauses
// are combined with $and so refinements on the same field never overwrite
// one another.
func CompileFilter(pred query.Predicate) (bson.D, error) {
	clauses := pred.Clauses()
	if len(clauses) == 0 {
		return bson.D{}, nil
	}
	parts := make(bson.A, 0, len(clauses))
	for _, c := range clauses {
		doc, err := compileClause(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, doc)
	}
	if len(parts) == 1 {
		return parts[0].(bson.D), nil
	}
	return bson.D{{Key: "$and", Value: parts}}, nil
}

func compileClause(c query.Clause) (bson.D, error) {
	switch c.Op {
	case query.OpEquals:
		return bson.D{{Key: c.Field, Value: c.Value}}, nil
	case query.OpYearEquals:
		return bson.D{{Key: c.Field, Value: c.Number}}, nil
	case query.OpMatches:
		return bson.D{{Key: c.Field, Value: primitive.Regex{Pattern: c.Pattern, Options: "i"}}}, nil
	case query.OpBetween:
		rng := bson.D{}
		if c.Min != nil {
			rng = append(rng, bson.E{Key: "$gte", Value: *c.Min})
		}
		if c.Max != nil {
			rng = append(rng, bson.E{Key: "$lte", Value: *c.Max})
		}
		return bson.D{{Key: c.Field, Value: rng}}, nil
	case query.OpNotEmpty:
		return bson.D{{Key: c.Field, Value: bson.D{{Key: "$ne", Value: ""}}}}, nil
	case query.OpIsNumber:
		return bson.D{{Key: c.Field, Value: bson.D{{Key: "$type", Value: "number"}}}}, nil
	case query.OpAnyOf:
		alts := make(bson.A, 0, len(c.Any))
		for _, sub := range c.Any {
			doc, err := compileClause(sub)
			if err != nil {
				return nil, err
			}
			alts = append(alts, doc)
		}
		return bson.D{{Key: "$or", Value: alts}}, nil
	case query.OpIDIn:
		ids, err := parseObjectIDs(c.IDs)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, nil
	}
	return nil, fmt.Errorf("%w: unsupported clause op %d", apperr.ErrInvalidFilter, c.Op)
}

// CompilePipeline renders the aggregation stages that follow $match.
func CompilePipeline(p Pipeline) bson.A {
	var groupID interface{}
	if p.GroupBy != "" {
		groupID = "$" + p.GroupBy
	}
	group := bson.D{{Key: "_id", Value: groupID}}
	for _, acc := range p.Accumulators {
		group = append(group, bson.E{Key: acc.Name, Value: compileAccumulator(acc)})
	}

	stages := bson.A{bson.D{{Key: "$group", Value: group}}}
	if len(p.Sort) > 0 {
		sort := bson.D{}
		keyed := false
		for _, k := range p.Sort {
			dir := 1
			if k.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: k.Name, Value: dir})
			if k.Name == KeyName {
				keyed = true
			}
		}
		if !keyed {
			sort = append(sort, bson.E{Key: KeyName, Value: 1})
		}
		stages = append(stages, bson.D{{Key: "$sort", Value: sort}})
	}
	if p.Limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: p.Limit}})
	}
	return stages
}

func compileAccumulator(acc Accumulator) bson.D {
	ref := "$" + acc.Field
	switch acc.Op {
	case AccCount:
		return bson.D{{Key: "$sum", Value: 1}}
	case AccAvg:
		return bson.D{{Key: "$avg", Value: ref}}
	case AccMin:
		return bson.D{{Key: "$min", Value: ref}}
	case AccMax:
		return bson.D{{Key: "$max", Value: ref}}
	case AccSum:
		return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$isNumber", Value: ref}}, ref, 0,
		}}}}}
	case AccDistinct:
		return bson.D{{Key: "$addToSet", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$ne", Value: bson.A{ref, ""}}},
				bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, "string"}}},
			}}},
			ref, nil,
		}}}}}
	case AccDistinctNumber:
		return bson.D{{Key: "$addToSet", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$isNumber", Value: ref}}, ref, nil,
		}}}}}
	}
	return bson.D{{Key: "$first", Value: ref}}
}

func parseObjectIDs(ids []string) (bson.A, error) {
	out := make(bson.A, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id %q", apperr.ErrInvalidFilter, id)
		}
		out = append(out, oid)
	}
	return out, nil
}

func compileProjection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	proj := make(bson.D, 0, len(fields))
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}

func compileSort(keys []SortKey) bson.D {
	if len(keys) == 0 {
		return nil
	}
	sort := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: k.Name, Value: dir})
	}
	return sort
}
